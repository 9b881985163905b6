package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS games (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		started_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rounds (
		game_id TEXT NOT NULL REFERENCES games(id),
		round   INTEGER NOT NULL,
		record  TEXT NOT NULL,
		PRIMARY KEY (game_id, round)
	)`,
	`CREATE TABLE IF NOT EXISTS scores (
		game_id    TEXT NOT NULL REFERENCES games(id),
		round      INTEGER NOT NULL,
		agent      TEXT NOT NULL,
		action     TEXT NOT NULL,
		payoff     REAL NOT NULL,
		cumulative REAL NOT NULL,
		PRIMARY KEY (game_id, round, agent)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scores_agent ON scores(agent)`,
}

// SQLiteStore mirrors ledgers into a SQLite database for querying across
// games.
type SQLiteStore struct {
	db     *sql.DB
	clock  quartz.Clock
	logger *log.Logger
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string, logger *log.Logger, clock quartz.Clock) (*SQLiteStore, error) {
	if clock == nil {
		clock = quartz.NewReal()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"}
	for _, stmt := range append(pragmas, sqliteSchema...) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, clock: clock, logger: logger.WithPrefix("ledger.sqlite")}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Open registers a new game and returns its ledger.
func (s *SQLiteStore) Open(ctx context.Context, game string) (Ledger, error) {
	return s.OpenWithID(ctx, NewID(), game)
}

// OpenWithID registers a new game under an id chosen by the caller, so the
// mirror of a file ledger shares its id.
func (s *SQLiteStore) OpenWithID(ctx context.Context, id, game string) (Ledger, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO games (id, name, started_at) VALUES (?, ?, ?)`,
		id, game, s.clock.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to register game: %w", err)
	}
	return &sqliteLedger{store: s, id: id}, nil
}

// GameSummary is one row of the games table with its progress.
type GameSummary struct {
	ID      string
	Name    string
	Started time.Time
	Rounds  int
}

// Games returns every recorded game, newest first.
func (s *SQLiteStore) Games(ctx context.Context) ([]GameSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.started_at, COUNT(r.round)
		FROM games g LEFT JOIN rounds r ON r.game_id = g.id
		GROUP BY g.id
		ORDER BY g.started_at DESC, g.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var games []GameSummary
	for rows.Next() {
		var g GameSummary
		if err := rows.Scan(&g.ID, &g.Name, &g.Started, &g.Rounds); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// Rounds returns the records of one game in round order.
func (s *SQLiteStore) Rounds(ctx context.Context, gameID string) ([]RoundRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM rounds WHERE game_id = ? ORDER BY round`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var records []RoundRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var r RoundRecord
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("failed to decode round: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games WHERE id = ?`, gameID).Scan(&exists)
		if err != nil {
			return nil, err
		}
		if exists == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, gameID)
		}
	}
	return records, nil
}

// AgentTotal is an agent's score summed over every recorded game.
type AgentTotal struct {
	Agent  string
	Games  int
	Rounds int
	Total  float64
}

// Leaderboard returns per-agent payoff totals across all games, best first.
func (s *SQLiteStore) Leaderboard(ctx context.Context) ([]AgentTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agent, COUNT(DISTINCT game_id), COUNT(*), SUM(payoff)
		FROM scores GROUP BY agent`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var totals []AgentTotal
	for rows.Next() {
		var t AgentTotal
		if err := rows.Scan(&t.Agent, &t.Games, &t.Rounds, &t.Total); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].Total != totals[j].Total {
			return totals[i].Total > totals[j].Total
		}
		return totals[i].Agent < totals[j].Agent
	})
	return totals, rows.Err()
}

type sqliteLedger struct {
	store *SQLiteStore
	id    string

	mu sync.Mutex
	n  int
}

func (l *sqliteLedger) ID() string { return l.id }

func (l *sqliteLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

// Append writes the round and its per-agent score rows in one transaction.
func (l *sqliteLedger) Append(ctx context.Context, record RoundRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := checkOrder(l.n, record); err != nil {
		return err
	}
	raw, err := encode(record, "")
	if err != nil {
		return fmt.Errorf("failed to encode round %d: %w", record.Round, err)
	}

	tx, err := l.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO rounds (game_id, round, record) VALUES (?, ?, ?)`,
		l.id, record.Round, string(raw)); err != nil {
		return fmt.Errorf("failed to insert round: %w", err)
	}
	for _, agent := range record.Agents() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scores (game_id, round, agent, action, payoff, cumulative) VALUES (?, ?, ?, ?, ?, ?)`,
			l.id, record.Round, agent, record.Actions[agent].Action, record.Payoffs[agent], record.CumulativeScores[agent]); err != nil {
			return fmt.Errorf("failed to insert score: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit round: %w", err)
	}

	l.n++
	l.store.logger.Debug("Mirrored round", "game", l.id, "round", record.Round)
	return nil
}

func (l *sqliteLedger) Close() error { return nil }
