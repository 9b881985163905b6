package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

const (
	fileExt    = ".json"
	fileIndent = "    "
	timeLayout = "20060102_150405"
)

// ErrNotFound is returned when a ledger id has no file.
var ErrNotFound = errors.New("ledger not found")

// FileStore keeps one JSON array file per game in a directory. The file is
// rewritten whole on every append through a temporary file and a rename, so
// it is a valid JSON array at every point in time.
type FileStore struct {
	dir    string
	clock  quartz.Clock
	logger *log.Logger
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string, logger *log.Logger, clock quartz.Clock) *FileStore {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &FileStore{
		dir:    dir,
		clock:  clock,
		logger: logger.WithPrefix("ledger"),
	}
}

// Dir returns the directory holding ledger files.
func (s *FileStore) Dir() string { return s.dir }

// Open creates an empty ledger file named <game>_<YYYYMMDD_HHMMSS>_<id>.json.
func (s *FileStore) Open(_ context.Context, game string) (Ledger, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	s.sweepPartials()

	id := fmt.Sprintf("%s_%s_%s", fileSafe(game), s.clock.Now().Format(timeLayout), ShortID(NewID()))
	path := filepath.Join(s.dir, id+fileExt)
	if err := replaceLedger(path, []byte("[]")); err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}

	s.logger.Info("Opened ledger", "id", id, "path", path)
	return &fileLedger{id: id, path: path, logger: s.logger.With("ledger", id)}, nil
}

// Load reads every record of the ledger with the given id.
func (s *FileStore) Load(id string) ([]RoundRecord, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: bad id %q", ErrNotFound, id)
	}
	return ReadFile(filepath.Join(s.dir, id+fileExt))
}

// Entry describes one ledger file.
type Entry struct {
	ID      string
	Game    string
	Path    string
	Started time.Time
	Size    int64
}

// List returns every ledger in the store, newest first.
func (s *FileStore) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read log directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || filepath.Ext(de.Name()) != fileExt {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		id := strings.TrimSuffix(de.Name(), fileExt)
		e := Entry{
			ID:      id,
			Game:    id,
			Path:    filepath.Join(s.dir, de.Name()),
			Started: info.ModTime(),
			Size:    info.Size(),
		}
		if game, started, ok := parseID(id); ok {
			e.Game, e.Started = game, started
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Started.Equal(entries[j].Started) {
			return entries[i].Started.After(entries[j].Started)
		}
		return entries[i].ID > entries[j].ID
	})
	return entries, nil
}

// ReadFile decodes a ledger file.
func ReadFile(path string) ([]RoundRecord, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	var records []RoundRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode ledger %s: %w", path, err)
	}
	return records, nil
}

type fileLedger struct {
	id     string
	path   string
	logger *log.Logger

	mu sync.Mutex
	n  int
}

func (l *fileLedger) ID() string { return l.id }

func (l *fileLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

// Append reads the whole file, appends record and rewrites the file. Prior
// elements are carried as raw JSON so their bytes never change.
func (l *fileLedger) Append(_ context.Context, record RoundRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("failed to read ledger: %w", err)
	}
	var existing []json.RawMessage
	if err := json.Unmarshal(data, &existing); err != nil {
		return fmt.Errorf("failed to decode ledger: %w", err)
	}
	if err := checkOrder(len(existing), record); err != nil {
		return err
	}

	raw, err := encode(record, "")
	if err != nil {
		return fmt.Errorf("failed to encode round %d: %w", record.Round, err)
	}
	out, err := encode(append(existing, json.RawMessage(raw)), fileIndent)
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	if err := replaceLedger(l.path, out); err != nil {
		return err
	}

	l.n = len(existing) + 1
	l.logger.Debug("Appended round", "round", record.Round, "bytes", len(out))
	return nil
}

func (l *fileLedger) Close() error { return nil }

// partialMarker separates a ledger file name from the random suffix of the
// copy being written before it replaces the ledger.
const partialMarker = ".partial-"

// partialMaxAge is how old a partial copy must be before Open treats it as
// left behind by an interrupted append.
const partialMaxAge = time.Minute

// replaceLedger writes the whole ledger to a partial copy next to path and
// renames it over path, so readers see the previous rounds or the new ones
// and never a truncated array.
func replaceLedger(path string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+partialMarker+"*")
	if err != nil {
		return fmt.Errorf("failed to create partial ledger: %w", err)
	}
	partial := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(partial)
		}
	}()

	if err = f.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to set ledger permissions: %w", err)
	}
	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("failed to write partial ledger: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("failed to sync partial ledger: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close partial ledger: %w", err)
	}
	if err = os.Rename(partial, path); err != nil {
		return fmt.Errorf("failed to replace ledger: %w", err)
	}
	return nil
}

// sweepPartials removes partial copies older than partialMaxAge. Younger
// ones may belong to a game still running in another process.
func (s *FileStore) sweepPartials() {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+fileExt+partialMarker+"*"))
	if err != nil {
		return
	}
	cutoff := s.clock.Now().Add(-partialMaxAge)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.logger.Warn("Failed to remove partial ledger", "path", path, "error", err)
			continue
		}
		s.logger.Info("Removed partial ledger left by an interrupted append", "path", path)
	}
}

func fileSafe(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "game"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// parseID splits <game>_<YYYYMMDD>_<HHMMSS>_<short> into its game and start
// time.
func parseID(id string) (string, time.Time, bool) {
	parts := strings.Split(id, "_")
	if len(parts) < 4 {
		return "", time.Time{}, false
	}
	n := len(parts)
	started, err := time.ParseInLocation(timeLayout, parts[n-3]+"_"+parts[n-2], time.Local)
	if err != nil {
		return "", time.Time{}, false
	}
	return strings.Join(parts[:n-3], "_"), started, true
}
