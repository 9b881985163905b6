package ledger

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
)

// Tee opens a ledger in primary and a mirror ledger in each of mirrors.
// Appends go to the primary first; a failing mirror is logged and detached
// without failing the game.
func Tee(logger *log.Logger, primary Opener, mirrors ...Opener) Opener {
	return &teeOpener{primary: primary, mirrors: mirrors, logger: logger.WithPrefix("ledger")}
}

type idOpener interface {
	OpenWithID(ctx context.Context, id, game string) (Ledger, error)
}

type teeOpener struct {
	primary Opener
	mirrors []Opener
	logger  *log.Logger
}

func (t *teeOpener) Open(ctx context.Context, game string) (Ledger, error) {
	main, err := t.primary.Open(ctx, game)
	if err != nil {
		return nil, err
	}

	tl := &teeLedger{Ledger: main, logger: t.logger.With("ledger", main.ID())}
	for _, m := range t.mirrors {
		var mirror Ledger
		if o, ok := m.(idOpener); ok {
			mirror, err = o.OpenWithID(ctx, main.ID(), game)
		} else {
			mirror, err = m.Open(ctx, game)
		}
		if err != nil {
			t.logger.Error("Failed to open ledger mirror", "error", err)
			continue
		}
		tl.mirrors = append(tl.mirrors, mirror)
	}
	return tl, nil
}

type teeLedger struct {
	Ledger
	mirrors []Ledger
	logger  *log.Logger
}

func (t *teeLedger) Append(ctx context.Context, record RoundRecord) error {
	if err := t.Ledger.Append(ctx, record); err != nil {
		return err
	}
	kept := t.mirrors[:0]
	for _, m := range t.mirrors {
		if err := m.Append(ctx, record); err != nil {
			t.logger.Error("Ledger mirror failed, detaching", "mirror", m.ID(), "round", record.Round, "error", err)
			_ = m.Close()
			continue
		}
		kept = append(kept, m)
	}
	t.mirrors = kept
	return nil
}

func (t *teeLedger) Close() error {
	errs := []error{t.Ledger.Close()}
	for _, m := range t.mirrors {
		errs = append(errs, m.Close())
	}
	return errors.Join(errs...)
}
