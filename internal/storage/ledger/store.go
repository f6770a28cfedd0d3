// Package ledger persists the ladder position snapshot as a single JSON document.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ladder/internal/domain"
)

const (
	// FileName is the snapshot file inside the state directory.
	FileName = "ladder_state.json"

	quarantineLayout = "20060102T150405Z"
)

// Store reads and writes the ladder snapshot.
type Store struct {
	path string
	l    *zap.Logger
	now  func() time.Time
}

// NewStore creates a snapshot store under dir.
func NewStore(l *zap.Logger, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create ladder state dir")
	}

	return &Store{
		path: filepath.Join(dir, FileName),
		l:    l,
		now:  time.Now,
	}, nil
}

// Path returns the snapshot location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the snapshot. A missing or empty file yields nil, nil.
// An unparsable file is moved aside with a timestamp suffix and also yields nil, nil.
func (s *Store) Load() (*domain.LadderState, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "read ladder state")
	}

	if len(payload) == 0 {
		return nil, nil
	}

	var state domain.LadderState
	if err := json.Unmarshal(payload, &state); err != nil {
		quarantined, qErr := s.quarantine()
		if qErr != nil {
			return nil, errors.Wrapf(qErr, "quarantine corrupt ladder state (decode error: %v)", err)
		}

		s.l.Warn("ladder state is corrupt, starting fresh",
			zap.Error(err),
			zap.String("quarantined_to", quarantined))

		return nil, nil
	}

	if state.Buys == nil {
		state.Buys = make([]domain.BuyRecord, 0)
	}
	if state.Sells == nil {
		state.Sells = make([]domain.SellSummary, 0)
	}

	return &state, nil
}

// Save writes the snapshot atomically via a synced temp file.
func (s *Store) Save(state *domain.LadderState) error {
	if state == nil {
		return errors.New("nil ladder state")
	}

	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode ladder state")
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(err, "open ladder state temp file")
	}

	if _, err := f.Write(payload); err != nil {
		f.Close()
		return errors.Wrap(err, "write ladder state temp file")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrap(err, "sync ladder state temp file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close ladder state temp file")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist ladder state")
	}

	return nil
}

func (s *Store) quarantine() (string, error) {
	target := fmt.Sprintf("%s.corrupt-%s", s.path, s.now().UTC().Format(quarantineLayout))
	if err := os.Rename(s.path, target); err != nil {
		return "", err
	}
	return target, nil
}
