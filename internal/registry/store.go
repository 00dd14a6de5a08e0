package registry

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Store holds the current snapshot behind an atomic pointer. The sync job
// replaces the file on disk; Reload swaps the in-memory snapshot wholesale,
// so readers never observe a torn view.
type Store struct {
	path   string
	logger *slog.Logger
	snap   atomic.Pointer[Snapshot]
}

func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Reload loads the snapshot file and, on success, publishes it.
func (s *Store) Reload() (*Snapshot, error) {
	snap, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	s.snap.Store(snap)
	s.logger.Info("registry snapshot loaded",
		"path", s.path,
		"entities", snap.Counts.Total,
		"areas", len(snap.Areas),
	)
	return snap, nil
}

// Current returns the snapshot in effect. A reload failure keeps the
// previous snapshot in place, so this only errors before the first
// successful Reload.
func (s *Store) Current() (*Snapshot, error) {
	if snap := s.snap.Load(); snap != nil {
		return snap, nil
	}
	return s.Reload()
}

// StartPeriodicReload re-reads the snapshot file on an interval, picking up
// whatever the external sync job wrote last.
func (s *Store) StartPeriodicReload(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Reload(); err != nil {
					s.logger.Error("registry reload failed", "error", err)
				}
			}
		}
	}()
}
