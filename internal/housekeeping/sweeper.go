// Package housekeeping removes stale uploads and generated documents.
package housekeeping

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/djherbis/times"
	"go.uber.org/zap"

	"github.com/vistoriadocs/laudo/pkg/laudo"
)

// DefaultRetention is how long files are kept.
const DefaultRetention = 24 * time.Hour

// Report summarizes one sweep.
type Report struct {
	Scanned int
	Removed []string
	Err     error
}

// Sweeper deletes regular files whose modification time is older than the
// retention window. Subdirectories are left alone.
type Sweeper struct {
	dirs      []string
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu sync.Mutex
}

// Option customizes a Sweeper.
type Option func(*Sweeper)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSweeper creates a sweeper over dirs. A non-positive retention uses DefaultRetention.
func NewSweeper(retention time.Duration, dirs []string, opts ...Option) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	s := &Sweeper{
		dirs:      append([]string(nil), dirs...),
		retention: retention,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("housekeeping")
	return s
}

// Retention returns the configured retention window.
func (s *Sweeper) Retention() time.Duration {
	return s.retention
}

// Sweep scans every directory once. A file that cannot be inspected or
// removed is logged and recorded in Report.Err; the sweep goes on with the
// next one. A missing directory is not an error.
func (s *Sweeper) Sweep() Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report Report
	errs := laudo.NewMultiError()
	cutoff := s.now().Add(-s.retention)

	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				s.logger.Error("failed to list directory", zap.String("dir", dir), zap.Error(err))
				errs.Add(laudo.WithContext(err, "list", map[string]any{"dir": dir}))
			}
			continue
		}

		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			report.Scanned++

			ts, err := times.Stat(path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue
				}
				s.logger.Error("failed to stat file", zap.String("path", path), zap.Error(err))
				errs.Add(laudo.WithContext(err, "stat", map[string]any{"path": path}))
				continue
			}
			if !ts.ModTime().Before(cutoff) {
				continue
			}

			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.logger.Error("failed to remove old file", zap.String("path", path), zap.Error(err))
				errs.Add(laudo.WithContext(err, "remove", map[string]any{"path": path}))
				continue
			}
			report.Removed = append(report.Removed, path)
			s.logger.Info("old file removed",
				zap.String("path", path),
				zap.Duration("age", s.now().Sub(ts.ModTime()).Truncate(time.Second)),
			)
		}
	}

	report.Err = errs.Err()
	return report
}

// Run sweeps immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.runOnce()
	for {
		select {
		case <-ticker.C:
			s.runOnce()
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Sweeper) runOnce() {
	report := s.Sweep()
	if len(report.Removed) > 0 {
		s.logger.Info("sweep removed files", zap.Int("count", len(report.Removed)), zap.Int("scanned", report.Scanned))
	}
	if report.Err != nil {
		s.logger.Warn("sweep finished with errors", zap.Error(report.Err))
	}
}
