package services

import (
	"context"
	"time"

	"fotozip/internal/logging"
)

// RetentionSweeper periodically deletes uploads and archives older than a
// configured age. There is no automatic expiry otherwise; with a zero max age
// the sweeper is a no-op and files accumulate until purged externally.
type RetentionSweeper struct {
	store    BlobStore
	maxAge   time.Duration
	interval time.Duration
}

// NewRetentionSweeper creates a sweeper over store.
func NewRetentionSweeper(store BlobStore, maxAge, interval time.Duration) *RetentionSweeper {
	return &RetentionSweeper{store: store, maxAge: maxAge, interval: interval}
}

// Run sweeps on the configured interval until ctx is canceled. It blocks, so
// callers start it in a goroutine.
func (s *RetentionSweeper) Run(ctx context.Context) {
	if s.maxAge <= 0 {
		return
	}

	logging.Info("retention sweeper enabled", "maxAge", s.maxAge, "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *RetentionSweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.maxAge)
	for _, prefix := range []string{"uploads", "archives"} {
		removed, err := s.store.RemoveOlderThan(ctx, prefix, cutoff)
		if err != nil {
			logging.Warn("retention sweep failed", "prefix", prefix, "error", err)
			continue
		}
		if removed > 0 {
			logging.Info("retention sweep removed expired files", "prefix", prefix, "count", removed)
		}
	}
}
