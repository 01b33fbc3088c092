// Package scheduler periodically pushes the leaderboard when it is stale.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/flor3z/levelbot/internal/leaderboard"
)

// Publisher delivers a rendered snapshot to its destination. Publishing the
// same snapshot twice must be harmless.
type Publisher interface {
	Publish(ctx context.Context, snap *leaderboard.Snapshot) error
}

// Board is the ranked state the scheduler syncs from
type Board interface {
	TakeDirty() (*leaderboard.Snapshot, bool)
	MarkDirty()
}

// Scheduler syncs the leaderboard on a fixed interval, only when it changed
type Scheduler struct {
	board     Board
	publisher Publisher
	interval  time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a new Scheduler
func New(board Board, publisher Publisher, interval time.Duration) *Scheduler {
	return &Scheduler{
		board:     board,
		publisher: publisher,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start runs the sync loop until ctx is cancelled or Stop is called
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("Starting leaderboard sync", "interval", s.interval)

	s.wg.Add(1)
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Initial sync
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Leaderboard sync stopped (context cancelled)")
			return
		case <-s.stopChan:
			slog.Info("Leaderboard sync stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop signals the loop to stop and waits for it to exit
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

// tick publishes the snapshot if it is dirty. It reports whether the
// publisher was called.
func (s *Scheduler) tick(ctx context.Context) bool {
	snap, dirty := s.board.TakeDirty()
	if !dirty {
		slog.Debug("Leaderboard unchanged")
		return false
	}

	if err := s.publisher.Publish(ctx, snap); err != nil {
		// Re-arm so the next tick retries
		s.board.MarkDirty()
		slog.Error("Failed to publish leaderboard", "entries", snap.Len(), "error", err)
		return true
	}

	slog.Info("Published leaderboard", "entries", snap.Len())
	return true
}
