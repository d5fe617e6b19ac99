package action

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper deletes expired cooldown rows. Eligibility never depends on it
// having run; it only reclaims storage.
type Sweeper struct {
	store    Store
	logger   *zap.Logger
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a Sweeper that runs every interval once started.
// An interval of zero disables the periodic loop; Sweep may still be called.
//
// Precondition: store and logger must be non-nil; interval and timeout must be >= 0.
func NewSweeper(store Store, logger *zap.Logger, interval, timeout time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Sweep deletes every cooldown with AvailableAt <= now.
//
// Postcondition: Returns the number of rows removed.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.store.SweepCooldowns(ctx, now.UTC())
	if err != nil {
		return 0, storageError(fmt.Errorf("sweeping cooldowns: %w", err))
	}
	if n > 0 {
		s.logger.Info("swept expired cooldowns", zap.Int64("removed", n))
	}
	return n, nil
}

// Start launches the periodic loop. It is a no-op when the interval is zero
// or the loop is already running.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interval <= 0 {
		s.logger.Info("cooldown sweeper disabled")
		return nil
	}
	if s.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	s.logger.Info("cooldown sweeper started", zap.Duration("interval", s.interval))
	return nil
}

// Stop halts the loop and waits for an in-flight sweep or ctx, whichever ends first.
func (s *Sweeper) Stop(ctx context.Context) {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("cooldown sweeper did not stop before deadline")
	}
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if _, err := s.Sweep(ctx, s.now()); err != nil && ctx.Err() == nil {
		s.logger.Error("cooldown sweep failed", zap.Error(err))
	}
}
