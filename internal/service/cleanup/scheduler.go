package cleanup

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs a Sweeper on a fixed interval until stopped.
type Scheduler struct {
	sweeper  *Sweeper
	interval time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler. A non-positive interval defaults to one hour.
func NewScheduler(sweeper *Sweeper, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger.With("component", "cleanup_scheduler"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the background loop. The first sweep runs after one interval.
func (s *Scheduler) Start() {
	s.logger.Info("starting cleanup scheduler", "interval", s.interval)
	s.wg.Add(1)
	go s.loop()
}

// Stop cancels the loop and waits for an in-flight sweep to return.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Info("cleanup scheduler stopped")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.sweeper.Sweep(s.ctx); err != nil {
				s.logger.Error("scheduled cleanup sweep failed", "error", err)
			}
		}
	}
}
