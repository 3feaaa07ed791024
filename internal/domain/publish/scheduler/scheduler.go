package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DueEntryProcessor defines the interface for one pass over due
// schedule entries
type DueEntryProcessor interface {
	ProcessDueEntries(ctx context.Context) error
}

// Scheduler runs the single dedicated background worker that polls for
// due schedule entries. Ticks never overlap: the next poll only starts
// after the previous pass returned.
type Scheduler struct {
	processor DueEntryProcessor
	interval  time.Duration
	logger    *slog.Logger
	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// New creates a new scheduler
func New(processor DueEntryProcessor, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		processor: processor,
		interval:  interval,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("publish scheduler started", "interval", s.interval)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the scheduler and waits for the in-flight pass to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("publish scheduler stopped")
}

// run is the main scheduler loop
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.process(ctx)

	for {
		select {
		case <-ticker.C:
			s.process(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// process runs one pass. Errors and panics are logged and swallowed so
// that one failing pass never terminates the background worker.
func (s *Scheduler) process(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("publish pass panicked", "panic", r)
		}
	}()

	s.logger.Debug("processing due schedule entries")

	if err := s.processor.ProcessDueEntries(ctx); err != nil {
		s.logger.Error("failed to process due schedule entries", "error", err)
	}
}
