package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Ingester runs one ingestion pass over all eligible integrations.
type Ingester interface {
	SyncAuto(ctx context.Context) error
}

// Publisher runs one scheduled-publish pass.
type Publisher interface {
	PublishDue(ctx context.Context) (int, error)
}

// Scheduler owns the two recurring engine loops. Each loop is a
// single-threaded ticker: a tick runs to completion before the next
// sleep begins, and both loops exit at their sleep boundary when the
// context is cancelled.
type Scheduler struct {
	ingester        Ingester
	publisher       Publisher
	ingestInterval  time.Duration
	publishInterval time.Duration
	logger          *slog.Logger
}

func New(ingester Ingester, publisher Publisher, ingestInterval, publishInterval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		ingester:        ingester,
		publisher:       publisher,
		ingestInterval:  ingestInterval,
		publishInterval: publishInterval,
		logger:          logger,
	}
}

// Start runs both loops until ctx is cancelled and returns ctx.Err().
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"ingest_interval", s.ingestInterval,
		"publish_interval", s.publishInterval,
	)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.runLoop(ctx, "ingest", s.ingestInterval, 5*time.Minute, s.runIngest)
	}()
	go func() {
		defer wg.Done()
		s.runLoop(ctx, "publish", s.publishInterval, time.Minute, s.runPublish)
	}()

	wg.Wait()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) runLoop(ctx context.Context, name string, interval, tickTimeout time.Duration, tick func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("loop stopped", "loop", name)
			return
		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(ctx, tickTimeout)
			tick(tickCtx)
			cancel()
		}
	}
}

func (s *Scheduler) runIngest(ctx context.Context) {
	if err := s.ingester.SyncAuto(ctx); err != nil {
		s.logger.Error("ingest tick failed", "error", err)
	}
}

func (s *Scheduler) runPublish(ctx context.Context) {
	if _, err := s.publisher.PublishDue(ctx); err != nil {
		s.logger.Error("publish tick failed", "error", err)
	}
}
