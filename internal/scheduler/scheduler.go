// Package scheduler implements a tick-based periodic collection scheduler.
// It runs one collection cycle per tick and batches the resulting snapshots
// for transmission. The scheduler does NOT send data directly; it invokes a
// callback when a batch is ready.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitalis-app/rosnode-agent/internal/collector"
	"github.com/vitalis-app/rosnode-agent/internal/config"
	"github.com/vitalis-app/rosnode-agent/internal/models"
)

// Scheduler manages periodic metric collection and batching.
type Scheduler struct {
	registry *collector.Registry
	cfg      config.CollectionConfig
	logger   *zap.Logger
	now      func() time.Time

	batch   []models.Snapshot
	batchMu sync.Mutex

	onBatchReady func([]models.Snapshot)
}

// New creates a new Scheduler with the given registry, config, and logger.
func New(registry *collector.Registry, cfg config.CollectionConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		batch:    make([]models.Snapshot, 0),
	}
}

// OnBatchReady sets the callback invoked when a batch of snapshots is ready to send.
// The callback receives the batch and is responsible for transmission/buffering.
func (s *Scheduler) OnBatchReady(fn func([]models.Snapshot)) {
	s.onBatchReady = fn
}

// Start begins the collection and batching loops. It blocks until the context
// is cancelled. On shutdown, it flushes any remaining batch.
func (s *Scheduler) Start(ctx context.Context) {
	collectTicker := time.NewTicker(s.cfg.UpdateEvery.Duration)
	batchTicker := time.NewTicker(s.cfg.BatchInterval.Duration)

	defer collectTicker.Stop()
	defer batchTicker.Stop()

	// Do an initial collection immediately
	s.Collect(ctx)

	for {
		select {
		case <-ctx.Done():
			s.Flush()
			return
		case <-collectTicker.C:
			s.Collect(ctx)
		case <-batchTicker.C:
			s.Flush()
		}
	}
}

// Collect runs one cycle across all collectors and queues the snapshot.
// A cycle that yields no collector output is not queued.
func (s *Scheduler) Collect(ctx context.Context) models.Snapshot {
	collectCtx := ctx
	if s.cfg.CycleTimeout.Duration > 0 {
		var cancel context.CancelFunc
		collectCtx, cancel = context.WithTimeout(ctx, s.cfg.CycleTimeout.Duration)
		defer cancel()
	}

	snapshot := models.Snapshot{
		Timestamp:  s.now().UTC(),
		Collectors: s.registry.CollectAll(collectCtx),
	}
	if len(snapshot.Collectors) == 0 {
		s.logger.Debug("Cycle produced no values", zap.Time("timestamp", snapshot.Timestamp))
		return snapshot
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, snapshot)
	s.batchMu.Unlock()

	s.logger.Debug("Collected metrics",
		zap.Time("timestamp", snapshot.Timestamp),
		zap.Int("collectors", len(snapshot.Collectors)))
	return snapshot
}

// Flush sends the current batch via the callback and resets the buffer.
func (s *Scheduler) Flush() {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	batch := s.batch
	s.batch = make([]models.Snapshot, 0)
	s.batchMu.Unlock()

	s.logger.Info("Flushing batch", zap.Int("count", len(batch)))

	if s.onBatchReady != nil {
		s.onBatchReady(batch)
	}
}

// Pending returns the number of snapshots waiting for the next flush.
func (s *Scheduler) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}
