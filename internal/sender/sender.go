// Package sender delivers metric batches to the monitoring backend.
// A Dispatcher wraps collected snapshots into a Batch carrying the host
// identity and the static chart catalog, hands it to a Sink, and falls back
// to the local buffer when the sink fails.
package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitalis-app/rosnode-agent/internal/buffer"
	"github.com/vitalis-app/rosnode-agent/internal/config"
	"github.com/vitalis-app/rosnode-agent/internal/models"
)

// sendTimeout bounds one Sink.Send call, retries included.
const sendTimeout = 2 * time.Minute

// Sink transmits one batch to a backend.
type Sink interface {
	Send(ctx context.Context, batch models.Batch) error
	Close() error
}

// NewSink builds the sink selected by cfg.Sink.Kind.
func NewSink(cfg *config.Config, logger *zap.Logger) (Sink, error) {
	switch cfg.Sink.Kind {
	case config.SinkHTTP:
		return NewHTTPSink(cfg.Server.URL, cfg.Server.MachineToken, logger), nil
	case config.SinkKafka:
		return NewKafkaSink(cfg.Sink.Kafka, logger), nil
	default:
		return nil, fmt.Errorf("unknown sink kind %q", cfg.Sink.Kind)
	}
}

// Dispatcher turns snapshots into batches and routes them to a Sink.
type Dispatcher struct {
	sink   Sink
	buf    *buffer.Buffer
	host   models.HostInfo
	token  string
	charts func() []models.Chart
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher. charts is called for every batch so the
// backend always receives the current catalog; buf may be nil.
func NewDispatcher(sink Sink, buf *buffer.Buffer, host models.HostInfo, token string, charts func() []models.Chart, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sink:   sink,
		buf:    buf,
		host:   host,
		token:  token,
		charts: charts,
		logger: logger,
	}
}

// Send wraps snapshots in a new batch and delivers it.
func (d *Dispatcher) Send(snapshots []models.Snapshot) {
	batch := models.Batch{
		ID:           uuid.NewString(),
		MachineToken: d.token,
		Host:         d.host,
		Charts:       d.charts(),
		Snapshots:    snapshots,
	}
	d.deliver(batch)
}

// FlushBuffer attempts to send all previously buffered batches.
// Called on startup to drain any batches that were stored during prior outages.
func (d *Dispatcher) FlushBuffer() {
	if d.buf == nil {
		return
	}

	batches, err := d.buf.RetrieveAll()
	if err != nil {
		d.logger.Error("Failed to retrieve buffered batches", zap.Error(err))
		return
	}
	if len(batches) == 0 {
		return
	}

	d.logger.Info("Flushing buffered batches", zap.Int("batches", len(batches)))
	for _, batch := range batches {
		d.deliver(batch)
	}
}

// Close releases the sink.
func (d *Dispatcher) Close() error {
	return d.sink.Close()
}

func (d *Dispatcher) deliver(batch models.Batch) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := d.sink.Send(ctx, batch); err != nil {
		d.logger.Error("Failed to send batch, buffering",
			zap.String("batch", batch.ID),
			zap.Error(err))
		d.bufferBatch(batch)
		return
	}
	d.logger.Debug("Batch sent successfully",
		zap.String("batch", batch.ID),
		zap.Int("snapshots", len(batch.Snapshots)))
}

// bufferBatch stores a failed batch in the local file buffer.
func (d *Dispatcher) bufferBatch(batch models.Batch) {
	if d.buf == nil {
		d.logger.Warn("No buffer available, dropping batch",
			zap.Int("snapshots", len(batch.Snapshots)))
		return
	}
	if err := d.buf.Store(batch); err != nil {
		d.logger.Error("Failed to buffer batch", zap.Error(err))
	}
}
