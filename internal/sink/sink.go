package sink

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tradeScope/internal/metrics"
)

// Record is a JSON-serializable match with a stable identity.
type Record interface {
	RecordKey() string
}

// Sink receives matches emitted by a watch.
type Sink interface {
	Name() string
	Publish(ctx context.Context, rec Record) error
	Close() error
}

// Fanout publishes every record to all sinks. A failing sink is logged and
// does not stop delivery to the others.
type Fanout struct {
	sinks   []Sink
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewFanout(sinks []Sink, logger *zap.Logger, m *metrics.Metrics) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{sinks: sinks, logger: logger, metrics: m}
}

func (f *Fanout) Name() string { return "fanout" }

// Len returns the number of attached sinks.
func (f *Fanout) Len() int { return len(f.sinks) }

// Publish returns the joined errors of the failing sinks.
func (f *Fanout) Publish(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Publish(ctx, rec); err != nil {
			f.metrics.SinkFailed(s.Name())
			f.logger.Warn("sink publish failed",
				zap.String("sink", s.Name()),
				zap.String("key", rec.RecordKey()),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
