package main

import (
	"context"

	"go.uber.org/zap"

	"tradeScope/internal/sink"
)

type publisher interface {
	Publish(ctx context.Context, rec sink.Record) error
}

// drain publishes every item of items until the channel closes and returns
// how many were seen and how many reached only part of the sinks.
func drain[T any](ctx context.Context, items <-chan T, toRecord func(T) sink.Record, pub publisher, logger *zap.Logger) (emitted, failed int) {
	for item := range items {
		emitted++
		rec := toRecord(item)
		if err := pub.Publish(ctx, rec); err != nil {
			failed++
			logger.Debug("publish incomplete", zap.String("key", rec.RecordKey()), zap.Error(err))
		}
	}
	return emitted, failed
}
