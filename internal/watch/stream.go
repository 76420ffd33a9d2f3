package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPipelineTerminated ends a stream after a non-transient chain failure.
var ErrPipelineTerminated = errors.New("watch pipeline terminated")

// Stream is a consumer-driven sequence of items. The producer stops when the
// consumer calls Close or when the chain fails permanently.
type Stream[T any] struct {
	out    chan T
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func startStream[T any](parent context.Context, run func(ctx context.Context, emit func(T) bool) error) *Stream[T] {
	ctx, cancel := context.WithCancel(parent)
	s := &Stream[T]{
		out:    make(chan T),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	emit := func(item T) bool {
		if ctx.Err() != nil {
			return false
		}
		select {
		case s.out <- item:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(s.done)
		defer close(s.out)
		defer cancel()
		err := run(ctx, emit)
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			err = nil
		}
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}()
	return s
}

// C returns the item channel. It is closed when the stream ends.
func (s *Stream[T]) C() <-chan T {
	return s.out
}

// Err waits for the stream to end and returns its terminal error, if any.
func (s *Stream[T]) Err() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close cancels the stream and waits for the producer to exit. Items held for
// confirmation are discarded.
func (s *Stream[T]) Close() error {
	s.cancel()
	return s.Err()
}

func terminate(err error) error {
	return fmt.Errorf("%w: %w", ErrPipelineTerminated, err)
}
