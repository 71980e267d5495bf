package fairqueue

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"time"

	"persondiscovery/internal/logging"
	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Queue is a typed view of one work queue.
type Queue[T any] struct {
	backend Backend
	queue   store.Queue
}

// New binds a typed queue to a backend.
func New[T any](backend Backend, queue store.Queue) *Queue[T] {
	return &Queue[T]{backend: backend, queue: queue}
}

// Name returns the queue name.
func (q *Queue[T]) Name() string {
	return q.queue.Name
}

// Length counts pending items without removing them.
func (q *Queue[T]) Length(ctx context.Context) (int, error) {
	return q.backend.Length(ctx, q.queue)
}

// Items decodes every pending item without removing it. Items that do not
// decode are skipped; their count is returned alongside.
func (q *Queue[T]) Items(ctx context.Context) ([]T, int, error) {
	raw, err := q.backend.Items(ctx, q.queue)
	if err != nil {
		return nil, 0, err
	}
	items := make([]T, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		item, err := store.DecodeData[T](r)
		if err != nil {
			skipped++
			continue
		}
		items = append(items, item)
	}
	return items, skipped, nil
}

// Enqueue appends items in order.
func (q *Queue[T]) Enqueue(ctx context.Context, items ...T) error {
	raw := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		payload, err := store.EncodeData(item)
		if err != nil {
			return err
		}
		raw = append(raw, payload)
	}
	return q.backend.Push(ctx, q.queue, raw...)
}

// Dequeue pops and decodes the oldest item. An item that fails to decode is
// still consumed and reported as a validation error.
func (q *Queue[T]) Dequeue(ctx context.Context) (T, error) {
	raw, err := q.backend.Pop(ctx, q.queue)
	if err != nil {
		var zero T
		return zero, err
	}
	return store.DecodeData[T](raw)
}

// LoopOptions configures Loop.
type LoopOptions struct {
	// Period is the wait after an empty or failed pop.
	Period  time.Duration
	Sleeper Sleeper
	// Replay reads a snapshot of the pending items once and stops, without
	// popping anything.
	Replay bool
	Logger *slog.Logger
}

// Loop yields items as they are dequeued. In normal mode it never ends on its
// own: an empty queue or an unavailable backend waits Period and tries again,
// and the sequence stops only when ctx is done or the consumer breaks. An
// item that fails to decode is yielded with its error so the consumer can log
// it and move on.
func (q *Queue[T]) Loop(ctx context.Context, opts LoopOptions) iter.Seq2[T, error] {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Sleeper == nil {
		opts.Sleeper = timerSleeper{}
	}
	if opts.Replay {
		return q.replay(ctx, logger)
	}
	return func(yield func(T, error) bool) {
		for ctx.Err() == nil {
			item, err := q.Dequeue(ctx)
			switch {
			case err == nil:
				if !yield(item, nil) {
					return
				}
				continue
			case errors.Is(err, services.ErrValidation):
				if !yield(item, err) {
					return
				}
				continue
			case errors.Is(err, services.ErrQueueEmpty):
			default:
				if ctx.Err() != nil {
					return
				}
				logger.Debug("dequeue failed; retrying after period",
					logging.String(logging.FieldQueue, q.Name()),
					logging.Error(err),
				)
			}
			if opts.Sleeper.Sleep(ctx, opts.Period) != nil {
				return
			}
		}
	}
}

func (q *Queue[T]) replay(ctx context.Context, logger *slog.Logger) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		raw, err := q.backend.Items(ctx, q.queue)
		if err != nil {
			logger.Warn("replay snapshot failed",
				logging.String(logging.FieldQueue, q.Name()),
				logging.Error(err),
			)
			return
		}
		for _, r := range raw {
			if ctx.Err() != nil {
				return
			}
			item, err := store.DecodeData[T](r)
			if !yield(item, err) {
				return
			}
		}
	}
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
