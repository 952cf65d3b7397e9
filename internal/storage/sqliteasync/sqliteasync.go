// Package sqliteasync is the asynchronous flavour of the SQLite backend.
//
// A single worker goroutine owns the database. Callers hand it jobs over a
// channel and wait for the reply, bounded by their own context: when the
// context expires first the caller gets storage.ErrUnavailable back
// immediately, even if the worker is still busy.
//
// Uniqueness still comes from the UNIQUE constraint in the sqlite package,
// and because every statement runs on the one worker, writes from this
// process are also strictly serialised.
package sqliteasync

import (
	"context"
	"fmt"
	"sync"

	"github.com/aanand-mishra/class-registration/internal/storage"
	"github.com/aanand-mishra/class-registration/internal/storage/sqlite"
	"github.com/aanand-mishra/class-registration/internal/types"
)

// DefaultQueueSize is the number of jobs that may wait for the worker.
const DefaultQueueSize = 64

// Store implements storage.Storage on top of a single-worker queue.
type Store struct {
	inner storage.Storage
	jobs  chan func()
	done  chan struct{}
	wg    sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Store.
type Option func(*config)

type config struct {
	queueSize int
}

// WithQueueSize sets how many jobs may be queued before callers block.
func WithQueueSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// Open opens the SQLite database at path and starts the worker.
func Open(path string, sqliteOpts []sqlite.Option, opts ...Option) (*Store, error) {
	db, err := sqlite.New(path, sqliteOpts...)
	if err != nil {
		return nil, fmt.Errorf("sqliteasync.Open: %w", err)
	}
	return New(db, opts...), nil
}

// New starts a worker that owns inner. The Store takes over inner's
// lifecycle: Close closes it.
func New(inner storage.Storage, opts ...Option) *Store {
	cfg := config{queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Store{
		inner: inner,
		jobs:  make(chan func(), cfg.queueSize),
		done:  make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Store) run() {
	defer s.wg.Done()
	for {
		select {
		case job := <-s.jobs:
			job()
		case <-s.done:
			return
		}
	}
}

type result[T any] struct {
	val T
	err error
}

// call runs fn on the worker and waits for its result or for ctx.
func call[T any](ctx context.Context, s *Store, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	reply := make(chan result[T], 1)
	job := func() {
		// The caller may already have given up; skip the work then.
		if err := ctx.Err(); err != nil {
			reply <- result[T]{err: storage.Unavailable(err)}
			return
		}
		v, err := fn(ctx)
		reply <- result[T]{val: v, err: err}
	}

	select {
	case s.jobs <- job:
	case <-s.done:
		return zero, fmt.Errorf("%s: %w", op, storage.Unavailable(storage.ErrClosed))
	case <-ctx.Done():
		return zero, fmt.Errorf("%s: enqueue: %w", op, storage.Unavailable(ctx.Err()))
	}

	select {
	case r := <-reply:
		return r.val, r.err
	case <-s.done:
		return zero, fmt.Errorf("%s: %w", op, storage.Unavailable(storage.ErrClosed))
	case <-ctx.Done():
		return zero, fmt.Errorf("%s: wait: %w", op, storage.Unavailable(ctx.Err()))
	}
}

// InsertStudent queues the insert on the worker.
func (s *Store) InsertStudent(ctx context.Context, student types.Student) (types.Student, error) {
	return call(ctx, s, "sqliteasync.InsertStudent", func(ctx context.Context) (types.Student, error) {
		return s.inner.InsertStudent(ctx, student)
	})
}

// ListStudents queues the listing on the worker.
func (s *Store) ListStudents(ctx context.Context) ([]types.Student, error) {
	return call(ctx, s, "sqliteasync.ListStudents", s.inner.ListStudents)
}

// Close stops the worker, abandoning queued jobs, and closes the
// underlying store. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.closeErr = s.inner.Close()
	})
	return s.closeErr
}
