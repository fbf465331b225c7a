package backends

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// DefaultWorkers is the pool size of the shared executor.
const DefaultWorkers = 4

// ErrExecutorClosed is reported to tasks submitted after Close.
var ErrExecutorClosed = errors.New("executor closed")

// TaskFunc is one unit of work run by the Executor
type TaskFunc func(ctx context.Context) (*SearchResult, error)

// Executor runs searches on a fixed set of worker goroutines. Submit never
// blocks: when the queue is full the task gets a goroutine of its own.
type Executor struct {
	tasks  chan *task
	wg     conc.WaitGroup
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

type task struct {
	id     uuid.UUID
	ctx    context.Context
	fn     TaskFunc
	future *Future
}

var (
	defaultExecutorOnce sync.Once
	defaultExecutor     *Executor
)

// DefaultExecutor returns the process-wide executor used by clients built
// without WithExecutor. It is never closed.
func DefaultExecutor() *Executor {
	defaultExecutorOnce.Do(func() {
		defaultExecutor = NewExecutor(DefaultWorkers, zerolog.Nop())
	})
	return defaultExecutor
}

// NewExecutor starts workers goroutines (at least one).
func NewExecutor(workers int, logger zerolog.Logger) *Executor {
	if workers < 1 {
		workers = 1
	}
	e := &Executor{
		tasks:  make(chan *task, workers*8),
		logger: logger.With().Str("component", "executor").Logger(),
	}
	for i := 0; i < workers; i++ {
		e.wg.Go(e.worker)
	}
	return e
}

// Submit queues fn and returns its Future.
func (e *Executor) Submit(ctx context.Context, fn TaskFunc) *Future {
	return e.submit(ctx, fn, nil)
}

// submit is Submit with an error mapper applied to every failure the Future
// reports, including cancellation before the task ran, panics and Close.
func (e *Executor) submit(ctx context.Context, fn TaskFunc, normalize func(error) error) *Future {
	f := newFuture(e.logger)
	f.normalize = normalize
	t := &task{
		id:     uuid.New(),
		ctx:    ctx,
		fn:     fn,
		future: f,
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		go t.future.complete(nil, ErrExecutorClosed)
		return t.future
	}

	select {
	case e.tasks <- t:
		e.logger.Debug().Str("task", t.id.String()).Msg("Task queued")
	default:
		e.logger.Debug().Str("task", t.id.String()).Msg("Queue full, running task on its own goroutine")
		go e.run(t)
	}
	return t.future
}

// Close stops accepting tasks and waits for queued ones to finish.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.tasks)
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *Executor) worker() {
	for t := range e.tasks {
		e.run(t)
	}
}

func (e *Executor) run(t *task) {
	if err := t.ctx.Err(); err != nil {
		t.future.complete(nil, err)
		return
	}

	var (
		result *SearchResult
		err    error
		pc     panics.Catcher
	)
	pc.Try(func() { result, err = t.fn(t.ctx) })
	if r := pc.Recovered(); r != nil {
		e.logger.Error().Str("task", t.id.String()).Msg("Task panicked")
		result, err = nil, r.AsError()
	}
	if err == nil && result == nil {
		err = errors.New("task returned no result")
	}
	t.future.complete(result, err)
}

// Future is the pending outcome of a submitted task. It completes once.
type Future struct {
	done      chan struct{}
	once      sync.Once
	logger    zerolog.Logger
	normalize func(error) error

	mu        sync.Mutex
	result    *SearchResult
	err       error
	callbacks []Callback
}

func newFuture(logger zerolog.Logger) *Future {
	return &Future{
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Then registers cb. If the future has already completed, cb runs on a new
// goroutine rather than on the caller's.
func (f *Future) Then(cb Callback) {
	f.mu.Lock()
	select {
	case <-f.done:
		result, err := f.result, f.err
		f.mu.Unlock()
		go f.deliver(cb, result, err)
		return
	default:
	}
	f.callbacks = append(f.callbacks, cb)
	f.mu.Unlock()
}

// Wait blocks until the task finishes or ctx is done.
func (f *Future) Wait(ctx context.Context) (*SearchResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, f.mapError(ctx.Err())
	}
}

func (f *Future) mapError(err error) error {
	if err == nil || f.normalize == nil {
		return err
	}
	return f.normalize(err)
}

// Done is closed when the task has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

func (f *Future) complete(result *SearchResult, err error) {
	err = f.mapError(err)
	f.once.Do(func() {
		f.mu.Lock()
		f.result, f.err = result, err
		callbacks := f.callbacks
		f.callbacks = nil
		close(f.done)
		f.mu.Unlock()

		for _, cb := range callbacks {
			f.deliver(cb, result, err)
		}
	})
}

func (f *Future) deliver(cb Callback, result *SearchResult, err error) {
	var pc panics.Catcher
	pc.Try(func() {
		if err != nil {
			cb.OnFailure(err)
		} else {
			cb.OnSuccess(result)
		}
	})
	if r := pc.Recovered(); r != nil {
		f.logger.Error().Err(r.AsError()).Msg("Search callback panicked")
	}
}
