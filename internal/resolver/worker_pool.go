package resolver

import (
	"context"
	"fmt"
	"sync"
)

type task func(ctx context.Context)

// WorkerPool runs queued resolution tasks on a fixed set of workers. Every
// task drives a full browser session, so concurrency stays in the low single
// digits and the bounded queue gives the API edge backpressure instead of an
// unbounded goroutine pileup.
type WorkerPool struct {
	runCtx context.Context
	stop   context.CancelFunc
	queue  chan task

	closing sync.Once
	drained sync.WaitGroup
}

// NewWorkerPool starts the workers immediately. Tasks receive a context that
// ends when the pool closes, not the submitter's.
func NewWorkerPool(parent context.Context, workers, queueDepth int) (*WorkerPool, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("worker count must be positive (got %d)", workers)
	}
	if queueDepth <= 0 {
		return nil, fmt.Errorf("queue depth must be positive (got %d)", queueDepth)
	}
	runCtx, stop := context.WithCancel(parent)
	p := &WorkerPool{
		runCtx: runCtx,
		stop:   stop,
		queue:  make(chan task, queueDepth),
	}
	p.drained.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p, nil
}

func (p *WorkerPool) work() {
	defer p.drained.Done()
	for {
		select {
		case <-p.runCtx.Done():
			return
		case t, ok := <-p.queue:
			if !ok {
				return
			}
			t(p.runCtx)
		}
	}
}

// Submit enqueues a task. It blocks while the queue is full and fails once
// the submitter's context or the pool ends.
func (p *WorkerPool) Submit(ctx context.Context, t task) error {
	if t == nil {
		return fmt.Errorf("nil task")
	}
	select {
	case <-p.runCtx.Done():
		return fmt.Errorf("worker pool stopped: %w", p.runCtx.Err())
	case <-ctx.Done():
		return ctx.Err()
	case p.queue <- t:
		return nil
	}
}

// Close stops the workers and waits for the ones mid-task to return. Safe to
// call more than once.
func (p *WorkerPool) Close() {
	p.closing.Do(func() {
		p.stop()
		close(p.queue)
	})
	p.drained.Wait()
}
