package archive

import (
	"context"
	"sync"

	"github.com/teacon/eldbook/internal/resource"
)

// Executor runs archival tasks.
type Executor interface {
	// Go schedules task. It must not wait for task to finish unless the
	// executor is synchronous by contract.
	Go(task func(ctx context.Context))
}

// Inline runs every task synchronously on the calling goroutine.
type Inline struct{}

// Go implements Executor.
func (Inline) Go(task func(ctx context.Context)) { task(context.Background()) }

// Pool runs tasks on goroutines, bounded by the controller's background
// worker slots.
type Pool struct {
	rc     *resource.Controller
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a pool. A nil controller means one task at a time.
func NewPool(rc *resource.Controller) *Pool {
	if rc == nil {
		rc = resource.NewController(resource.Config{})
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{rc: rc, ctx: ctx, cancel: cancel}
}

// Go implements Executor. Tasks still waiting for a slot when the pool is
// closed run without one on the canceled context, so they can report the
// cancellation; their raw files stay on disk for Recover.
func (p *Pool) Go(task func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.rc.AcquireBackground(p.ctx); err != nil {
			task(p.ctx)
			return
		}
		defer p.rc.ReleaseBackground()
		task(p.ctx)
	}()
}

// Wait blocks until every scheduled task returned or ctx is done.
func (p *Pool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel cancels in-flight tasks without waiting for them. A task blocked
// in IO returns once that IO does; its raw file stays on disk.
func (p *Pool) Cancel() { p.cancel() }

// Close cancels in-flight tasks and waits for them to return.
func (p *Pool) Close() {
	p.cancel()
	p.wg.Wait()
}
