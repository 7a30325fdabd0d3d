// Package task runs groups of independent tasks concurrently.
package task

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Group is a group of independent tasks which are executed concurrently,
// one goroutine per task, and which are collectively blocked on until all
// are complete. Unlike errgroup.WithContext, the failure of one task does
// not cancel the Group: every task runs to completion and Wait returns the
// combination of all task errors. While Group is used to invoke and wait on
// multiple goroutines, it is not itself thread-safe.
type Group struct {
	// Context of the Group, which is cancelled by:
	//  * An explicit call to Cancel, or
	//  * A cancellation of the parent Context of the Group.
	ctx      context.Context
	cancelFn context.CancelFunc

	tasks   []task
	errs    []error
	eg      errgroup.Group
	started bool
}

// task composes a runnable and its description.
type task struct {
	desc string
	fn   func(context.Context) error
}

// NewGroup returns a new, empty Group with the given Context.
func NewGroup(ctx context.Context) *Group {
	ctx, cancel := context.WithCancel(ctx)
	return &Group{ctx: ctx, cancelFn: cancel}
}

// Context returns the Group Context.
func (g *Group) Context() context.Context { return g.ctx }

// Cancel the Group Context.
func (g *Group) Cancel() { g.cancelFn() }

// Len returns the number of queued tasks.
func (g *Group) Len() int { return len(g.tasks) }

// Queue a function for execution with the Group. The function is passed
// the Group Context. Cannot be called after GoRun is invoked or Queue panics.
func (g *Group) Queue(desc string, fn func(context.Context) error) {
	if g.started {
		panic("Queue called after GoRun")
	}
	g.tasks = append(g.tasks, task{desc: desc, fn: fn})
}

// GoRun all queued functions, each in its own goroutine. GoRun may be
// called only once: the second invocation will panic.
func (g *Group) GoRun() {
	if g.started {
		panic("GoRun already called")
	}
	g.started = true
	g.errs = make([]error, len(g.tasks))

	for i := range g.tasks {
		var i, t = i, g.tasks[i]
		g.eg.Go(func() error {
			if err := t.fn(g.ctx); err != nil {
				g.errs[i] = errors.WithMessage(err, t.desc)
			}
			return nil
		})
	}
}

// Wait for started functions, returning only after all complete.
// The returned error combines the errors of all failed tasks, in queue order,
// and is nil if every task succeeded. Use multierr.Errors to inspect them.
// GoRun must have been called or Wait panics.
func (g *Group) Wait() error {
	if !g.started {
		panic("Wait called before GoRun")
	}
	_ = g.eg.Wait()
	g.cancelFn()

	return multierr.Combine(g.errs...)
}
