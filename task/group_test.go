package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestAllTasksCompleteDespiteFailures(t *testing.T) {
	var g = NewGroup(context.Background())
	var completed atomic.Int32

	g.Queue("first", func(context.Context) error {
		return errors.New("whoops")
	})
	for i := 0; i != 3; i++ {
		g.Queue("slow", func(ctx context.Context) error {
			select {
			case <-time.After(20 * time.Millisecond):
				completed.Add(1)
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	g.Queue("last", func(context.Context) error {
		return errors.New("also whoops")
	})
	require.Equal(t, 5, g.Len())

	g.GoRun()
	var err = g.Wait()

	require.Equal(t, int32(3), completed.Load())
	require.Equal(t, []string{"first: whoops", "last: also whoops"}, errStrings(multierr.Errors(err)))
	require.Error(t, g.Context().Err()) // Cancelled upon Wait.
}

func TestTasksRunConcurrently(t *testing.T) {
	var g = NewGroup(context.Background())
	var barrier = make(chan struct{})

	// Each task blocks until all have started, which deadlocks
	// unless there's a goroutine per task.
	var started atomic.Int32
	for i := 0; i != 4; i++ {
		g.Queue("task", func(context.Context) error {
			if started.Add(1) == 4 {
				close(barrier)
			}
			<-barrier
			return nil
		})
	}
	g.GoRun()
	require.NoError(t, g.Wait())
}

func TestCancelIsObservedByTasks(t *testing.T) {
	var g = NewGroup(context.Background())
	g.Queue("waits", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	g.GoRun()
	g.Cancel()

	require.EqualError(t, g.Wait(), "waits: context canceled")
}

func TestMisuse(t *testing.T) {
	var g = NewGroup(context.Background())
	require.Panics(t, func() { _ = g.Wait() })

	g.GoRun()
	require.Panics(t, func() { g.GoRun() })
	require.Panics(t, func() { g.Queue("late", nil) })
	require.NoError(t, g.Wait())
}

func errStrings(errs []error) []string {
	var out []string
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}
