// Package runnertest provides a runner.Runner which records invocations
// and returns scripted results, for testing code which runs external programs.
package runnertest

import (
	"context"
	"strings"
	"sync"

	"go.geoload.dev/core/runner"
)

// HandlerFunc produces the result of a recorded Command.
type HandlerFunc func(ctx context.Context, cmd runner.Command) ([]byte, error)

// Recorder is a runner.Runner which records each Command it's asked to run.
// Commands are dispatched to the first registered handler whose prefix
// matches the Command's command line. Unmatched Commands are dispatched to
// Default or, if it's nil, succeed with empty output. Recorder is safe for
// concurrent use.
type Recorder struct {
	// Default handles Commands not matched by a registered handler.
	Default HandlerFunc

	mu       sync.Mutex
	calls    []runner.Command
	handlers []handler
}

type handler struct {
	prefix string
	fn     HandlerFunc
}

// On registers a HandlerFunc for Commands having the command line |prefix|.
func (r *Recorder) On(prefix string, fn HandlerFunc) *Recorder {
	r.mu.Lock()
	r.handlers = append(r.handlers, handler{prefix: prefix, fn: fn})
	r.mu.Unlock()
	return r
}

// Fail registers a handler which fails Commands having the command line
// |prefix| with the given output and error.
func (r *Recorder) Fail(prefix, output string, err error) *Recorder {
	return r.On(prefix, func(_ context.Context, cmd runner.Command) ([]byte, error) {
		return []byte(output), &runner.Error{Command: cmd, Output: []byte(output), Err: err}
	})
}

// Run records the Command and dispatches it to a matching handler.
func (r *Recorder) Run(ctx context.Context, cmd runner.Command) ([]byte, error) {
	var line = cmd.String()

	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	var fn HandlerFunc
	for _, h := range r.handlers {
		if strings.HasPrefix(line, h.prefix) {
			fn = h.fn
			break
		}
	}
	if fn == nil {
		fn = r.Default
	}
	r.mu.Unlock()

	if fn == nil {
		return nil, nil
	}
	return fn(ctx, cmd)
}

// Calls returns all recorded Commands, in invocation order.
func (r *Recorder) Calls() []runner.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]runner.Command(nil), r.calls...)
}

// Lines returns the command lines of recorded Commands, in invocation order.
func (r *Recorder) Lines() []string {
	var out []string
	for _, c := range r.Calls() {
		out = append(out, c.String())
	}
	return out
}

// Count returns the number of recorded Commands having the command line |prefix|.
func (r *Recorder) Count(prefix string) int {
	var n int
	for _, l := range r.Lines() {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

var _ runner.Runner = (*Recorder)(nil)
