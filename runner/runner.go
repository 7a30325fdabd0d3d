// Package runner invokes the external collaborator programs of a pipeline:
// the bulk-loader, the extract merger, and the replication and authentication
// helpers. Callers depend on the Runner interface, which tests substitute
// with runnertest.Recorder.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Command is a single invocation of an external program.
type Command struct {
	// Name of the program, resolved through $PATH if not a path.
	Name string
	// Args passed to the program.
	Args []string
	// Env is appended to the environment of the current process.
	// Collaborators receive configuration this way rather than through
	// mutation of the process-wide environment.
	Env []string
	// Dir is the working directory of the program. If empty, the current
	// working directory is used.
	Dir string
}

// String returns the command line of the Command. Env is never included,
// as it may carry credentials.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner runs a Command to completion, returning its combined output.
// A non-nil error is returned if the Command could not be started, exited
// with non-zero status, or was killed due to |ctx| cancellation.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// Error is returned by Exec for Commands which failed.
type Error struct {
	Command Command
	// Output captured from the Command's stdout and stderr.
	Output []byte
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Command.Name, e.Err)
}

// Cause returns the underlying error, for compatibility with errors.Cause.
func (e *Error) Cause() error { return e.Err }

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// OutputOf returns the captured output of |err|, if it (or a cause of it)
// is an *Error, or nil otherwise.
func OutputOf(err error) []byte {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Output
		}
		var c, ok = err.(interface{ Cause() error })
		if !ok {
			return nil
		}
		err = c.Cause()
	}
	return nil
}

// Exec is a Runner of local processes.
type Exec struct {
	// WaitDelay bounds the time to wait for output pipes to close after
	// the process is killed by context cancellation.
	WaitDelay time.Duration
}

// Run the Command as a child process. Output is captured and, at debug
// log level, is also passed through to stderr as it's produced.
func (e Exec) Run(ctx context.Context, cmd Command) ([]byte, error) {
	var c = exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)
	c.WaitDelay = e.WaitDelay

	var buf bytes.Buffer
	var w io.Writer = &buf

	if log.IsLevelEnabled(log.DebugLevel) {
		w = io.MultiWriter(&buf, os.Stderr)
	}
	c.Stdout, c.Stderr = w, w

	log.WithField("cmd", cmd.String()).Debug("running command")
	var started = time.Now()

	var err = c.Run()
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
		err = errors.WithMessage(ctxErr, err.Error())
	}

	log.WithFields(log.Fields{
		"cmd":     cmd.Name,
		"elapsed": time.Since(started),
		"err":     err,
	}).Debug("command finished")

	if err != nil {
		return buf.Bytes(), &Error{Command: cmd, Output: buf.Bytes(), Err: err}
	}
	return buf.Bytes(), nil
}

var _ Runner = Exec{}
