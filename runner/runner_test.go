package runner

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestExecCapturesOutput(t *testing.T) {
	var out, err = Exec{}.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo hello $GREETED"},
		Env:  []string{"GREETED=world"},
	})
	require.NoError(t, err)
	require.Equal(t, "hello world\n", string(out))
}

func TestExecNonZeroExit(t *testing.T) {
	var _, err = Exec{}.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo oops >&2; exit 3"},
	})
	require.Error(t, err)

	var wrapped = errors.WithMessage(err, "merging extracts")
	require.Equal(t, "oops\n", string(OutputOf(wrapped)))
	require.Contains(t, wrapped.Error(), "exit status 3")
}

func TestExecKilledOnDeadline(t *testing.T) {
	var ctx, cancel = context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var started = time.Now()
	var _, err = Exec{WaitDelay: time.Second}.Run(ctx, Command{Name: "sleep", Args: []string{"10"}})

	require.Error(t, err)
	require.Equal(t, context.DeadlineExceeded, errors.Cause(err))
	require.True(t, time.Since(started) < 5*time.Second)
}

func TestCommandString(t *testing.T) {
	var cmd = Command{Name: "osmium", Args: []string{"merge", "a.pbf"}, Env: []string{"SECRET=1"}}
	require.Equal(t, "osmium merge a.pbf", cmd.String())
}
