package pipeline

import (
	"context"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"go.geoload.dev/core/metrics"
	"go.geoload.dev/core/runner"
)

// DefaultReplicationTimeout bounds an update cycle having no configured Timeout.
const DefaultReplicationTimeout = time.Hour

// ReplicationConfig configures the replication helper.
type ReplicationConfig struct {
	// Enabled initializes replication after a load, and runs an update
	// cycle after the initial import.
	Enabled bool
	// Program is the replication helper, supporting "init" and "update".
	Program string
	// Server is an optional upstream replication server. If empty, the
	// helper derives it from the loaded extract.
	Server string
	// MaxDiffSize caps the size of a single update cycle, in megabytes.
	MaxDiffSize int
	// Timeout bounds a single update cycle. The helper is killed upon its
	// expiry, and the cycle is treated as failed. If zero or negative,
	// DefaultReplicationTimeout applies.
	Timeout time.Duration
	// Env of the helper process, which carries store connection parameters.
	Env []string
}

// InitArgs returns the helper arguments which initialize replication
// of a store loaded from |extract|.
func InitArgs(rc ReplicationConfig, lc LoadConfig, extract string) []string {
	var args = []string{"init", "--prefix", lc.Prefix}
	if rc.Server != "" {
		args = append(args, "--server", rc.Server)
	} else {
		args = append(args, "--osm-file", extract)
	}
	return args
}

// UpdateArgs returns the helper arguments of a single, bounded update cycle.
// Arguments following "--" are passed through to the bulk-loader.
func UpdateArgs(rc ReplicationConfig, lc LoadConfig) []string {
	var args = []string{
		"update",
		"--prefix", lc.Prefix,
		"--once",
		"--max-diff-size", strconv.Itoa(rc.MaxDiffSize),
		"--osm2pgsql-cmd", lc.Program,
		"--",
	}
	return append(args, lc.appendArgs()...)
}

// InitReplication establishes a fresh replication cursor against a store
// which was just loaded from |extract|. Failure is fatal.
func InitReplication(ctx context.Context, run runner.Runner, rc ReplicationConfig, lc LoadConfig, extract string) error {
	log.WithField("extract", extract).Info("initializing replication")

	if _, err := run.Run(ctx, runner.Command{
		Name: rc.Program,
		Args: InitArgs(rc, lc, extract),
		Env:  rc.Env,
	}); err != nil {
		return &LoadError{Err: err}
	}
	return nil
}

// UpdateReplication applies at most one bounded increment of upstream
// changes, within the configured Timeout, and then invokes |enrich| to update
// changed rows. Failures are logged and never returned: a failed cycle is
// retried by the next scheduled invocation.
func UpdateReplication(ctx context.Context, run runner.Runner, rc ReplicationConfig, lc LoadConfig, enrich func(context.Context)) {
	var timeout = rc.Timeout
	if timeout <= 0 {
		timeout = DefaultReplicationTimeout
	}
	var cycleCtx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	var started = time.Now()
	log.WithFields(log.Fields{
		"maxDiffSize": rc.MaxDiffSize,
		"timeout":     timeout,
	}).Info("running replication cycle")

	var _, err = run.Run(cycleCtx, runner.Command{
		Name: rc.Program,
		Args: UpdateArgs(rc, lc),
		Env:  rc.Env,
	})
	if err != nil {
		var cycleErr = &ReplicationCycleError{Err: err}
		metrics.ReplicationCyclesTotal.WithLabelValues(metrics.Fail).Inc()

		log.WithFields(log.Fields{
			"err":     cycleErr,
			"output":  Output(err),
			"elapsed": time.Since(started),
		}).Warn("replication cycle failed; will retry on next invocation")
		return
	}

	metrics.ReplicationCyclesTotal.WithLabelValues(metrics.Ok).Inc()
	log.WithField("elapsed", time.Since(started)).Info("replication cycle complete")

	if enrich != nil {
		enrich(ctx)
	}
}
