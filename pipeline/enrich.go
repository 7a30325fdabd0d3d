package pipeline

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.geoload.dev/core/metrics"
	"go.geoload.dev/core/store"
	"go.geoload.dev/core/task"
	"go.uber.org/multierr"
)

// Enricher runs region update jobs against the store.
type Enricher interface {
	UpdateRegions(ctx context.Context, job store.RegionJob) (int64, error)
}

// EnrichConfig configures the region enrichment of feature tables.
type EnrichConfig struct {
	// Skip enrichment entirely.
	Skip bool
	// Frequency class of regions to update.
	Frequency string
	// Source is the region-boundary reference column.
	Source store.Column
	// Targets are the region attributes of feature tables.
	Targets []store.Column
	// RegionIDs and Boundaries optionally restrict updates of replication
	// cycles. See store.RegionJob.
	RegionIDs  []string
	Boundaries []string
}

// Jobs returns an independent RegionJob for each Target. |changedOnly| jobs
// update only rows written since the last update, and apply the region and
// boundary filters of the config.
func (cfg EnrichConfig) Jobs(changedOnly bool) []store.RegionJob {
	if cfg.Skip {
		return nil
	}
	var jobs = make([]store.RegionJob, 0, len(cfg.Targets))

	for _, t := range cfg.Targets {
		var job = store.RegionJob{
			Target:      t,
			Source:      cfg.Source,
			Frequency:   cfg.Frequency,
			ChangedOnly: changedOnly,
		}
		if changedOnly {
			job.RegionIDs = cfg.RegionIDs
			job.Boundaries = cfg.Boundaries
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// Dispatch runs |jobs|. Multiple jobs run concurrently, one goroutine per job,
// and Dispatch returns only after all have completed. The failure of a job
// doesn't affect others. If |soft|, failures are logged and Dispatch returns
// nil. Otherwise the combined EnrichmentJobErrors of failed jobs are returned.
func Dispatch(ctx context.Context, e Enricher, jobs []store.RegionJob, soft bool) error {
	var err error

	switch len(jobs) {
	case 0:
		log.Info("no enrichment jobs to run")
		return nil
	case 1:
		err = runJob(ctx, e, jobs[0])
	default:
		var g = task.NewGroup(ctx)
		for _, job := range jobs {
			var job = job
			g.Queue("region update", func(ctx context.Context) error {
				return runJob(ctx, e, job)
			})
		}
		g.GoRun()
		err = g.Wait()
	}

	if err == nil || !soft {
		return err
	}
	for _, jobErr := range multierr.Errors(err) {
		log.WithFields(log.Fields{
			"err":    jobErr,
			"output": Output(jobErr),
		}).Warn("enrichment job failed; continuing")
	}
	return nil
}

func runJob(ctx context.Context, e Enricher, job store.RegionJob) error {
	var started = time.Now()
	var n, err = e.UpdateRegions(ctx, job)

	if err != nil {
		metrics.EnrichmentJobsTotal.WithLabelValues(job.Target.Table, metrics.Fail).Inc()
		return &EnrichmentJobError{Table: job.Target.Table, Err: err}
	}

	metrics.EnrichmentJobsTotal.WithLabelValues(job.Target.Table, metrics.Ok).Inc()
	metrics.EnrichedRowsTotal.WithLabelValues(job.Target.Table).Add(float64(n))
	log.WithFields(log.Fields{
		"table":       job.Target.Table,
		"frequency":   job.Frequency,
		"changedOnly": job.ChangedOnly,
		"rows":        n,
		"elapsed":     time.Since(started),
	}).Info("enrichment job complete")

	return nil
}
