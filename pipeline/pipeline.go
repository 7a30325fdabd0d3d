// Package pipeline orchestrates the import of geospatial extracts into a
// spatial store: acquisition, merge, bulk-load, indexing, region enrichment
// and replication. Each stage is gated on the presence of its predecessor's
// output, and expensive stages are skipped if their output already exists,
// so a Pipeline may be safely re-run.
//
// Failures of setup stages (acquisition, merge, load, indexing and initial
// enrichment) are fatal and abort the Pipeline. Failures of steady-state
// replication cycles, and of the enrichment which follows them, are logged
// and swallowed.
package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.geoload.dev/core/metrics"
	"go.geoload.dev/core/runner"
	"go.geoload.dev/core/store"
)

// Resolver resolves source references to local extracts.
type Resolver interface {
	Resolve(ctx context.Context, refs []string) ([]string, error)
}

// Phases select the work done by a Pipeline run.
type Phases struct {
	// Insert runs a full import: acquisition through post-indexing.
	Insert bool
	// Update runs a single replication update cycle.
	Update bool
	// RegionUpdate runs only the enrichment of all rows.
	RegionUpdate bool
	// PostIndex runs only the post-enrichment index script.
	PostIndex bool
}

// Config of a Pipeline.
type Config struct {
	Sources     []string
	Phases      Phases
	Merge       MergeConfig
	Load        LoadConfig
	Enrich      EnrichConfig
	Replication ReplicationConfig
}

// Pipeline composes a Config with the collaborators of its stages.
type Pipeline struct {
	Config   Config
	Resolver Resolver
	Runner   runner.Runner
	Fs       afero.Fs
	Scripts  ScriptRunner
	Enricher Enricher
}

// Run the selected Phases of the Pipeline, returning the first fatal error.
func (p *Pipeline) Run(ctx context.Context) error {
	var ph = p.Config.Phases

	if ph.Insert {
		if err := p.insert(ctx); err != nil {
			return err
		}
	} else {
		if ph.RegionUpdate {
			if err := p.stage("enrich", func() error {
				return Dispatch(ctx, p.Enricher, p.Config.Enrich.Jobs(false), false)
			}); err != nil {
				return err
			}
		}
		if ph.PostIndex {
			if err := p.stage("post-index", func() error {
				return ApplyScript(ctx, p.Scripts, store.ScriptPostIndex)
			}); err != nil {
				return err
			}
		}
	}

	if ph.Update || (ph.Insert && p.Config.Replication.Enabled) {
		_ = p.stage("replication-update", func() error {
			UpdateReplication(ctx, p.Runner, p.Config.Replication, p.Config.Load, func(ctx context.Context) {
				_ = Dispatch(ctx, p.Enricher, p.Config.Enrich.Jobs(true), true)
			})
			return nil
		})
	}
	return nil
}

// insert runs a full import of the configured Sources.
func (p *Pipeline) insert(ctx context.Context) error {
	var extracts []string
	var extract string

	var steps = []struct {
		name string
		fn   func() error
	}{
		{"acquire", func() (err error) {
			extracts, err = p.Resolver.Resolve(ctx, p.Config.Sources)
			return
		}},
		{"merge", func() (err error) {
			extract, err = Merge(ctx, p.Runner, p.Fs, p.Config.Merge, extracts)
			return
		}},
		{"load", func() error {
			return Load(ctx, p.Runner, p.Config.Load, extract)
		}},
		{"pre-index", func() error {
			return ApplyScript(ctx, p.Scripts, store.ScriptPreIndex)
		}},
		{"boundaries", func() error {
			return ApplyScript(ctx, p.Scripts, store.ScriptBoundaries)
		}},
		{"replication-init", func() error {
			if !p.Config.Replication.Enabled {
				return nil
			}
			return InitReplication(ctx, p.Runner, p.Config.Replication, p.Config.Load, extract)
		}},
		{"enrich", func() error {
			return Dispatch(ctx, p.Enricher, p.Config.Enrich.Jobs(false), false)
		}},
		{"users", func() error {
			return ApplyScript(ctx, p.Scripts, store.ScriptUsers)
		}},
		{"post-index", func() error {
			return ApplyScript(ctx, p.Scripts, store.ScriptPostIndex)
		}},
	}

	for _, s := range steps {
		if err := p.stage(s.name, s.fn); err != nil {
			return err
		}
	}
	return nil
}

// stage runs |fn| as the named stage, logging and observing its duration.
func (p *Pipeline) stage(name string, fn func() error) error {
	var started = time.Now()
	log.WithField("stage", name).Debug("starting stage")

	var err = fn()
	var elapsed = time.Since(started)

	if err != nil {
		metrics.StageDurationSeconds.WithLabelValues(name, metrics.Fail).Observe(elapsed.Seconds())
		return errors.WithMessagef(err, "stage %s", name)
	}
	metrics.StageDurationSeconds.WithLabelValues(name, metrics.Ok).Observe(elapsed.Seconds())
	log.WithFields(log.Fields{"stage": name, "elapsed": elapsed}).Info("stage complete")

	return nil
}
