package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	mbp "go.geoload.dev/core/mainboilerplate"
	"go.geoload.dev/core/pipeline"
	"go.geoload.dev/core/store"
)

type cmdUpdateRegions struct {
	EnrichConfig

	Targets     []string `long:"target" required:"true" description:"Target table:column:geometry to update. May be repeated"`
	Source      string   `long:"source" required:"true" description:"Source table:column:geometry of region boundaries"`
	ChangedOnly bool     `long:"changed-only" description:"Update only rows whose target column is NULL, restricted by --region-id and --boundary"`
}

func (cmd *cmdUpdateRegions) Execute([]string) error {
	defer mbp.InitDiagnosticsAndRecover(Config.Diagnostics)()
	startup()

	var started = time.Now()
	var cfg, err = cmd.enrichConfig()
	if err != nil {
		return err
	}

	var db = Config.Postgres.MustOpen()
	defer db.Close()

	// Tables are fully qualified by --target and --source.
	var st = &store.Store{DB: db}

	var ctx, cancel = signalContext()
	defer cancel()

	if err = pipeline.Dispatch(ctx, st, cfg.Jobs(cmd.ChangedOnly), false); err != nil {
		return err
	}
	printElapsed(started)
	return nil
}

func (cmd *cmdUpdateRegions) enrichConfig() (pipeline.EnrichConfig, error) {
	var cfg = pipeline.EnrichConfig{
		Frequency: cmd.Frequency,
		RegionIDs: cmd.RegionIDs,
	}
	var err error

	if cfg.Source, err = store.ParseColumn(cmd.Source); err != nil {
		return cfg, errors.WithMessage(err, "--source")
	}
	for _, t := range cmd.Targets {
		var c, err = store.ParseColumn(t)
		if err != nil {
			return cfg, errors.WithMessage(err, "--target")
		}
		cfg.Targets = append(cfg.Targets, c)
	}
	if cfg.Boundaries, err = loadBoundaries(afero.NewOsFs(), cmd.Boundaries); err != nil {
		return cfg, err
	}
	return cfg, nil
}
