package main

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.geoload.dev/core/acquire"
	mbp "go.geoload.dev/core/mainboilerplate"
	"go.geoload.dev/core/pipeline"
	"go.geoload.dev/core/runner"
	"go.geoload.dev/core/store"
)

type sourceConfig struct {
	Refs       []string `long:"ref" description:"Local path or remote URL of an extract. May be repeated; extracts are merged in the given order"`
	Dir        string   `long:"dir" env:"DIR" default:"/var/lib/geoload" description:"Directory into which remote extracts are downloaded"`
	AuthHelper string   `long:"auth-helper" env:"AUTH_HELPER" default:"oauth_cookie_client" description:"Program which exchanges remote host credentials for a session cookie"`
	CookieURL  string   `long:"cookie-url" env:"COOKIE_URL" description:"Login endpoint passed to the authentication helper"`
	Cookie     string   `long:"cookie" env:"COOKIE" description:"Session cookie of the remote host. If set, the authentication helper isn't run"`
}

type cmdRun struct {
	Source sourceConfig        `group:"Source" namespace:"source" env-namespace:"SOURCE"`
	Remote acquire.Credentials `group:"Remote Host" namespace:"osm"`

	Loader struct {
		Program   string   `long:"bin" env:"BIN" default:"osm2pgsql" description:"Bulk-loader program"`
		Merger    string   `long:"merger" env:"MERGER" default:"osmium" description:"Program which merges multiple extracts"`
		StyleDir  string   `long:"style-dir" env:"STYLE_DIR" default:"/usr/share/geoload" description:"Directory of loader style scripts"`
		KeepRefs  bool     `long:"keep-refs" env:"KEEP_REFS" description:"Retain way node and relation member references"`
		Prefix    string   `long:"prefix" env:"PREFIX" default:"planet_osm" description:"Prefix of store tables"`
		FlatNodes string   `long:"flat-nodes" env:"FLAT_NODES" description:"Path of the loader's external node cache file"`
		Cache     int      `long:"cache" env:"CACHE" default:"0" description:"Loader node cache size, in megabytes. Zero uses the loader's default"`
		Params    []string `long:"param" description:"Additional loader parameters, passed through verbatim. May be repeated"`
	} `group:"Loader" namespace:"loader" env-namespace:"LOADER"`

	Enrich struct {
		EnrichConfig
		Skip bool `long:"skip" env:"SKIP" description:"Skip region enrichment"`
	} `group:"Enrichment" namespace:"enrich" env-namespace:"ENRICH"`

	Replication struct {
		Enable      bool          `long:"enable" env:"ENABLE" description:"Initialize replication after a load, and run update cycles"`
		Program     string        `long:"bin" env:"BIN" default:"osm2pgsql-replication" description:"Replication helper program"`
		Server      string        `long:"server" env:"SERVER" description:"Replication server URL. Derived from the extract if not set"`
		MaxDiffSize int           `long:"max-diff-size" env:"MAX_DIFF_SIZE" default:"500" description:"Maximum size of changes applied by one update cycle, in megabytes"`
		Timeout     time.Duration `long:"timeout" env:"TIMEOUT" default:"1h" description:"Upper bound of an update cycle, after which it's killed. Zero or less uses the default of one hour"`
	} `group:"Replication" namespace:"replication" env-namespace:"REPLICATION"`

	Insert       bool `long:"insert" description:"Run a full import of the source extracts"`
	Update       bool `long:"update" description:"Run a single replication update cycle"`
	RegionUpdate bool `long:"region-update" description:"Only update the region attribute of all features"`
	PostIndex    bool `long:"post-index" description:"Only apply post-enrichment indexes"`
}

func (cmd *cmdRun) Execute([]string) error {
	defer mbp.InitDiagnosticsAndRecover(Config.Diagnostics)()
	startup()

	var started = time.Now()

	if !cmd.Insert && !cmd.Update && !cmd.RegionUpdate && !cmd.PostIndex {
		return errors.New("no phase selected: use one or more of --insert, --update, --region-update, --post-index")
	} else if cmd.Insert && len(cmd.Source.Refs) == 0 {
		return errors.New("--insert requires at least one --source.ref")
	}

	var fs = afero.NewOsFs()
	boundaries, err := loadBoundaries(fs, cmd.Enrich.Boundaries)
	if err != nil {
		return err
	}

	var db = Config.Postgres.MustOpen()
	defer db.Close()

	st, err := store.New(db, cmd.Loader.Prefix)
	if err != nil {
		return err
	}
	var run = runner.Exec{WaitDelay: 10 * time.Second}
	var env = Config.Postgres.Environ()

	var targets []store.Column
	for _, t := range st.Tables() {
		targets = append(targets, store.Column{Table: t, Column: "region", Geometry: "way"})
	}

	var p = &pipeline.Pipeline{
		Config: pipeline.Config{
			Sources: cmd.Source.Refs,
			Phases: pipeline.Phases{
				Insert:       cmd.Insert,
				Update:       cmd.Update,
				RegionUpdate: cmd.RegionUpdate,
				PostIndex:    cmd.PostIndex,
			},
			Merge: pipeline.MergeConfig{
				Program: cmd.Loader.Merger,
				Output:  mergedPath(cmd.Source.Dir),
			},
			Load: pipeline.LoadConfig{
				Program:     cmd.Loader.Program,
				StyleDir:    cmd.Loader.StyleDir,
				KeepRefs:    cmd.Loader.KeepRefs,
				Prefix:      cmd.Loader.Prefix,
				FlatNodes:   cmd.Loader.FlatNodes,
				Cache:       cmd.Loader.Cache,
				Params:      cmd.Loader.Params,
				Replication: cmd.Replication.Enable,
				Env:         env,
			},
			Enrich: pipeline.EnrichConfig{
				Skip:       cmd.Enrich.Skip,
				Frequency:  cmd.Enrich.Frequency,
				Source:     store.Column{Table: st.BoundariesTable(), Column: "iso_code", Geometry: "geom"},
				Targets:    targets,
				RegionIDs:  cmd.Enrich.RegionIDs,
				Boundaries: boundaries,
			},
			Replication: pipeline.ReplicationConfig{
				Enabled:     cmd.Replication.Enable,
				Program:     cmd.Replication.Program,
				Server:      cmd.Replication.Server,
				MaxDiffSize: cmd.Replication.MaxDiffSize,
				Timeout:     cmd.Replication.Timeout,
				Env:         env,
			},
		},
		Resolver: newResolver(fs, run, cmd.Source, cmd.Remote),
		Runner:   run,
		Fs:       fs,
		Scripts:  st,
		Enricher: st,
	}

	var ctx, cancel = signalContext()
	defer cancel()

	if err = p.Run(ctx); err != nil {
		log.WithFields(log.Fields{
			"err":    err,
			"output": pipeline.Output(err),
		}).Error("pipeline failed")
		return err
	}
	printElapsed(started)
	return nil
}
