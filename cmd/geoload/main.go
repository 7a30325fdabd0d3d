package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"go.geoload.dev/core/acquire"
	mbp "go.geoload.dev/core/mainboilerplate"
	"go.geoload.dev/core/metrics"
	"go.geoload.dev/core/pipeline"
	"go.geoload.dev/core/runner"
	"go.geoload.dev/core/store"
)

const iniFilename = "geoload.ini"

// Config is the top-level configuration object of geoload.
var Config = new(struct {
	Postgres    mbp.PostgresConfig    `group:"Postgres" namespace:"pg"`
	Log         mbp.LogConfig         `group:"Logging" namespace:"log" env-namespace:"LOG"`
	Diagnostics mbp.DiagnosticsConfig `group:"Debug" namespace:"debug" env-namespace:"DEBUG"`
})

// EnrichConfig is common configuration of region enrichment.
type EnrichConfig struct {
	Frequency  string   `long:"frequency" env:"FREQUENCY" default:"daily" choice:"always" choice:"daily" choice:"weekly" choice:"monthly" description:"Update frequency class of regions to enrich"`
	RegionIDs  []string `long:"region-id" description:"Restrict replication enrichment to regions having this ISO code. May be repeated"`
	Boundaries []string `long:"boundary" description:"Restrict replication enrichment to rows intersecting this .poly boundary file. May be repeated"`
}

func startup() {
	mbp.InitLog(Config.Log)
	prometheus.MustRegister(metrics.GeoloadCollectors()...)
}

// signalContext returns a Context which is cancelled upon SIGTERM or SIGINT.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// loadBoundaries parses .poly boundary files into WKT geometries.
func loadBoundaries(fs afero.Fs, paths []string) ([]string, error) {
	var out []string
	for _, path := range paths {
		var f, err = fs.Open(path)
		if err != nil {
			return nil, err
		}
		wkt, err := store.ParsePoly(f)
		_ = f.Close()

		if err != nil {
			return nil, errors.WithMessagef(err, "parsing boundary %s", path)
		}
		out = append(out, wkt)
	}
	return out, nil
}

func main() {
	var parser = flags.NewParser(Config, flags.Default)
	parser.LongDescription = `geoload imports geospatial extracts into a PostGIS store,
enriches features with the region containing them, and keeps the store
current through periodic replication.

Store connection parameters default from the libpq environment variables
PGHOST, PGPORT, PGUSER, PGPASSWORD and PGDATABASE. Optionally configure geoload
with a '` + iniFilename + `' file in the current working directory, or with
'~/.config/geoload/` + iniFilename + `'. Use the 'print-config' sub-command to
inspect the tool's current configuration.
`

	_, _ = parser.AddCommand("run", "Run pipeline phases", `
Run selected phases of the import pipeline.

--insert acquires, merges and loads the configured --source.ref extracts,
indexes the store, enriches features with their region, and materializes the
users table. If --replication.enable, replication is initialized after the load
and a single update cycle is run once the import completes.

--update runs a single, bounded replication update cycle and enriches the
changed features. Failures of the cycle are logged but don't fail the command,
so it may be scheduled periodically.

--region-update enriches all features, and --post-index applies the
post-enrichment indexes. Each is implied by --insert.

Examples:

# Import a remote extract, keeping it current with replication:
geoload run --insert --replication.enable --source.ref https://download.geofabrik.de/europe/andorra-latest.osm.pbf

# Run an hourly replication cycle from cron:
geoload run --update --replication.enable --enrich.region-id AD
`, &cmdRun{})

	_, _ = parser.AddCommand("update-regions", "Update the region attribute of tables", `
Update the region attribute of one or more target tables from a source table of
region boundaries. Each --target and the --source are given as
table:column:geometry. Multiple targets are updated concurrently.

Example:

geoload update-regions --source planet_osm_region_boundaries:iso_code:geom \
	--target planet_osm_point:region:way --target planet_osm_line:region:way
`, &cmdUpdateRegions{})

	mbp.AddPrintConfigCmd(parser, iniFilename)
	mbp.MustParseConfig(parser, iniFilename)
}

// newResolver builds the Resolver of remote extracts.
func newResolver(fs afero.Fs, run runner.Runner, src sourceConfig, creds acquire.Credentials) *acquire.Resolver {
	var r = &acquire.Resolver{
		Fs:          fs,
		Dir:         src.Dir,
		Client:      &http.Client{},
		Credentials: creds,
	}
	if src.Cookie != "" {
		r.Auth = acquire.StaticCookie(src.Cookie)
	} else {
		r.Auth = acquire.ExecAuthenticator{
			Runner:    run,
			Program:   src.AuthHelper,
			CookieURL: src.CookieURL,
		}
	}
	return r
}

// printElapsed prints the wall-clock time since |started|.
func printElapsed(started time.Time) {
	fmt.Fprintf(os.Stdout, "completed in %s\n", time.Since(started).Round(time.Millisecond))
}

// mergedPath is the well-known path of the merged extract within |dir|.
func mergedPath(dir string) string { return filepath.Join(dir, pipeline.MergedFileName) }
