package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.geoload.dev/core/runner/runnertest"
)

func TestLoadArgs(t *testing.T) {
	var cfg = LoadConfig{
		Program:  "osm2pgsql",
		StyleDir: "/styles",
		Prefix:   "planet_osm",
	}
	require.Equal(t, []string{
		"--create", "--slim", "--extra-attributes", "--hstore",
		"--style", "/styles/geoload.style",
		"--prefix", "planet_osm",
		"--drop",
		"x.pbf",
	}, LoadArgs(cfg, "x.pbf"))

	cfg.KeepRefs = true
	cfg.Replication = true
	cfg.FlatNodes = "/nodes/flat.bin"
	cfg.Cache = 4096
	cfg.Params = []string{"--number-processes 4", "--log-level=debug"}

	require.Equal(t, []string{
		"--create", "--slim", "--extra-attributes", "--hstore",
		"--style", "/styles/geoload-refs.style",
		"--prefix", "planet_osm",
		"--flat-nodes", "/nodes/flat.bin",
		"--cache", "4096",
		"--number-processes", "4", "--log-level=debug",
		"x.pbf",
	}, LoadArgs(cfg, "x.pbf"))
}

func TestLoadPassesEnvironment(t *testing.T) {
	var rec = new(runnertest.Recorder)
	var cfg = LoadConfig{
		Program: "osm2pgsql",
		Prefix:  "osm",
		Env:     []string{"PGHOST=db", "PGPASSWORD=secret"},
	}
	require.NoError(t, Load(context.Background(), rec, cfg, "a.pbf"))

	var calls = rec.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, []string{"PGHOST=db", "PGPASSWORD=secret"}, calls[0].Env)
	require.Contains(t, calls[0].Args, "--drop")
}
