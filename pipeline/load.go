package pipeline

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.geoload.dev/core/runner"
)

// Style scripts of the bulk-loader, within LoadConfig.StyleDir.
const (
	StyleDefault  = "geoload.style"
	StyleWithRefs = "geoload-refs.style"
)

// LoadConfig configures invocations of the bulk-loader.
type LoadConfig struct {
	// Program is the bulk-loader.
	Program string
	// StyleDir holds the loader's style scripts.
	StyleDir string
	// KeepRefs selects the style script which retains way node and
	// relation member references.
	KeepRefs bool
	// Prefix of tables created by the loader.
	Prefix string
	// FlatNodes is an optional path of an external node cache file.
	FlatNodes string
	// Cache is the node cache size in megabytes. If zero, the loader's
	// default is used.
	Cache int
	// Params are passed through to the loader, split on whitespace.
	Params []string
	// Replication preserves staging tables for subsequent replication.
	// Otherwise they are dropped after the load.
	Replication bool
	// Env of the loader process, which carries store connection parameters.
	Env []string
}

// Style returns the path of the selected style script.
func (cfg LoadConfig) Style() string {
	if cfg.KeepRefs {
		return filepath.Join(cfg.StyleDir, StyleWithRefs)
	}
	return filepath.Join(cfg.StyleDir, StyleDefault)
}

// appendArgs returns arguments shared by the initial load
// and by replication updates.
func (cfg LoadConfig) appendArgs() []string {
	var args = []string{
		"--slim",
		"--extra-attributes",
		"--hstore",
		"--style", cfg.Style(),
		"--prefix", cfg.Prefix,
	}
	if cfg.FlatNodes != "" {
		args = append(args, "--flat-nodes", cfg.FlatNodes)
	}
	if cfg.Cache > 0 {
		args = append(args, "--cache", strconv.Itoa(cfg.Cache))
	}
	for _, p := range cfg.Params {
		args = append(args, strings.Fields(p)...)
	}
	return args
}

// LoadArgs returns the bulk-loader arguments which load |extract|.
func LoadArgs(cfg LoadConfig, extract string) []string {
	var args = append([]string{"--create"}, cfg.appendArgs()...)
	if !cfg.Replication {
		args = append(args, "--drop")
	}
	return append(args, extract)
}

// Load populates the store from scratch with |extract|.
func Load(ctx context.Context, run runner.Runner, cfg LoadConfig, extract string) error {
	log.WithFields(log.Fields{
		"extract":     extract,
		"style":       cfg.Style(),
		"replication": cfg.Replication,
	}).Info("loading extract")

	if _, err := run.Run(ctx, runner.Command{
		Name: cfg.Program,
		Args: LoadArgs(cfg, extract),
		Env:  cfg.Env,
	}); err != nil {
		return &LoadError{Err: err}
	}
	return nil
}
