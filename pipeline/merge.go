package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.geoload.dev/core/runner"
)

// MergedFileName is the well-known name of a merged extract
// within the download directory.
const MergedFileName = "merged_data.pbf"

// MergeConfig configures the merge of multiple extracts.
type MergeConfig struct {
	// Program which merges extracts, invoked as
	// "<program> merge <input>... -o <output>".
	Program string
	// Output path of the merged extract.
	Output string
}

// Merge combines |extracts| into a single extract. A single extract is
// returned as-is. Multiple extracts are merged in order into the Output path,
// unless it already exists, in which case it's re-used.
func Merge(ctx context.Context, run runner.Runner, fs afero.Fs, cfg MergeConfig, extracts []string) (string, error) {
	switch len(extracts) {
	case 0:
		return "", &MergeError{Err: errors.New("no extracts to merge")}
	case 1:
		return extracts[0], nil
	}

	if ok, err := afero.Exists(fs, cfg.Output); err != nil {
		return "", &MergeError{Err: err}
	} else if ok {
		log.WithField("path", cfg.Output).Info("merged extract exists; skipping merge")
		return cfg.Output, nil
	}

	if err := fs.MkdirAll(filepath.Dir(cfg.Output), 0755); err != nil {
		return "", &MergeError{Err: errors.WithMessage(err, "creating output directory")}
	}

	var cmd = runner.Command{
		Name: cfg.Program,
		Args: append(append([]string{"merge"}, extracts...), "-o", cfg.Output),
	}
	log.WithFields(log.Fields{
		"inputs": extracts,
		"output": cfg.Output,
	}).Info("merging extracts")

	if _, err := run.Run(ctx, cmd); err != nil {
		// Don't leave a partial output which would be mistaken for a
		// completed merge on the next invocation.
		if rmErr := fs.Remove(cfg.Output); rmErr != nil && !os.IsNotExist(rmErr) {
			log.WithFields(log.Fields{"path": cfg.Output, "err": rmErr}).
				Warn("failed to remove partial merge output")
		}
		return "", &MergeError{Err: err}
	}
	return cfg.Output, nil
}
