package pipeline

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.geoload.dev/core/runner"
	"go.geoload.dev/core/runner/runnertest"
)

func TestMergeOfSingleExtractIsANoop(t *testing.T) {
	var rec = new(runnertest.Recorder)
	var out, err = Merge(context.Background(), rec, afero.NewMemMapFs(),
		MergeConfig{Program: "osmium", Output: "/dl/merged_data.pbf"}, []string{"a.pbf"})

	require.NoError(t, err)
	require.Equal(t, "a.pbf", out)
	require.Empty(t, rec.Calls())
}

func TestMergeIsSkippedIfOutputExists(t *testing.T) {
	var fs = afero.NewMemMapFs()
	var rec = new(runnertest.Recorder)
	rec.On("osmium merge", func(_ context.Context, cmd runner.Command) ([]byte, error) {
		return nil, afero.WriteFile(fs, "/dl/merged_data.pbf", []byte("merged"), 0644)
	})
	var cfg = MergeConfig{Program: "osmium", Output: "/dl/merged_data.pbf"}

	for i := 0; i != 2; i++ {
		var out, err = Merge(context.Background(), rec, fs, cfg, []string{"b.pbf", "a.pbf"})
		require.NoError(t, err)
		require.Equal(t, "/dl/merged_data.pbf", out)
	}
	require.Equal(t, []string{"osmium merge b.pbf a.pbf -o /dl/merged_data.pbf"}, rec.Lines())
}

func TestMergeCreatesOutputDirectory(t *testing.T) {
	var fs = afero.NewMemMapFs()
	var rec = new(runnertest.Recorder)
	var dirExisted bool
	rec.On("osmium merge", func(_ context.Context, cmd runner.Command) ([]byte, error) {
		dirExisted, _ = afero.DirExists(fs, "/var/lib/geoload")
		return nil, afero.WriteFile(fs, "/var/lib/geoload/merged_data.pbf", []byte("merged"), 0644)
	})
	var out, err = Merge(context.Background(), rec, fs,
		MergeConfig{Program: "osmium", Output: "/var/lib/geoload/merged_data.pbf"}, []string{"a.pbf", "b.pbf"})

	require.NoError(t, err)
	require.Equal(t, "/var/lib/geoload/merged_data.pbf", out)
	require.True(t, dirExisted)
}

func TestMergeFailsIfOutputDirectoryCannotBeCreated(t *testing.T) {
	var rec = new(runnertest.Recorder)
	var fs = afero.NewReadOnlyFs(afero.NewMemMapFs())

	var _, err = Merge(context.Background(), rec, fs,
		MergeConfig{Program: "osmium", Output: "/dl/merged_data.pbf"}, []string{"a.pbf", "b.pbf"})
	require.IsType(t, &MergeError{}, err)
	require.Empty(t, rec.Calls())
}

func TestMergeFailureRemovesPartialOutput(t *testing.T) {
	var fs = afero.NewMemMapFs()
	var rec = new(runnertest.Recorder)
	rec.On("osmium merge", func(_ context.Context, cmd runner.Command) ([]byte, error) {
		_ = afero.WriteFile(fs, "/dl/merged_data.pbf", []byte("partial"), 0644)
		return []byte("Input file is corrupt"),
			&runner.Error{Command: cmd, Output: []byte("Input file is corrupt"), Err: errors.New("exit status 1")}
	})
	var _, err = Merge(context.Background(), rec, fs,
		MergeConfig{Program: "osmium", Output: "/dl/merged_data.pbf"}, []string{"a.pbf", "b.pbf"})

	var mergeErr *MergeError
	require.True(t, errors.As(err, &mergeErr))
	require.Equal(t, "merging extracts: osmium: exit status 1", err.Error())
	require.Equal(t, "Input file is corrupt", Output(err))

	var exists, _ = afero.Exists(fs, "/dl/merged_data.pbf")
	require.False(t, exists)
}

func TestMergeOfNoExtracts(t *testing.T) {
	var _, err = Merge(context.Background(), new(runnertest.Recorder), afero.NewMemMapFs(), MergeConfig{}, nil)
	require.IsType(t, &MergeError{}, err)
}
