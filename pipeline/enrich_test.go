package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.geoload.dev/core/store"
	"go.uber.org/multierr"
)

func TestEnrichJobs(t *testing.T) {
	var cfg = EnrichConfig{
		Frequency: store.FrequencyMonthly,
		Source:    store.Column{Table: "b", Column: "iso_code", Geometry: "geom"},
		Targets: []store.Column{
			{Table: "p", Column: "region", Geometry: "way"},
			{Table: "l", Column: "region", Geometry: "way"},
		},
		RegionIDs:  []string{"AD"},
		Boundaries: []string{"MULTIPOLYGON(((0 0, 1 0, 1 1, 0 0)))"},
	}

	var full = cfg.Jobs(false)
	require.Len(t, full, 2)
	require.Equal(t, store.RegionJob{
		Target:    cfg.Targets[0],
		Source:    cfg.Source,
		Frequency: store.FrequencyMonthly,
	}, full[0])

	var changed = cfg.Jobs(true)
	require.Len(t, changed, 2)
	require.True(t, changed[1].ChangedOnly)
	require.Equal(t, []string{"AD"}, changed[1].RegionIDs)
	require.Equal(t, cfg.Boundaries, changed[1].Boundaries)

	cfg.Skip = true
	require.Empty(t, cfg.Jobs(false))
}

func TestDispatchCompletesAllJobsDespiteFailure(t *testing.T) {
	var e = &slowEnricher{failTable: "b", delay: 20 * time.Millisecond}
	var jobs = tableJobs("a", "b", "c", "d")

	var err = Dispatch(context.Background(), e, jobs, false)
	require.Equal(t, int32(3), e.completed.Load())

	var errs = multierr.Errors(err)
	require.Len(t, errs, 1)

	var jobErr *EnrichmentJobError
	require.True(t, errors.As(errs[0], &jobErr))
	require.Equal(t, "b", jobErr.Table)
}

func TestDispatchSoftSwallowsFailures(t *testing.T) {
	var e = &slowEnricher{failTable: "a"}
	require.NoError(t, Dispatch(context.Background(), e, tableJobs("a", "b"), true))
	require.Equal(t, int32(1), e.completed.Load())

	e = &slowEnricher{failTable: "a"}
	require.NoError(t, Dispatch(context.Background(), e, tableJobs("a"), true))
	require.Equal(t, int32(0), e.completed.Load())
}

func TestDispatchOfSingleJob(t *testing.T) {
	var e = &slowEnricher{failTable: "a"}
	var err = Dispatch(context.Background(), e, tableJobs("a"), false)
	require.EqualError(t, err, "enriching a: whoops")

	require.NoError(t, Dispatch(context.Background(), e, nil, false))
}

func tableJobs(tables ...string) []store.RegionJob {
	var out []store.RegionJob
	for _, t := range tables {
		out = append(out, store.RegionJob{
			Target:    store.Column{Table: t, Column: "region", Geometry: "way"},
			Frequency: store.FrequencyAlways,
		})
	}
	return out
}

type slowEnricher struct {
	failTable string
	delay     time.Duration
	completed atomic.Int32
}

func (e *slowEnricher) UpdateRegions(ctx context.Context, job store.RegionJob) (int64, error) {
	if job.Target.Table == e.failTable {
		return 0, errors.New("whoops")
	}
	select {
	case <-time.After(e.delay):
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	e.completed.Add(1)
	return 10, nil
}
