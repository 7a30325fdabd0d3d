package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// Frequency classes of region boundaries. FrequencyAlways selects all
// regions regardless of their configured update frequency.
const (
	FrequencyAlways  = "always"
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Column identifies an attribute and geometry column of a table,
// in the textual form "table:column:geometry".
type Column struct {
	Table    string
	Column   string
	Geometry string
}

// ParseColumn parses a Column from its "table:column:geometry" form.
func ParseColumn(s string) (Column, error) {
	var parts = strings.Split(s, ":")
	if len(parts) != 3 {
		return Column{}, errors.Errorf("expected table:column:geometry, not %q", s)
	}
	for _, p := range parts {
		if !identifierRe.MatchString(p) {
			return Column{}, errors.Errorf("invalid identifier %q of %q", p, s)
		}
	}
	return Column{Table: parts[0], Column: parts[1], Geometry: parts[2]}, nil
}

func (c Column) String() string { return c.Table + ":" + c.Column + ":" + c.Geometry }

// RegionJob updates the Target attribute of rows to the Source attribute of
// the Source row whose geometry contains them.
type RegionJob struct {
	Target Column
	Source Column
	// Frequency restricts Source rows to those of the update frequency class.
	Frequency string
	// ChangedOnly restricts Target rows to those having a NULL attribute,
	// which are rows written since the last update.
	ChangedOnly bool
	// RegionIDs, if non-empty, restricts Source rows to those having one
	// of the given attribute values.
	RegionIDs []string
	// Boundaries, if non-empty, are WKT geometries in EPSG:4326 which
	// restrict Target rows to those intersecting any one of them.
	Boundaries []string
}

// ValidFrequency returns an error if |f| isn't a frequency class.
func ValidFrequency(f string) error {
	switch f {
	case FrequencyAlways, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return nil
	}
	return errors.Errorf("invalid frequency %q", f)
}

// BuildRegionUpdate returns the statement and arguments of a RegionJob.
func BuildRegionUpdate(job RegionJob) (string, []interface{}, error) {
	if err := ValidFrequency(job.Frequency); err != nil {
		return "", nil, err
	}
	var (
		t    = job.Target
		s    = job.Source
		args []interface{}
		b    strings.Builder
	)
	var arg = func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	fmt.Fprintf(&b, "UPDATE %s AS t SET %s = s.%s FROM %s AS s",
		pq.QuoteIdentifier(t.Table), pq.QuoteIdentifier(t.Column),
		pq.QuoteIdentifier(s.Column), pq.QuoteIdentifier(s.Table))
	fmt.Fprintf(&b, " WHERE ST_Contains(s.%s, ST_PointOnSurface(t.%s))",
		pq.QuoteIdentifier(s.Geometry), pq.QuoteIdentifier(t.Geometry))

	if job.Frequency != FrequencyAlways {
		fmt.Fprintf(&b, " AND s.update_frequency = %s", arg(job.Frequency))
	}
	if job.ChangedOnly {
		fmt.Fprintf(&b, " AND t.%s IS NULL", pq.QuoteIdentifier(t.Column))
	}
	if len(job.RegionIDs) != 0 {
		fmt.Fprintf(&b, " AND s.%s = ANY(%s)", pq.QuoteIdentifier(s.Column), arg(pq.Array(job.RegionIDs)))
	}
	if len(job.Boundaries) != 0 {
		var ors []string
		for _, wkt := range job.Boundaries {
			ors = append(ors, fmt.Sprintf("ST_Intersects(t.%s, ST_Transform(ST_GeomFromText(%s, 4326), ST_SRID(t.%s)))",
				pq.QuoteIdentifier(t.Geometry), arg(wkt), pq.QuoteIdentifier(t.Geometry)))
		}
		fmt.Fprintf(&b, " AND (%s)", strings.Join(ors, " OR "))
	}
	return b.String(), args, nil
}

// UpdateRegions runs the RegionJob, returning the number of updated rows.
func (s *Store) UpdateRegions(ctx context.Context, job RegionJob) (int64, error) {
	var stmt, args, err = BuildRegionUpdate(job)
	if err != nil {
		return 0, err
	}
	res, err := s.DB.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, errors.WithMessagef(err, "updating %s", job.Target)
	}
	return res.RowsAffected()
}
