// Package store applies structural scripts and region enrichment to a
// PostGIS spatial store populated by the bulk-loader.
package store

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Names of Scripts of the Store.
const (
	ScriptPreIndex   = "pre"
	ScriptPostIndex  = "post"
	ScriptBoundaries = "boundaries"
	ScriptUsers      = "users"
)

// FeatureKinds are the suffixes of feature tables created by the loader.
var FeatureKinds = []string{"point", "line", "polygon", "roads"}

var identifierRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Script is a named, ordered set of statements.
type Script struct {
	Name       string
	Statements []string
}

// Store is a spatial store holding feature tables of a common prefix.
type Store struct {
	DB     *sql.DB
	Prefix string
}

// New returns a Store of feature tables having |prefix|.
func New(db *sql.DB, prefix string) (*Store, error) {
	if !identifierRe.MatchString(prefix) {
		return nil, errors.Errorf("invalid table prefix %q", prefix)
	}
	return &Store{DB: db, Prefix: prefix}, nil
}

// Tables returns the feature tables of the Store.
func (s *Store) Tables() []string {
	var out = make([]string, len(FeatureKinds))
	for i, k := range FeatureKinds {
		out[i] = s.Prefix + "_" + k
	}
	return out
}

// BoundariesTable returns the region-boundary reference table of the Store.
func (s *Store) BoundariesTable() string { return s.Prefix + "_region_boundaries" }

// Script returns the named Script of the Store.
func (s *Store) Script(name string) (Script, error) {
	var stmts []string

	switch name {
	case ScriptPreIndex:
		stmts = s.perTable(addRegionColumnStmt, osmIDIndexStmt)
		stmts = append(stmts, s.expand(polygonBoundaryIndexStmt, ""))
	case ScriptBoundaries:
		stmts = []string{
			s.expand(createBoundariesStmt, ""),
			s.expand(insertBoundariesStmt, ""),
			s.expand(boundariesGeomIndexStmt, ""),
		}
	case ScriptUsers:
		var selects []string
		for _, t := range s.Tables() {
			selects = append(selects, s.expand(userEditsSelect, t))
		}
		stmts = []string{
			s.expand(createUsersStmt, ""),
			strings.Replace(s.expand(upsertUsersStmt, ""), "{features}", strings.Join(selects, " UNION ALL "), 1),
		}
	case ScriptPostIndex:
		stmts = s.perTable(geomIndexStmt, regionIndexStmt, userIndexStmt, analyzeStmt)
	default:
		return Script{}, errors.Errorf("unknown script %q", name)
	}
	return Script{Name: name, Statements: stmts}, nil
}

// RunScript executes each statement of the Script in order. Execution stops
// at the first failed statement, which is returned as an error.
func (s *Store) RunScript(ctx context.Context, script Script) error {
	var started = time.Now()

	for i, stmt := range script.Statements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return errors.WithMessagef(err, "script %s statement %d (%s)",
				script.Name, i, summarize(stmt))
		}
	}
	log.WithFields(log.Fields{
		"script":     script.Name,
		"statements": len(script.Statements),
		"elapsed":    time.Since(started),
	}).Debug("ran script")

	return nil
}

func (s *Store) perTable(templates ...string) []string {
	var out []string
	for _, tmpl := range templates {
		for _, t := range s.Tables() {
			out = append(out, s.expand(tmpl, t))
		}
	}
	return out
}

func (s *Store) expand(tmpl, table string) string {
	return strings.TrimSpace(strings.NewReplacer(
		"{prefix}", s.Prefix,
		"{table}", table,
	).Replace(tmpl))
}

// summarize returns the leading portion of a statement, for error messages.
func summarize(stmt string) string {
	var s = strings.Join(strings.Fields(stmt), " ")
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}
