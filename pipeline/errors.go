package pipeline

import (
	"fmt"

	"go.geoload.dev/core/runner"
)

// MergeError is a fatal failure of the external merge program.
type MergeError struct{ Err error }

// LoadError is a fatal failure of the bulk-loader, or of the replication
// initialization which immediately follows it.
type LoadError struct{ Err error }

// IndexError is a fatal failure of a statement of a store Script.
type IndexError struct {
	Script string
	Err    error
}

// EnrichmentJobError is a failure of one table's region update. It's fatal
// during the initial load, and is logged and skipped during replication.
type EnrichmentJobError struct {
	Table string
	Err   error
}

// ReplicationCycleError is a timeout or failure of one replication update
// cycle. It's always logged and never propagated.
type ReplicationCycleError struct{ Err error }

func (e *MergeError) Error() string { return "merging extracts: " + e.Err.Error() }
func (e *LoadError) Error() string  { return "loading extract: " + e.Err.Error() }
func (e *IndexError) Error() string {
	return fmt.Sprintf("applying %s script: %s", e.Script, e.Err)
}
func (e *EnrichmentJobError) Error() string {
	return fmt.Sprintf("enriching %s: %s", e.Table, e.Err)
}
func (e *ReplicationCycleError) Error() string { return "replication cycle: " + e.Err.Error() }

func (e *MergeError) Cause() error            { return e.Err }
func (e *LoadError) Cause() error             { return e.Err }
func (e *IndexError) Cause() error            { return e.Err }
func (e *EnrichmentJobError) Cause() error    { return e.Err }
func (e *ReplicationCycleError) Cause() error { return e.Err }

func (e *MergeError) Unwrap() error            { return e.Err }
func (e *LoadError) Unwrap() error             { return e.Err }
func (e *IndexError) Unwrap() error            { return e.Err }
func (e *EnrichmentJobError) Unwrap() error    { return e.Err }
func (e *ReplicationCycleError) Unwrap() error { return e.Err }

// Output returns the captured output of an external program which caused
// |err|, or an empty string if there is none.
func Output(err error) string { return string(runner.OutputOf(err)) }
