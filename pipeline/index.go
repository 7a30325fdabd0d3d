package pipeline

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.geoload.dev/core/store"
)

// ScriptRunner resolves and runs named statement scripts against the store.
type ScriptRunner interface {
	Script(name string) (store.Script, error)
	RunScript(ctx context.Context, script store.Script) error
}

// ApplyScript runs the named script. The failure of any statement is
// fatal and aborts the remainder of the script.
func ApplyScript(ctx context.Context, sr ScriptRunner, name string) error {
	var script, err = sr.Script(name)
	if err != nil {
		return &IndexError{Script: name, Err: err}
	}
	log.WithFields(log.Fields{
		"script":     name,
		"statements": len(script.Statements),
	}).Info("applying script")

	if err = sr.RunScript(ctx, script); err != nil {
		return &IndexError{Script: name, Err: err}
	}
	return nil
}
