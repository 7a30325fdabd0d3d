// Package mainboilerplate contains shared boilerplate for this project's
// programs. The idea is to provide a selection of narrowly scoped methods so
// callers do not have to buy-in to an all-or-nothing approach.
package mainboilerplate

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	// Version of the program, set at build time via -ldflags.
	Version = "development"
	// BuildDate of the program, set at build time via -ldflags.
	BuildDate = "unknown"
)

// DiagnosticsConfig configures pull-based application metrics and readiness.
type DiagnosticsConfig struct {
	Port string `long:"port" env:"PORT" description:"Port for serving /debug/metrics and /debug/ready. Diagnostics are not served if unset"`
}

// InitDiagnosticsAndRecover enables serving of metrics and a readiness check
// if a port is configured. It also returns a closure which should be deferred,
// which recovers a panic and logs a termination message before re-panicking.
func InitDiagnosticsAndRecover(cfg DiagnosticsConfig) func() {
	if cfg.Port != "" {
		var mux = http.NewServeMux()
		mux.HandleFunc("/debug/ready", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		mux.Handle("/debug/metrics", promhttp.Handler())

		go func() {
			if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
				log.WithField("err", err).Warn("diagnostics server exited")
			}
		}()
	}

	return func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "%+v\n", r)
			panic(r)
		}
	}
}

// Must panics if |err| is non-nil, supplying |msg| and |extra| as
// formatter and fields of the generated panic.
func Must(err error, msg string, extra ...interface{}) {
	if err == nil {
		return
	}
	var f = log.Fields{"err": err}
	for i := 0; i+1 < len(extra); i += 2 {
		f[extra[i].(string)] = extra[i+1]
	}
	log.WithFields(f).Panic(msg)
}
