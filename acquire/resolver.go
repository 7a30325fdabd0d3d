// Package acquire resolves references to geospatial extracts, which are
// either paths of local files or remote URLs, into local files. Remote
// extracts are downloaded into a directory only if a file of the same
// name isn't already present.
package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.geoload.dev/core/metrics"
)

// partSuffix is appended to the name of a download in progress. A file is
// renamed to its final name only after its body is fully written.
const partSuffix = ".part"

// AcquisitionError is returned when a reference cannot be resolved to a
// local file. Nothing downstream of acquisition may proceed on this error.
type AcquisitionError struct {
	Ref string
	Err error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquiring %s: %s", e.Ref, e.Err)
}

// Cause returns the underlying error.
func (e *AcquisitionError) Cause() error { return e.Err }

// Unwrap returns the underlying error.
func (e *AcquisitionError) Unwrap() error { return e.Err }

// Resolver maps references to local extracts.
type Resolver struct {
	// Fs of local extracts and downloads.
	Fs afero.Fs
	// Dir into which remote extracts are downloaded.
	Dir string
	// Client used for fetches. http.DefaultClient is used if nil.
	Client *http.Client
	// Credentials of the remote host. If configured, Auth is used to obtain
	// a session cookie which is presented with each fetch. A StaticCookie
	// Auth is used whether or not Credentials are configured.
	Credentials Credentials
	Auth        Authenticator
}

// needsAuth returns whether fetches must present a session cookie.
func (r *Resolver) needsAuth() bool {
	var _, static = r.Auth.(StaticCookie)
	return static || r.Credentials.Configured()
}

// Resolve each of |refs| to a local extract, returning extract paths in
// the order of |refs|. References which are readable local files are passed
// through unchanged. Others are treated as remote, and are fetched into Dir
// unless a file of the same name is already present there.
func (r *Resolver) Resolve(ctx context.Context, refs []string) ([]string, error) {
	var out = make([]string, 0, len(refs))
	var cookie string
	var authenticated bool

	for _, ref := range refs {
		if r.isLocalFile(ref) {
			log.WithField("path", ref).Debug("using local extract")
			out = append(out, ref)
			continue
		}

		var u, name, err = parseRemote(ref)
		if err != nil {
			return nil, &AcquisitionError{Ref: ref, Err: err}
		}
		var target = filepath.Join(r.Dir, name)

		if ok, err := afero.Exists(r.Fs, target); err != nil {
			return nil, &AcquisitionError{Ref: ref, Err: err}
		} else if ok {
			log.WithFields(log.Fields{"ref": ref, "path": target}).
				Info("extract already downloaded; skipping fetch")
			metrics.DownloadsTotal.WithLabelValues(metrics.Skipped).Inc()
			out = append(out, target)
			continue
		}

		if !authenticated && r.needsAuth() {
			if r.Auth == nil {
				return nil, &AcquisitionError{Ref: ref, Err: errors.New("credentials configured without an authenticator")}
			} else if cookie, err = r.Auth.Authenticate(ctx, r.Credentials); err != nil {
				return nil, &AcquisitionError{Ref: ref, Err: errors.WithMessage(err, "authenticating")}
			}
			authenticated = true
		}

		if err = r.fetch(ctx, u, cookie, target); err != nil {
			metrics.DownloadsTotal.WithLabelValues(metrics.Fail).Inc()
			return nil, &AcquisitionError{Ref: ref, Err: err}
		}
		metrics.DownloadsTotal.WithLabelValues(metrics.Ok).Inc()
		out = append(out, target)
	}
	return out, nil
}

func (r *Resolver) isLocalFile(ref string) bool {
	var fi, err = r.Fs.Stat(ref)
	if err != nil || !fi.Mode().IsRegular() {
		return false
	}
	f, err := r.Fs.Open(ref)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

// fetch streams the body of |u| into |target|.
func (r *Resolver) fetch(ctx context.Context, u *url.URL, cookie, target string) error {
	var req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	var client = r.Client
	if client == nil {
		client = http.DefaultClient
	}
	var started = time.Now()

	log.WithFields(log.Fields{
		"url":           u.Redacted(),
		"path":          target,
		"authenticated": cookie != "",
	}).Info("fetching extract")

	resp, err := client.Do(req)
	if err != nil {
		return errors.WithMessage(err, "fetching")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("fetching %s: unexpected status %s", u.Redacted(), resp.Status)
	}

	if err = r.Fs.MkdirAll(r.Dir, 0755); err != nil {
		return errors.WithMessage(err, "creating download directory")
	}
	f, err := r.Fs.OpenFile(target+partSuffix, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.WithMessage(err, "creating download file")
	}

	n, err := io.Copy(f, resp.Body)
	metrics.DownloadBytesTotal.Add(float64(n))

	if err != nil {
		_ = f.Close()
		return errors.WithMessage(err, "writing download file")
	} else if err = f.Close(); err != nil {
		return errors.WithMessage(err, "closing download file")
	} else if err = r.Fs.Rename(target+partSuffix, target); err != nil {
		return errors.WithMessage(err, "renaming download file")
	}

	var elapsed = time.Since(started)
	log.WithFields(log.Fields{
		"path":    target,
		"size":    humanize.Bytes(uint64(n)),
		"rate":    transferRate(n, elapsed),
		"elapsed": elapsed,
	}).Info("fetched extract")

	return nil
}

// transferRate formats the rate of |n| bytes transferred over |elapsed|.
func transferRate(n int64, elapsed time.Duration) string {
	if n <= 0 || elapsed <= 0 {
		return "n/a"
	}
	return humanize.Bytes(uint64(float64(n)/elapsed.Seconds())) + "/s"
}

// parseRemote parses |ref| as a remote locator, returning its URL and
// the file name derived from its final path segment.
func parseRemote(ref string) (*url.URL, string, error) {
	var u, err = url.Parse(ref)
	if err != nil {
		return nil, "", errors.WithMessage(err, "parsing remote locator")
	} else if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", errors.New("not a readable local file or http(s) locator")
	}
	var name = path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return nil, "", errors.New("locator has no file name")
	}
	return u, name, nil
}
