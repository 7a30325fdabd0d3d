package acquire

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.geoload.dev/core/runner"
)

// Credentials of the remote file host.
type Credentials struct {
	Username string `long:"username" env:"OSM_USERNAME" description:"Username of the remote extract host"`
	Password string `long:"password" env:"OSM_PASSWORD" description:"Password of the remote extract host"`
}

// Configured is true if both a username and password are present.
func (c Credentials) Configured() bool { return c.Username != "" && c.Password != "" }

// Authenticator exchanges Credentials for a session cookie of the remote host.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (cookie string, err error)
}

// ExecAuthenticator obtains a session cookie by running a helper program.
// Credentials are passed through the helper's environment as OSM_USERNAME and
// OSM_PASSWORD, and the cookie is read from its output.
type ExecAuthenticator struct {
	Runner runner.Runner
	// Program is the helper to run.
	Program string
	// CookieURL is the login endpoint which issues cookies, passed to the
	// helper as "-c <url>" if set.
	CookieURL string
}

// Authenticate runs the helper program.
func (a ExecAuthenticator) Authenticate(ctx context.Context, creds Credentials) (string, error) {
	var cmd = runner.Command{
		Name: a.Program,
		Env:  []string{"OSM_USERNAME=" + creds.Username, "OSM_PASSWORD=" + creds.Password},
	}
	if a.CookieURL != "" {
		cmd.Args = append(cmd.Args, "-c", a.CookieURL)
	}

	var out, err = a.Runner.Run(ctx, cmd)
	if err != nil {
		return "", errors.WithMessage(err, "running authentication helper")
	}
	return ParseCookie(string(out))
}

// StaticCookie is an Authenticator which returns a fixed cookie.
type StaticCookie string

// Authenticate returns the StaticCookie.
func (s StaticCookie) Authenticate(context.Context, Credentials) (string, error) {
	if s == "" {
		return "", errors.New("empty cookie")
	}
	return string(s), nil
}

// ParseCookie extracts the "name=value" pair of a Set-Cookie style line,
// dropping attributes such as expires, path and domain.
func ParseCookie(s string) (string, error) {
	var line = strings.TrimSpace(s)
	if i := strings.LastIndexByte(line, '\n'); i != -1 {
		line = strings.TrimSpace(line[i+1:])
	}
	if i := strings.IndexByte(line, ';'); i != -1 {
		line = line[:i]
	}
	if !strings.Contains(line, "=") || strings.HasPrefix(line, "=") {
		return "", errors.Errorf("malformed cookie %q", line)
	}
	return line, nil
}
