package mainboilerplate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"
)

func TestConfigSearchPaths(t *testing.T) {
	t.Setenv("HOME", "/home/mapper")
	t.Setenv("UserProfile", "")
	t.Setenv(ConfigFileEnv, "")
	t.Setenv(ConfigRootEnv, "/srv/config")

	require.Equal(t, []string{
		"geoload.ini",
		"/home/mapper/.config/geoload/geoload.ini",
		"/srv/config/geoload.ini",
		"/etc/geoload/geoload.ini",
	}, ConfigSearchPaths("geoload.ini"))

	t.Setenv(ConfigFileEnv, "/run/secrets/geoload.ini")
	require.Equal(t, "/run/secrets/geoload.ini", ConfigSearchPaths("geoload.ini")[0])
}

func TestParseConfigFileUsesFirstPresentFile(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")

	var dir = t.TempDir()
	var first, second = filepath.Join(dir, "a.ini"), filepath.Join(dir, "b.ini")
	require.NoError(t, os.WriteFile(first, []byte("[Logging]\nlevel = debug\n"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("[Logging]\nlevel = error\n"), 0644))

	var cfg struct {
		Log LogConfig `group:"Logging" namespace:"log" env-namespace:"LOG"`
	}
	var parser = flags.NewParser(&cfg, flags.IgnoreUnknown)

	var path, err = ParseConfigFile(parser, []string{filepath.Join(dir, "missing.ini"), first, second})
	require.NoError(t, err)
	require.Equal(t, first, path)
	require.Equal(t, "debug", cfg.Log.Level)

	path, err = ParseConfigFile(parser, []string{filepath.Join(dir, "missing.ini")})
	require.NoError(t, err)
	require.Equal(t, "", path)
}

func TestParseConfigFileRequiresExplicitFile(t *testing.T) {
	var missing = filepath.Join(t.TempDir(), "missing.ini")
	t.Setenv(ConfigFileEnv, missing)

	var parser = flags.NewParser(new(struct{}), flags.IgnoreUnknown)
	var _, err = ParseConfigFile(parser, ConfigSearchPaths("geoload.ini"))
	require.Error(t, err)
	require.Contains(t, err.Error(), missing)
}
