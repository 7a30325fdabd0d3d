package mainboilerplate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostgresDSNQuoting(t *testing.T) {
	var cfg = PostgresConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "osm",
		Password: "it's a secret",
		Database: "gis",
	}
	require.Equal(t,
		`host=localhost port=5432 user=osm password='it\'s a secret' dbname=gis sslmode=disable`,
		cfg.DSN())

	cfg.Password = ""
	require.Contains(t, cfg.DSN(), "password='' ")
}

func TestPostgresEnviron(t *testing.T) {
	var cfg = PostgresConfig{Host: "h", Port: "1", User: "u", Password: "p", Database: "d"}
	require.Equal(t, []string{
		"PGHOST=h", "PGPORT=1", "PGUSER=u", "PGPASSWORD=p", "PGDATABASE=d",
	}, cfg.Environ())
}
