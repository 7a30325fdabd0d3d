package mainboilerplate

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq" // Registers the "postgres" driver.
	log "github.com/sirupsen/logrus"
)

// PostgresConfig configures the connection to the spatial store. Each field
// binds the libpq environment variable of the same meaning.
type PostgresConfig struct {
	Host     string `long:"host" env:"PGHOST" required:"true" description:"Database host"`
	Port     string `long:"port" env:"PGPORT" required:"true" description:"Database port"`
	User     string `long:"user" env:"PGUSER" required:"true" description:"Database user"`
	Password string `long:"password" env:"PGPASSWORD" required:"true" description:"Database password"`
	Database string `long:"database" env:"PGDATABASE" required:"true" description:"Database name"`
}

// DSN returns a lib/pq key/value connection string.
func (c PostgresConfig) DSN() string {
	var parts = []string{
		"host=" + quoteDSN(c.Host),
		"port=" + quoteDSN(c.Port),
		"user=" + quoteDSN(c.User),
		"password=" + quoteDSN(c.Password),
		"dbname=" + quoteDSN(c.Database),
		"sslmode=disable",
	}
	return strings.Join(parts, " ")
}

// Environ returns the libpq environment bindings of the config, suitable for
// passing to a collaborator process which reads PG* variables.
func (c PostgresConfig) Environ() []string {
	return []string{
		"PGHOST=" + c.Host,
		"PGPORT=" + c.Port,
		"PGUSER=" + c.User,
		"PGPASSWORD=" + c.Password,
		"PGDATABASE=" + c.Database,
	}
}

// MustOpen opens and pings the database.
func (c PostgresConfig) MustOpen() *sql.DB {
	var db, err = sql.Open("postgres", c.DSN())
	Must(err, "failed to open database")

	if err = db.Ping(); err != nil {
		log.WithFields(log.Fields{
			"host":     c.Host,
			"port":     c.Port,
			"database": c.Database,
		}).Warn("database is not reachable (is it running?)")
	}
	Must(err, "failed to ping database")
	return db
}

// quoteDSN single-quotes |s| if it holds characters which are special
// to the key/value connection string format.
func quoteDSN(s string) string {
	if s != "" && !strings.ContainsAny(s, ` '\`) {
		return s
	}
	var r = strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return fmt.Sprintf("'%s'", r.Replace(s))
}
