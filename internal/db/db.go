// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Dialect selects placeholder style and schema for a SQL backend.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DB is a *sql.DB that remembers which dialect it speaks.
// Repositories write queries with '?' placeholders and call Rebind.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the database for driver ("postgres" or "sqlite"),
// pings it and applies the embedded schema.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	dialect := Dialect(strings.ToLower(strings.TrimSpace(driver)))
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	switch dialect {
	case Postgres:
		sqlDB, err = sql.Open("postgres", dsn)
	case SQLite:
		sqlDB, err = sql.Open("sqlite", dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}

	if dialect == SQLite {
		// SQLite prefers a single writer; this also keeps in-process claims serialised.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}

	d := &DB{DB: sqlDB, Dialect: dialect}
	if dialect == SQLite {
		for _, pragma := range []string{
			"PRAGMA busy_timeout = 5000",
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
			"PRAGMA foreign_keys = ON",
		} {
			if _, err := sqlDB.ExecContext(ctx, pragma); err != nil {
				_ = sqlDB.Close()
				return nil, fmt.Errorf("apply %q: %w", pragma, err)
			}
		}
	}

	if err := d.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return d, nil
}

// Migrate executes the schema for the current dialect. Statements are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations/" + string(d.Dialect) + ".sql")
	if err != nil {
		return fmt.Errorf("read %s migrations: %w", d.Dialect, err)
	}
	if _, err := d.ExecContext(ctx, string(b)); err != nil {
		return fmt.Errorf("run %s migrations: %w", d.Dialect, err)
	}
	return nil
}

// Rebind rewrites '?' placeholders into the dialect's form.
func (d *DB) Rebind(query string) string {
	if d.Dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// PostgresDSN builds a connection string from discrete settings.
func PostgresDSN(user, pass, host, port, name string) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		user, pass, host, port, name,
	)
}
