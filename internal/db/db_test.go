package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: Postgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.Rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &DB{Dialect: SQLite}
	assert.Equal(t, "SELECT * FROM t WHERE a = ?", lite.Rebind("SELECT * FROM t WHERE a = ?"))
}

func TestOpenSQLiteAppliesSchemaTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partnerline.db")

	d, err := Open(context.Background(), "sqlite", path)
	require.NoError(t, err)
	require.NoError(t, d.Migrate(context.Background()))

	var n int
	err = d.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('partners', 'messages', 'scheduled_messages')`,
	).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, d.Close())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "whatever")
	require.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	assert.Equal(t,
		"postgres://u:p@localhost:5432/partnerline?sslmode=disable",
		PostgresDSN("u", "p", "localhost", "5432", "partnerline"),
	)
}
