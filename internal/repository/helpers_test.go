package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unclebandit/partnerline/internal/db"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	conn, err := db.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
