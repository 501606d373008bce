package storage

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestDB opens a private in-memory database for one test
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
