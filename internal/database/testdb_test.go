package database

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestDB connects to TEST_DATABASE_URL, applies the schema and empties
// the tables. Tests skip when the variable is unset.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn, Config{MaxConns: 4})
	require.NoError(t, err)

	require.NoError(t, db.EnsureSchema(ctx))
	_, err = db.Exec(ctx, `TRUNCATE catalog_listings, outbox_event, crawl_jobs`)
	require.NoError(t, err)

	return db
}
