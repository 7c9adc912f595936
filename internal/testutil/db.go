package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kjannette/trahn-wallet/internal/db"
	"github.com/stretchr/testify/require"
)

// SetupPool connects to TEST_DATABASE_URL and applies the journal schema.
// Tests are skipped when it is not set.
func SetupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	require.NoError(t, err, "connect")
	t.Cleanup(pool.Close)

	require.NoError(t, db.EnsureSchema(ctx, pool), "schema")
	return pool
}
