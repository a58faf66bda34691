package db

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteSchema(t *testing.T) {
	ctx := context.Background()
	dbh, err := Open(ctx, DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer dbh.Close()

	for _, table := range []string{"user_progress", "event_log"} {
		var n int
		require.NoError(t, dbh.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=$1`, table).Scan(&n))
		assert.Equal(t, 1, n, table)
	}

	// schema creation is idempotent
	require.NoError(t, ensureSchema(ctx, dbh, DriverSQLite))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Driver("mysql"), "")
	assert.Error(t, err)
}
