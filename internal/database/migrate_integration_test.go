//go:build integration

package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/testutil"
)

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	status, err := Migrate(pc.ConnectionString(), "file://../../migrations", zap.NewNop())
	require.NoError(t, err)
	assert.True(t, status.Applied)
	assert.Equal(t, uint(2), status.Version)

	again, err := Migrate(pc.ConnectionString(), "file://../../migrations", zap.NewNop())
	require.NoError(t, err)
	assert.False(t, again.Applied)
	assert.Equal(t, uint(2), again.Version)

	pool, err := NewPool(ctx, Config{URL: pc.ConnectionString(), MaxConns: 4}, zap.NewNop())
	require.NoError(t, err)
	defer pool.Close()

	var app string
	require.NoError(t, pool.QueryRow(ctx, `SHOW application_name`).Scan(&app))
	assert.Equal(t, "docqad", app)

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM embedding_records`).Scan(&n))
	assert.Zero(t, n)
}
