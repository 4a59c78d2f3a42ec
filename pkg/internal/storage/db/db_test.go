package db

import (
	"context"
	"slices"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/casevault/pkg/configs"
)

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:ledger.db?_a=1&_b=2",
		sqliteDSN(&configs.DBConfig{Database: "ledger"}, "_a=1", "_b=2"))
	assert.Equal(t, "file::memory:?cache=shared&_a=1",
		sqliteDSN(&configs.DBConfig{Database: ":memory:"}, "_a=1"))
}

func TestRegisteredDBTypes(t *testing.T) {
	types := GetRegisteredDBTypes()

	assert.True(t, slices.IsSorted(types))
	assert.Contains(t, types, configs.SQLite)
	assert.Contains(t, types, configs.PostgreSQL)
	assert.Contains(t, types, configs.MariaDB)
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New(context.Background(), &configs.DBConfig{Type: "duckdb"})
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestOpenMigrateAndHealth(t *testing.T) {
	type row struct {
		ID   uint
		Name string
	}

	client, err := Open(context.Background(), sqlite.Open("file::memory:"), 1, 1)
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Migrate(context.Background(), &row{}))
	require.NoError(t, client.HealthCheck(context.Background()))
	assert.True(t, client.Migrator().HasTable(&row{}))
}

func TestNewSQLiteMemory(t *testing.T) {
	client, err := New(context.Background(), &configs.DBConfig{
		Type:         configs.SQLite,
		Database:     ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, client.HealthCheck(context.Background()))
}
