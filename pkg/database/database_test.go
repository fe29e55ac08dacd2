package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectSQLReadOnlyMissingFile(t *testing.T) {
	_, err := ConnectSQL(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "nope.db"), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")
}

func TestConnectSQLUnsupportedDriver(t *testing.T) {
	_, err := ConnectSQL(context.Background(), "oracle", "x", false)
	require.Error(t, err)
}

func TestColumnsAndTableExists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "store.db")

	s, err := ConnectSQL(ctx, DriverSQLite, path, false)
	require.NoError(t, err)
	_, err = s.ExecContext(ctx, `CREATE TABLE incidents ("date" TEXT, aboard_total INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ro, err := ConnectSQL(ctx, DriverSQLite, path, true)
	require.NoError(t, err)
	defer ro.Close()

	cols, err := ro.Columns(ctx, "incidents")
	require.NoError(t, err)
	assert.Equal(t, []ColumnInfo{{"date", "TEXT"}, {"aboard_total", "INTEGER"}}, cols)
	assert.True(t, ro.TableExists(ctx, "incidents"))
	assert.False(t, ro.TableExists(ctx, "missing"))

	_, err = ro.ExecContext(ctx, `INSERT INTO incidents VALUES ('x', 1)`)
	assert.Error(t, err, "read-only store accepted a write")

	_, err = ro.Columns(ctx, "incidents; DROP TABLE x")
	assert.Error(t, err)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"date", "time"`, (&Store{Driver: DriverSQLite}).QuoteAll([]string{"date", "time"}))
	assert.Equal(t, "[date]", (&Store{Driver: DriverSQLServer}).Quote("date"))
	assert.Equal(t, " ORDER BY rowid", (&Store{Driver: DriverSQLite}).OrderClause())
	assert.Equal(t, "", (&Store{Driver: DriverPostgres}).OrderClause())
}

func TestConnectMongoWithoutURI(t *testing.T) {
	_, err := ConnectMongo(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoMongo)
}
