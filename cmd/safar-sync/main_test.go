package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Skyrin/go-safar/config"
	"github.com/Skyrin/go-safar/sql"
	"github.com/Skyrin/go-safar/store"
	"github.com/Skyrin/go-safar/sync"
	syncmodel "github.com/Skyrin/go-safar/sync/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestCommands(t *testing.T) {
	for _, k := range []string{config.KeyDBHost, config.KeyDBName, config.KeyKafkaURL} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	dbPath := filepath.Join(t.TempDir(), "device.db")
	t.Setenv(config.KeyLocalStore, dbPath)

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "safar-sync dev (build dev)\n", out)

	out, err = run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated kv-store (sqlite)")

	out, err = run(t, "pending", "--user", "u1")
	require.NoError(t, err)
	assert.Equal(t, "0 pending\n", out)

	// queue an item directly in the device store
	ctx := context.Background()
	db, err := sql.NewSQLiteConn(ctx, dbPath)
	require.NoError(t, err)
	require.NoError(t, sync.NewManager(store.NewSQL(db)).Enqueue(ctx, "u1",
		syncmodel.LessonComplete{LessonID: "l1", CompletedAt: "2024-05-01T08:00:00.000Z"}))
	require.NoError(t, db.Close())

	out, err = run(t, "pending", "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "lesson_complete")
	assert.Contains(t, out, `"lesson_id":"l1"`)
	assert.Contains(t, out, "1 pending")

	_, err = run(t, "drain", "--user", "u1", "--kind", "bogus")
	assert.ErrorContains(t, err, "unknown kind")

	_, err = run(t, "drain", "--user", "u1", "--kind", "lesson_complete")
	assert.ErrorContains(t, err, "no remote database configured")
}
