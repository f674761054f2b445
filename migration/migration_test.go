package migration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/Skyrin/go-safar/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVersionFromName(t *testing.T) {
	tests := []struct {
		name    string
		version int
		wantErr bool
	}{
		{name: "0001_init.sql", version: 1},
		{name: "0012_add_index.sql", version: 12},
		{name: "init.sql", wantErr: true},
		{name: "abc_init.sql", wantErr: true},
		{name: "0000_init.sql", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &File{Name: tt.name}
			v, err := f.GetVersionFromName()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.version, v)
		})
	}
}

func TestGetLatestMigrationFiles(t *testing.T) {
	fsys := fstest.MapFS{
		MigrationPath + "/0002_b.sql": {Data: []byte("b")},
		MigrationPath + "/0001_a.sql": {Data: []byte("a")},
		MigrationPath + "/0003_c.sql": {Data: []byte("c")},
	}
	l := NewList("test", MigrationPath, fsys)

	fList, err := l.GetLatestMigrationFiles(0)
	require.NoError(t, err)
	require.Len(t, fList, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{fList[0].Version, fList[1].Version, fList[2].Version})
	assert.Equal(t, []byte("a"), fList[0].SQL)

	fList, err = l.GetLatestMigrationFiles(2)
	require.NoError(t, err)
	require.Len(t, fList, 1)
	assert.Equal(t, "0003_c.sql", fList[0].Name)
}

func openDB(t *testing.T) *sql.Connection {
	t.Helper()

	db, err := sql.NewSQLiteConn(context.Background(), filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestMigrator(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	fsys := fstest.MapFS{
		MigrationPath + "/0001_create.sql": {Data: []byte(`CREATE TABLE word (id TEXT PRIMARY KEY)`)},
		MigrationPath + "/0002_seed.sql":   {Data: []byte(`INSERT INTO word (id) VALUES ('kitab')`)},
	}

	require.NoError(t, install(ctx, db))
	_, err := getLatest(ctx, db, "words")
	assert.True(t, errors.Is(err, ErrMigrationNone))

	m, err := NewMigrator(ctx, db)
	require.NoError(t, err)
	require.NoError(t, m.AddMigrationList(ctx, NewList("words", MigrationPath, fsys)))
	require.NoError(t, m.Upgrade(ctx))

	latest, err := getLatest(ctx, db, "words")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, StatusComplete, latest.Status)

	// running again applies nothing
	m, err = NewMigrator(ctx, db)
	require.NoError(t, err)
	require.NoError(t, m.AddMigrationList(ctx, NewList("words", MigrationPath, fsys)))
	require.NoError(t, m.Upgrade(ctx))

	var n int
	require.NoError(t, db.QueryRow(ctx, `SELECT count(*) FROM word`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestMigratorFailure(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	fsys := fstest.MapFS{
		MigrationPath + "/0001_create.sql": {Data: []byte(`CREATE TABLE word (id TEXT PRIMARY KEY)`)},
		MigrationPath + "/0002_broken.sql": {Data: []byte(`INSERT INTO missing_table VALUES (1)`)},
	}

	m, err := NewMigrator(ctx, db)
	require.NoError(t, err)
	require.NoError(t, m.AddMigrationList(ctx, NewList("words", MigrationPath, fsys)))
	assert.Error(t, m.Upgrade(ctx))
	assert.Nil(t, db.Txn())

	latest, err := getLatest(ctx, db, "words")
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Version)

	var status string
	require.NoError(t, db.QueryRow(ctx,
		`SELECT migration_status FROM `+TableName+` WHERE migration_code = ? AND migration_version = ?`,
		"words", 2).Scan(&status))
	assert.Equal(t, StatusFailed, status)
}
