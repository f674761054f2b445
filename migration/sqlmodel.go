package migration

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/Skyrin/go-safar/e"
	"github.com/Skyrin/go-safar/sql"
)

const (
	TableName = "safar_migration"

	StatusPending  = "pending"
	StatusComplete = "complete"
	StatusFailed   = "failed"

	ECode090301 = e.Code0903 + "01"
	ECode090302 = e.Code0903 + "02"
	ECode090303 = e.Code0903 + "03"
	ECode090304 = e.Code0903 + "04"
	ECode090305 = e.Code0903 + "05"
	ECode090306 = e.Code0903 + "06"
)

// ErrMigrationNone no completed migration exists for the code yet
var ErrMigrationNone = errors.New(e.MsgMigrationNone)

// The tracking table must be valid for both Postgres and SQLite
const installSQL = `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
	migration_code TEXT NOT NULL,
	migration_version INTEGER NOT NULL,
	migration_status TEXT NOT NULL,
	migration_err TEXT NOT NULL DEFAULT '',
	created_on TEXT NOT NULL,
	updated_on TEXT NOT NULL,
	PRIMARY KEY (migration_code, migration_version)
)`

// Migration a tracked migration version
type Migration struct {
	Code    string
	Version int
	Status  string
	Err     string
}

func install(ctx context.Context, db *sql.Connection) (err error) {
	if _, err := db.Exec(ctx, installSQL); err != nil {
		return e.W(err, ECode090301)
	}

	return nil
}

// getLatest returns the highest completed migration for the code
func getLatest(ctx context.Context, db *sql.Connection, code string) (m *Migration, err error) {
	sb := db.Select("migration_code", "migration_version", "migration_status", "migration_err").
		From(TableName).
		Where(sq.Eq{"migration_code": code, "migration_status": StatusComplete}).
		OrderBy("migration_version desc").
		Limit(1)

	rows, err := db.ToSQLAndQuery(ctx, sb)
	if err != nil {
		return nil, e.W(err, ECode090302)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, e.W(err, ECode090303)
		}
		return nil, e.W(ErrMigrationNone, ECode090304, code)
	}

	m = &Migration{}
	if err := rows.Scan(&m.Code, &m.Version, &m.Status, &m.Err); err != nil {
		return nil, e.W(err, ECode090305)
	}

	return m, nil
}

// setStatus records the status of a migration version
func setStatus(ctx context.Context, db *sql.Connection, code string, version int,
	status, errMsg string) (err error) {
	now := time.Now().UTC().Format(time.RFC3339)
	ib := db.Insert(TableName).
		Columns("migration_code", "migration_version", "migration_status", "migration_err",
			"created_on", "updated_on").
		Values(code, version, status, errMsg, now, now).
		Suffix(`ON CONFLICT (migration_code, migration_version) DO UPDATE
			SET migration_status=excluded.migration_status,
			migration_err=excluded.migration_err,
			updated_on=excluded.updated_on`)

	if _, err := db.ToSQLAndExec(ctx, ib); err != nil {
		return e.W(err, ECode090306)
	}

	return nil
}
