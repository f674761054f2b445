package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/Skyrin/go-safar/e"
	"github.com/Skyrin/go-safar/sql"
)

const (
	TableName = "kv_store"

	ECode020101 = e.Code0201 + "01"
	ECode020102 = e.Code0201 + "02"
	ECode020103 = e.Code0201 + "03"
	ECode020104 = e.Code0201 + "04"
	ECode020105 = e.Code0201 + "05"
)

// SQL a Store persisted in the kv_store table. On a device this is a SQLite
// file (see sql.NewSQLiteConn), but any connection with the table works
type SQL struct {
	db  *sql.Connection
	now func() time.Time
}

// NewSQL returns a store backed by the kv_store table of the connection. The
// table is created by the store migrations (see GetMigrationList)
func NewSQL(db *sql.Connection) *SQL {
	return &SQL{
		db:  db,
		now: time.Now,
	}
}

// Get implements Store
func (s *SQL) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	rows, err := s.db.ToSQLAndQuery(ctx, s.getBuilder(key))
	if err != nil {
		return "", false, e.W(err, ECode020101)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", false, e.W(err, ECode020102)
		}
		return "", false, nil
	}

	if err := rows.Scan(&value); err != nil {
		return "", false, e.W(err, ECode020103)
	}

	return value, true, nil
}

// Set implements Store
func (s *SQL) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ToSQLAndExec(ctx, s.setBuilder(key, value)); err != nil {
		return e.W(err, ECode020104)
	}

	return nil
}

// Remove implements Store
func (s *SQL) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ToSQLAndExec(ctx, s.removeBuilder(key)); err != nil {
		return e.W(err, ECode020105)
	}

	return nil
}

func (s *SQL) getBuilder(key string) sq.SelectBuilder {
	return s.db.Select("kv_value").
		From(TableName).
		Where(sq.Eq{"kv_key": key}).
		Limit(1)
}

func (s *SQL) setBuilder(key, value string) sq.InsertBuilder {
	return s.db.Insert(TableName).
		Columns("kv_key", "kv_value", "updated_on").
		Values(key, value, s.now().UTC().Format(time.RFC3339Nano)).
		Suffix(`ON CONFLICT (kv_key) DO UPDATE
			SET kv_value=excluded.kv_value,
			updated_on=excluded.updated_on`)
}

func (s *SQL) removeBuilder(key string) sq.DeleteBuilder {
	return s.db.Delete(TableName).
		Where(sq.Eq{"kv_key": key})
}
