package remote

import (
	"context"
	"embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/Skyrin/go-safar/e"
	"github.com/Skyrin/go-safar/migration"
	"github.com/Skyrin/go-safar/sql"
)

//go:embed db/migrations/*
var migrations embed.FS

const (
	MigrationCode = "remote"

	ECode030101 = e.Code0301 + "01"
	ECode030102 = e.Code0301 + "02"
	ECode030103 = e.Code0301 + "03"
	ECode030104 = e.Code0301 + "04"
	ECode030105 = e.Code0301 + "05"
	ECode030106 = e.Code0301 + "06"
	ECode030107 = e.Code0301 + "07"
	ECode030108 = e.Code0301 + "08"
	ECode030109 = e.Code0301 + "09"
	ECode03010A = e.Code0301 + "0A"
	ECode03010B = e.Code0301 + "0B"
)

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// GetMigrationList returns the migrations creating the remote progress tables
func GetMigrationList() (ml *migration.List) {
	return migration.NewList(MigrationCode, migration.MigrationPath, migrations)
}

// Postgres a Service backed by a Postgres connection
type Postgres struct {
	db *sql.Connection
}

// NewPostgres returns a Service using the connection
func NewPostgres(db *sql.Connection) *Postgres {
	return &Postgres{db: db}
}

// Select implements Service
func (p *Postgres) Select(ctx context.Context, table string, columns []string,
	where sq.Eq) (rList []Record, err error) {
	sb, err := p.selectBuilder(table, columns, where)
	if err != nil {
		return nil, e.W(err, ECode030101)
	}

	rows, err := p.db.ToSQLAndQuery(ctx, sb)
	if err != nil {
		return nil, e.W(err, ECode030102)
	}
	defer rows.Close()

	mList, err := rows.MapScan()
	if err != nil {
		return nil, e.W(err, ECode030103)
	}

	return toRecords(mList), nil
}

// Upsert implements Service
func (p *Postgres) Upsert(ctx context.Context, table string, row Record,
	onConflict []string) (err error) {
	ib, err := p.upsertBuilder(table, row, onConflict)
	if err != nil {
		return e.W(err, ECode030104)
	}

	if _, err := p.db.ToSQLAndExec(ctx, ib); err != nil {
		return e.W(err, ECode030105)
	}

	return nil
}

// Update implements Service
func (p *Postgres) Update(ctx context.Context, table string, values Record, where sq.Eq,
	returning ...string) (rList []Record, err error) {
	ub, err := p.updateBuilder(table, values, where, returning)
	if err != nil {
		return nil, e.W(err, ECode030106)
	}

	if len(returning) == 0 {
		if _, err := p.db.ToSQLAndExec(ctx, ub); err != nil {
			return nil, e.W(err, ECode030107)
		}
		return nil, nil
	}

	rows, err := p.db.ToSQLAndQuery(ctx, ub)
	if err != nil {
		return nil, e.W(err, ECode030108)
	}
	defer rows.Close()

	mList, err := rows.MapScan()
	if err != nil {
		return nil, e.W(err, ECode030109)
	}

	return toRecords(mList), nil
}

func (p *Postgres) selectBuilder(table string, columns []string,
	where sq.Eq) (sb sq.SelectBuilder, err error) {
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	if err := checkIdent(append([]string{table}, columns...)...); err != nil {
		return sb, err
	}

	sb = p.db.Select(columns...).From(table)
	if len(where) > 0 {
		if err := checkIdent(sortedKeys(where)...); err != nil {
			return sb, err
		}
		sb = sb.Where(where)
	}

	return sb, nil
}

func (p *Postgres) upsertBuilder(table string, row Record,
	onConflict []string) (ib sq.InsertBuilder, err error) {
	cols := sortedKeys(row)
	if len(cols) == 0 {
		return ib, e.N(ECode03010A, "no columns to upsert")
	}
	if err := checkIdent(append(append([]string{table}, cols...), onConflict...)...); err != nil {
		return ib, err
	}

	vals := make([]interface{}, 0, len(cols))
	for _, c := range cols {
		vals = append(vals, row[c])
	}

	ib = p.db.Insert(table).Columns(cols...).Values(vals...)
	if len(onConflict) == 0 {
		return ib, nil
	}

	isKey := make(map[string]bool, len(onConflict))
	for _, c := range onConflict {
		isKey[c] = true
	}

	setList := make([]string, 0, len(cols))
	for _, c := range cols {
		if !isKey[c] {
			setList = append(setList, fmt.Sprintf("%s=excluded.%s", c, c))
		}
	}

	if len(setList) == 0 {
		return ib.Suffix(fmt.Sprintf("ON CONFLICT (%s) DO NOTHING",
			strings.Join(onConflict, ","))), nil
	}

	return ib.Suffix(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s",
		strings.Join(onConflict, ","), strings.Join(setList, ", "))), nil
}

func (p *Postgres) updateBuilder(table string, values Record, where sq.Eq,
	returning []string) (ub sq.UpdateBuilder, err error) {
	if len(values) == 0 {
		return ub, e.N(ECode03010B, "no columns to update")
	}
	if len(where) == 0 {
		return ub, e.N(ECode03010B, "update requires a filter")
	}

	cols := sortedKeys(values)
	if err := checkIdent(append(append(append([]string{table}, cols...),
		sortedKeys(where)...), returning...)...); err != nil {
		return ub, err
	}

	ub = p.db.Update(table).Where(where)
	for _, c := range cols {
		ub = ub.Set(c, values[c])
	}

	if len(returning) > 0 {
		ub = ub.Suffix("RETURNING " + strings.Join(returning, ", "))
	}

	return ub, nil
}

func checkIdent(list ...string) error {
	for _, s := range list {
		if s == "*" || identRe.MatchString(s) {
			continue
		}
		return e.N(ECode03010B, fmt.Sprintf("invalid identifier: %q", s))
	}

	return nil
}

func sortedKeys[M ~map[string]interface{}](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

func toRecords(mList []map[string]interface{}) []Record {
	rList := make([]Record, 0, len(mList))
	for _, m := range mList {
		rList = append(rList, Record(m))
	}

	return rList
}
