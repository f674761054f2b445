package remote

import (
	"context"
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/Skyrin/go-safar/e"
)

const (
	OpSelect = "select"
	OpUpsert = "upsert"
	OpUpdate = "update"

	ECode030201 = e.Code0302 + "01"
	ECode030202 = e.Code0302 + "02"
	ECode030203 = e.Code0302 + "03"
)

// Call a recorded call against the Memory service
type Call struct {
	Op         string
	Table      string
	Columns    []string
	Row        Record
	OnConflict []string
	Where      sq.Eq
	Returning  []string
}

// Memory an in-memory Service. Tables hold rows in insertion order and every
// inserted row gets an integer "id". Every call is recorded, and an optional
// Hook can fail (or panic) calls before they are applied
type Memory struct {
	// Hook is called before each call is applied; a returned error fails it
	Hook func(c Call) error

	mu     sync.Mutex
	tables map[string][]Record
	calls  []Call
	nextID int64
}

// NewMemory returns an empty in-memory service
func NewMemory() *Memory {
	return &Memory{
		tables: make(map[string][]Record),
	}
}

// Seed appends the rows to the table as is
func (m *Memory) Seed(table string, rows ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range rows {
		m.tables[table] = append(m.tables[table], copyRecord(r))
	}
}

// Rows returns a copy of the table's rows
func (m *Memory) Rows(table string) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	rList := make([]Record, 0, len(m.tables[table]))
	for _, r := range m.tables[table] {
		rList = append(rList, copyRecord(r))
	}

	return rList
}

// Calls returns a copy of all recorded calls
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Call(nil), m.calls...)
}

// Select implements Service
func (m *Memory) Select(ctx context.Context, table string, columns []string,
	where sq.Eq) (rList []Record, err error) {
	if err := m.before(ctx, Call{Op: OpSelect, Table: table, Columns: columns, Where: where}); err != nil {
		return nil, e.W(err, ECode030201)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.tables[table] {
		if matches(r, where) {
			rList = append(rList, project(r, columns))
		}
	}

	return rList, nil
}

// Upsert implements Service
func (m *Memory) Upsert(ctx context.Context, table string, row Record,
	onConflict []string) (err error) {
	c := Call{Op: OpUpsert, Table: table, Row: copyRecord(row), OnConflict: onConflict}
	if err := m.before(ctx, c); err != nil {
		return e.W(err, ECode030202)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(onConflict) > 0 {
		key := sq.Eq{}
		for _, col := range onConflict {
			key[col] = row[col]
		}
		for _, r := range m.tables[table] {
			if matches(r, key) {
				for k, v := range row {
					r[k] = v
				}
				return nil
			}
		}
	}

	m.nextID++
	r := copyRecord(row)
	if _, ok := r["id"]; !ok {
		r["id"] = m.nextID
	}
	m.tables[table] = append(m.tables[table], r)

	return nil
}

// Update implements Service
func (m *Memory) Update(ctx context.Context, table string, values Record, where sq.Eq,
	returning ...string) (rList []Record, err error) {
	c := Call{Op: OpUpdate, Table: table, Row: copyRecord(values), Where: where, Returning: returning}
	if err := m.before(ctx, c); err != nil {
		return nil, e.W(err, ECode030203)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.tables[table] {
		if !matches(r, where) {
			continue
		}
		for k, v := range values {
			r[k] = v
		}
		if len(returning) > 0 {
			rList = append(rList, project(r, returning))
		}
	}

	return rList, nil
}

func (m *Memory) before(ctx context.Context, c Call) error {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	hook := m.Hook
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if hook != nil {
		return hook(c)
	}

	return nil
}

func matches(r Record, where sq.Eq) bool {
	for k, v := range where {
		if fmt.Sprint(r[k]) != fmt.Sprint(v) {
			return false
		}
	}

	return true
}

func project(r Record, columns []string) Record {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		return copyRecord(r)
	}

	p := make(Record, len(columns))
	for _, c := range columns {
		if v, ok := r[c]; ok {
			p[c] = v
		}
	}

	return p
}

func copyRecord(r Record) Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}

	return c
}
