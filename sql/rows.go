package sql

import (
	"database/sql"
	"fmt"

	"github.com/Skyrin/go-safar/e"
)

const (
	ECode010301 = e.Code0103 + "01"
	ECode010302 = e.Code0103 + "02"
	ECode010303 = e.Code0103 + "03"
	ECode010304 = e.Code0103 + "04"
	ECode010305 = e.Code0103 + "05"
)

// Rows wrapper struct for sql.Rows, so error handling can happen
type Rows struct {
	rows  *sql.Rows
	query string
}

// Scan wrapper for row's Scan, which returns an extended error instead
func (r *Rows) Scan(dest ...interface{}) error {
	if err := r.rows.Scan(dest...); err != nil {
		return e.W(err, ECode010301, fmt.Sprintf("query: %s", r.query))
	}

	return nil
}

// Columns wrapper for rows' Columns func
func (r *Rows) Columns() ([]string, error) {
	cols, err := r.rows.Columns()
	if err != nil {
		return nil, e.W(err, ECode010304, fmt.Sprintf("query: %s", r.query))
	}

	return cols, nil
}

// Err wrapper for row's Err func
func (r *Rows) Err() error {
	err := r.rows.Err()
	if err == nil {
		return nil
	}

	return e.W(err, ECode010302, fmt.Sprintf("query: %s", r.query))
}

// Close wrapper for row's Close func - returns extended error instead
func (r *Rows) Close() error {
	if err := r.rows.Close(); err != nil {
		return e.W(err, ECode010303, fmt.Sprintf("query: %s", r.query))
	}

	return nil
}

// Next wrapper for row's Next func
func (r *Rows) Next() bool {
	return r.rows.Next()
}

// MapScan scans all remaining rows into maps keyed by column name. Byte slices
// are converted to strings, as the drivers return text columns that way
func (r *Rows) MapScan() (list []map[string]interface{}, err error) {
	cols, err := r.Columns()
	if err != nil {
		return nil, e.W(err, ECode010305)
	}

	for r.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}

		if err := r.Scan(ptrs...); err != nil {
			return nil, err
		}

		m := make(map[string]interface{}, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				m[c] = string(b)
				continue
			}
			m[c] = vals[i]
		}
		list = append(list, m)
	}

	if err := r.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
