package sql

import (
	"database/sql"
	"fmt"

	"github.com/Skyrin/go-safar/e"
)

const (
	ECode010201 = e.Code0102 + "01"
	ECode010202 = e.Code0102 + "02"
)

// ErrNoRows is returned (wrapped) by Row.Scan when the query returned no rows
var ErrNoRows = sql.ErrNoRows

// Row a wrapper struct for sql.Row, so error handling can happen
type Row struct {
	row   *sql.Row
	query string
}

// Scan wrapper for row's Scan, which returns an extended error instead
func (r *Row) Scan(dest ...interface{}) error {
	if err := r.row.Scan(dest...); err != nil {
		return e.W(err, ECode010201, fmt.Sprintf("query: %s", r.query))
	}

	return nil
}

// Err wrapper for row's Err func
func (r *Row) Err() error {
	err := r.row.Err()
	if err == nil {
		return nil
	}

	return e.W(err, ECode010202, fmt.Sprintf("query: %s", r.query))
}
