// Package remote defines the table-oriented remote data service that holds the
// authoritative copy of user progress, along with its Postgres implementation
// and an in-memory implementation.
package remote

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/Skyrin/go-safar/e"
)

const (
	TableLessonProgress = "user_lesson_progress"
	TableWordProgress   = "user_word_progress"
	TableProfiles       = "user_profiles"

	ECode030301 = e.Code0303 + "01"
	ECode030302 = e.Code0303 + "02"
)

// ErrSingleRow a single row was requested but zero or several matched
var ErrSingleRow = errors.New(e.MsgSingleRowExpected)

// Record a row keyed by column name
type Record map[string]interface{}

// Service the remote data service. Implementations must be safe for
// sequential use; callers never issue concurrent calls for one user.
type Service interface {
	// Select returns the columns of the rows matching where. No columns, or
	// "*", selects every column
	Select(ctx context.Context, table string, columns []string, where sq.Eq) ([]Record, error)
	// Upsert inserts the row, or updates the existing row that has the same
	// values for the onConflict columns
	Upsert(ctx context.Context, table string, row Record, onConflict []string) error
	// Update sets values on the rows matching where and returns the
	// returning columns of every updated row
	Update(ctx context.Context, table string, values Record, where sq.Eq, returning ...string) ([]Record, error)
}

// SelectSingle selects exactly one row, failing with ErrSingleRow otherwise
func SelectSingle(ctx context.Context, s Service, table string, columns []string,
	where sq.Eq) (r Record, err error) {
	rList, err := s.Select(ctx, table, columns, where)
	if err != nil {
		return nil, e.W(err, ECode030301)
	}

	if len(rList) != 1 {
		return nil, e.W(ErrSingleRow, ECode030302, fmt.Sprintf("rows: %d", len(rList)))
	}

	return rList[0], nil
}

// Protect runs f, converting a panic raised by the remote client into an error
func Protect(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = rerr
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()

	return f()
}

// IsSchemaError returns whether the error reports a column missing from the
// remote schema. Retrying such a write can never succeed
func IsSchemaError(err error) bool {
	if err == nil {
		return false
	}
	if e.IsPQError(err, e.PQErr42703) {
		return true
	}

	msg := strings.ToLower(e.Cause(err))
	return strings.Contains(msg, "column") && strings.Contains(msg, "does not exist")
}

// IsNetworkError returns whether the error looks like a transient
// connectivity failure
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(e.Cause(err))
	return strings.Contains(msg, "fetch") || strings.Contains(msg, "network")
}
