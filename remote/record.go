package remote

import (
	"fmt"
	"strconv"
	"time"
)

// The accessors below normalize the column types returned by the different
// Service implementations (the Postgres driver returns int64, float64, bool,
// string and time.Time; Memory returns whatever was written)

// String returns the column as a string. Times are formatted as RFC 3339 in
// UTC with millisecond precision, nil is ""
func (r Record) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns the column as a bool; anything not recognised is false
func (r Record) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case int64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}

// Int returns the column as an int; anything not recognised is 0
func (r Record) Int(col string) int {
	switch v := r[col].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	case string:
		i, _ := strconv.Atoi(v)
		return i
	default:
		return 0
	}
}

// Float returns the column as a float64; anything not recognised is 0
func (r Record) Float(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}
