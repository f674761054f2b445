package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/Skyrin/go-safar/e"
	"github.com/rs/zerolog/log"

	// Including postgres library for the remote data service
	_ "github.com/lib/pq"
	// Including sqlite library for the on-device key-value store
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ECode010101 = e.Code0101 + "01"
	ECode010102 = e.Code0101 + "02"
	ECode010103 = e.Code0101 + "03"
	ECode010104 = e.Code0101 + "04"
	ECode010105 = e.Code0101 + "05"
	ECode010106 = e.Code0101 + "06"
	ECode010107 = e.Code0101 + "07"
	ECode010108 = e.Code0101 + "08"
	ECode010109 = e.Code0101 + "09"
	ECode01010A = e.Code0101 + "0A"
	ECode01010B = e.Code0101 + "0B"
	ECode01010C = e.Code0101 + "0C"
	ECode01010D = e.Code0101 + "0D"
	ECode01010E = e.Code0101 + "0E"
	ECode01010F = e.Code0101 + "0F"
	ECode01010G = e.Code0101 + "0G"
	ECode01010H = e.Code0101 + "0H"
)

// Connection wrapper of the *sql.DB
// If a transaction is started, it is stored internally in the txn and automatically
// used when making DB calls until commit/rollback is executed. If during a txn, a
// call outside of the txn is needed, the DB property can be accessed directly and
// used to make a query/exec/select call.
type Connection struct {
	DB          *sql.DB
	driver      string
	placeholder sq.PlaceholderFormat
	txn         *sql.Tx
}

// ConnParam connection parameters used to initialize a Postgres connection
type ConnParam struct {
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SearchPath string
}

// GetConnectionStr returns a connection string
func GetConnectionStr(cp *ConnParam) (connStr string) {
	var csb strings.Builder

	_, _ = csb.WriteString("host=")
	_, _ = csb.WriteString(cp.Host)
	_, _ = csb.WriteString(" port=")
	_, _ = csb.WriteString(cp.Port)
	_, _ = csb.WriteString(" user=")
	_, _ = csb.WriteString(cp.User)
	_, _ = csb.WriteString(" password=")
	_, _ = csb.WriteString(cp.Password)
	_, _ = csb.WriteString(" dbname=")
	_, _ = csb.WriteString(cp.DBName)

	_, _ = csb.WriteString(" sslmode=")
	if cp.SSLMode != "" {
		_, _ = csb.WriteString(cp.SSLMode)
	} else {
		_, _ = csb.WriteString("require")
	}

	if cp.SearchPath != "" {
		_, _ = csb.WriteString(" search_path=")
		_, _ = csb.WriteString(cp.SearchPath)
	}

	return csb.String()
}

// NewPostgresConn initializes a new Postgres connection
func NewPostgresConn(ctx context.Context, cp *ConnParam) (conn *Connection, err error) {
	if cp == nil {
		return nil, e.N(ECode010101, "no connection parameters")
	}

	sqlConn, err := sql.Open(DriverPostgres, GetConnectionStr(cp))
	if err != nil {
		return nil, e.WrapWithMsg(err, ECode010102, "", "Failed to connect to DB")
	}
	if err := sqlConn.PingContext(ctx); err != nil {
		_ = sqlConn.Close()
		return nil, e.WrapWithMsg(err, ECode010103, "", "Failed to ping DB")
	}

	return NewConnection(sqlConn, DriverPostgres), nil
}

// NewSQLiteConn opens (creating if needed) the SQLite database at the path. The
// database is limited to a single open connection, as SQLite serializes writers
func NewSQLiteConn(ctx context.Context, path string) (conn *Connection, err error) {
	if path == "" {
		return nil, e.N(ECode010104, "no sqlite path")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	sqlConn, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, e.WrapWithMsg(err, ECode010105, "", "Failed to open sqlite DB")
	}
	sqlConn.SetMaxOpenConns(1)

	if err := sqlConn.PingContext(ctx); err != nil {
		_ = sqlConn.Close()
		return nil, e.WrapWithMsg(err, ECode010106, "", "Failed to ping sqlite DB")
	}

	return NewConnection(sqlConn, DriverSQLite), nil
}

// NewConnection wraps an already opened *sql.DB. The driver determines the
// placeholder format used by the statement builders
func NewConnection(db *sql.DB, driver string) (conn *Connection) {
	conn = &Connection{
		DB:          db,
		driver:      driver,
		placeholder: sq.Dollar,
	}
	if driver == DriverSQLite {
		conn.placeholder = sq.Question
	}

	return conn
}

// Driver returns the driver name of the connection
func (c *Connection) Driver() string {
	return c.driver
}

// Close closes the underlying DB
func (c *Connection) Close() (err error) {
	if err := c.DB.Close(); err != nil {
		return e.W(err, ECode010107)
	}

	return nil
}

// Txn returns the underlying transaction, if currently in one
func (c *Connection) Txn() *sql.Tx {
	return c.txn
}

// Begin wrapper for sql.Begin. It doesn't return the txn object, but stores
// it internally and it will be used automatically for subsequent query/exec/select
// calls until commit/rollback is called
func (c *Connection) Begin(ctx context.Context) (err error) {
	if c.txn != nil {
		return e.N(ECode010108, "already in a txn")
	}
	c.txn, err = c.DB.BeginTx(ctx, nil)
	if err != nil {
		return e.W(err, ECode010109)
	}

	return nil
}

// Commit wrapper for sql.Commit. If successfull, will unset the txn object
func (c *Connection) Commit() (err error) {
	if c.txn == nil {
		return e.N(ECode01010A, "not in a txn")
	}

	if err = c.txn.Commit(); err != nil {
		return e.W(err, ECode01010B)
	}

	c.txn = nil

	return nil
}

// RollbackIfInTxn same as Rollback, except if it is in a txn, it will not
// log a warning
func (c *Connection) RollbackIfInTxn() {
	if c.txn == nil {
		return
	}

	c.Rollback()
}

// Rollback wrapper for sql.Rollback - no matter what the transaction will
// be cancelled. So, we will log errors here, but will always assume the
// txn is rolled back and now unavailable
func (c *Connection) Rollback() {
	if c.txn == nil {
		log.Warn().Msg("[Connection.Rollback] not in txn")
		return
	}

	if err := c.txn.Rollback(); err != nil {
		log.Error().Err(err).Msg("[Connection.Rollback]")
	}

	c.txn = nil
}

// Query wrapper for sql.Query with automatic txn handling
func (c *Connection) Query(ctx context.Context, query string, args ...interface{}) (rows *Rows, err error) {
	var sqlRows *sql.Rows
	if c.txn != nil {
		sqlRows, err = c.txn.QueryContext(ctx, query, args...)
	} else {
		sqlRows, err = c.DB.QueryContext(ctx, query, args...)
	}
	if err != nil {
		// Not logging args because it may contain sensitive information. The
		// caller can log them if needed
		return nil, e.W(err, ECode01010C, fmt.Sprintf("query: %s", query))
	}

	return &Rows{
		rows:  sqlRows,
		query: query,
	}, nil
}

// Exec wrapper for sql.Exec with automatic txn handling
func (c *Connection) Exec(ctx context.Context, query string, args ...interface{}) (res sql.Result, err error) {
	if c.txn != nil {
		res, err = c.txn.ExecContext(ctx, query, args...)
	} else {
		res, err = c.DB.ExecContext(ctx, query, args...)
	}
	if err != nil {
		// Not logging args because it may contain sensitive information. The
		// caller can log them if needed
		return nil, e.W(err, ECode01010D, fmt.Sprintf("query: %s", query))
	}

	return res, nil
}

// QueryRow wrapper for sql.QueryRow with automatic txn handling
func (c *Connection) QueryRow(ctx context.Context, query string, args ...interface{}) (row *Row) {
	if c.txn != nil {
		return &Row{
			row:   c.txn.QueryRowContext(ctx, query, args...),
			query: query,
		}
	}
	return &Row{
		row:   c.DB.QueryRowContext(ctx, query, args...),
		query: query,
	}
}

// Select wrapper for github.com/Masterminds/squirrel.Select
func (c *Connection) Select(columns ...string) sq.SelectBuilder {
	return sq.StatementBuilder.PlaceholderFormat(c.placeholder).Select(columns...)
}

// Insert wrapper for github.com/Masterminds/squirrel.Insert
func (c *Connection) Insert(table string) sq.InsertBuilder {
	return sq.StatementBuilder.PlaceholderFormat(c.placeholder).Insert(table)
}

// Delete wrapper for github.com/Masterminds/squirrel.Delete
func (c *Connection) Delete(from string) sq.DeleteBuilder {
	return sq.StatementBuilder.PlaceholderFormat(c.placeholder).Delete(from)
}

// Update wrapper for github.com/Masterminds/squirrel.Update
func (c *Connection) Update(table string) sq.UpdateBuilder {
	return sq.StatementBuilder.PlaceholderFormat(c.placeholder).Update(table)
}

// ToSQLAndQuery converts the builder to a SQL statement and bind parameters,
// then attempts to execute the query, returning the rows. Any builder producing
// rows works, e.g. a select or an update with a RETURNING suffix
func (c *Connection) ToSQLAndQuery(ctx context.Context, b sq.Sqlizer) (rows *Rows, err error) {
	stmt, bindList, err := b.ToSql()
	if err != nil {
		return nil, e.W(err, ECode01010E, fmt.Sprintf("stmt: %s", stmt))
	}

	rows, err = c.Query(ctx, stmt, bindList...)
	if err != nil {
		return nil, e.W(err, ECode01010F)
	}

	return rows, nil
}

// ToSQLAndExec converts the builder to a SQL statement and bind parameters,
// then executes it, returning the number of affected rows
func (c *Connection) ToSQLAndExec(ctx context.Context, b sq.Sqlizer) (affected int64, err error) {
	stmt, bindList, err := b.ToSql()
	if err != nil {
		return 0, e.W(err, ECode01010G, fmt.Sprintf("stmt: %s", stmt))
	}

	res, err := c.Exec(ctx, stmt, bindList...)
	if err != nil {
		return 0, e.W(err, ECode01010H)
	}

	// Not every driver reports affected rows, treat that as unknown (0)
	affected, _ = res.RowsAffected()

	return affected, nil
}
