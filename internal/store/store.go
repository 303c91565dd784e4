// Package store gives the tools read access to the relational database.
//
// Every call opens its own connection and closes it before returning, so a
// Store carries no connection state and is safe to share.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const driverName = "sqlite3"

// Column describes one column of a table
type Column struct {
	Name       string `json:"column_name"`
	Type       string `json:"data_type"`
	NotNull    bool   `json:"not_null"`
	PrimaryKey bool   `json:"primary_key"`
}

// Result holds the rows kept from a query and the total number produced
type Result struct {
	Columns []string
	Rows    []Row
	Total   int
}

// Store runs statements against a SQLite database file
type Store struct {
	Path     string
	ReadOnly bool
}

// New creates a store for the database at path
func New(path string, readOnly bool) *Store {
	return &Store{Path: path, ReadOnly: readOnly}
}

// DSN returns the data source name handed to the driver
func (s *Store) DSN() string {
	if s.ReadOnly {
		return "file:" + s.Path + "?mode=ro"
	}
	return s.Path
}

// With opens one connection, hands it to fn, and closes it afterwards
func (s *Store) With(ctx context.Context, fn func(c *Conn) error) error {
	db, err := sql.Open(driverName, s.DSN())
	if err != nil {
		return fmt.Errorf("open database %s: %w", s.Path, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("connect to database %s: %w", s.Path, err)
	}
	return fn(&Conn{db: db})
}

// Tables lists the table names in lexical order
func (s *Store) Tables(ctx context.Context) (names []string, err error) {
	err = s.With(ctx, func(c *Conn) error {
		names, err = c.Tables(ctx)
		return err
	})
	return names, err
}

// Query runs a statement on its own connection, see Conn.Query
func (s *Store) Query(ctx context.Context, query string, keep int) (res *Result, err error) {
	err = s.With(ctx, func(c *Conn) error {
		res, err = c.Query(ctx, query, keep)
		return err
	})
	return res, err
}

// QueryStrings runs query on its own connection, see Conn.QueryStrings
func (s *Store) QueryStrings(ctx context.Context, query string) (out []string, err error) {
	err = s.With(ctx, func(c *Conn) error {
		out, err = c.QueryStrings(ctx, query)
		return err
	})
	return out, err
}

// Conn is a connection opened by Store.With. It must not outlive fn.
type Conn struct {
	db *sql.DB
}

// Tables lists the table names in lexical order
func (c *Conn) Tables(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// TableExists reports whether a table with exactly this name exists
func (c *Conn) TableExists(ctx context.Context, name string) (bool, error) {
	var found string
	err := c.db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&found)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// Columns returns the column metadata of table
func (c *Conn) Columns(ctx context.Context, table string) ([]Column, error) {
	rows, err := c.db.QueryContext(ctx, "PRAGMA table_info("+QuoteIdent(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid     int
			col     Column
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		col.NotNull = notNull != 0
		col.PrimaryKey = pk != 0
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// Sample returns the first n rows of table
func (c *Conn) Sample(ctx context.Context, table string, n int) (*Result, error) {
	return c.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", QuoteIdent(table), n), n)
}

// Query runs a statement and keeps at most keep rows, counting the rest.
// A negative keep retains every row.
func (c *Conn) Query(ctx context.Context, query string, keep int) (*Result, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := &Result{Columns: cols}

	for rows.Next() {
		res.Total++
		if keep >= 0 && len(res.Rows) >= keep {
			continue
		}

		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			values[i] = normalize(v)
		}
		res.Rows = append(res.Rows, Row{Columns: cols, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// QueryStrings runs query and flattens every non-empty value to a string
func (c *Conn) QueryStrings(ctx context.Context, query string) ([]string, error) {
	res, err := c.Query(ctx, query, -1)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, row := range res.Rows {
		for _, v := range row.Values {
			if v == nil {
				continue
			}
			str := fmt.Sprint(v)
			if str != "" {
				out = append(out, str)
			}
		}
	}
	return out, nil
}

// QuoteIdent quotes a SQLite identifier
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
