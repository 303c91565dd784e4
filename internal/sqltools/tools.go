// Package sqltools exposes the database to the agent as tools: listing and
// describing tables, running queries, checking queries with a model, and
// resolving proper nouns.
package sqltools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/reinhart/sqlagent/internal/assistant"
	"github.com/reinhart/sqlagent/internal/logger"
	"github.com/reinhart/sqlagent/internal/nouns"
	"github.com/reinhart/sqlagent/internal/safety"
	"github.com/reinhart/sqlagent/internal/store"
)

const (
	ListTablesName        = "list_sql_database"
	DescribeTablesName    = "info_sql_database"
	QueryName             = "query_sql_database"
	CheckQueryName        = "query_sql_checker"
	SearchProperNounsName = "search_proper_nouns"
)

const (
	DefaultMaxRows    = 100
	DefaultSampleRows = 3
)

// Toolset collects what the tools need. Checker and Nouns are optional and
// their tools are left out when nil.
type Toolset struct {
	Store      *store.Store
	Guard      *safety.Guard
	Checker    assistant.LLMProvider
	Nouns      *nouns.Index
	Dialect    string
	MaxRows    int
	SampleRows int
	TopK       int
}

// Tools returns the configured tools in presentation order
func (ts Toolset) Tools() []assistant.Tool {
	tools := []assistant.Tool{
		&ListTables{Store: ts.Store},
		&DescribeTables{Store: ts.Store, SampleRows: ts.SampleRows},
		&QuerySQL{Store: ts.Store, Guard: ts.Guard, MaxRows: ts.MaxRows},
	}
	if ts.Checker != nil {
		tools = append(tools, &CheckSQL{Provider: ts.Checker, Dialect: ts.Dialect})
	}
	if ts.Nouns != nil {
		tools = append(tools, &SearchProperNouns{Index: ts.Nouns, TopK: ts.TopK})
	}
	return tools
}

// ListResult is the payload of list_sql_database
type ListResult struct {
	Message string   `json:"message"`
	Tables  []string `json:"tables"`
}

// ListTables lists every table in the database
type ListTables struct {
	Store *store.Store
}

func (t *ListTables) Definition() assistant.ToolDefinition {
	return assistant.ToolDefinition{
		Name:        ListTablesName,
		Description: "List all available tables in the database.",
		Parameters:  assistant.ObjectSchema(nil),
	}
}

func (t *ListTables) Execute(ctx context.Context, _ map[string]any) (any, error) {
	tables, err := t.Store.Tables(ctx)
	if err != nil {
		return assistant.NewErrorResult(err, "Failed to list database tables."), nil
	}
	return ListResult{
		Message: fmt.Sprintf("Found %d tables in the database", len(tables)),
		Tables:  tables,
	}, nil
}

// TableInfo describes one table of info_sql_database
type TableInfo struct {
	Schema     []store.Column `json:"schema"`
	SampleRows []store.Row    `json:"sample_rows"`
	RowCount   int            `json:"row_count"`
}

// TableError replaces TableInfo for a table that could not be described
type TableError struct {
	Error string `json:"error"`
}

// DescribeResult is the payload of info_sql_database. Each value is a
// TableInfo or a TableError.
type DescribeResult struct {
	Tables map[string]any `json:"tables"`
}

// Empty reports whether no requested table could be described
func (r DescribeResult) Empty() bool {
	for _, v := range r.Tables {
		if _, ok := v.(TableInfo); ok {
			return false
		}
	}
	return true
}

// DescribeTables reports column metadata and sample rows for named tables
type DescribeTables struct {
	Store      *store.Store
	SampleRows int
}

func (t *DescribeTables) Definition() assistant.ToolDefinition {
	return assistant.ToolDefinition{
		Name:        DescribeTablesName,
		Description: "Get schema information and sample rows for specified tables. Use " + ListTablesName + " first to see available tables.",
		Parameters: assistant.ObjectSchema(map[string]*assistant.Schema{
			"tables": assistant.StringProperty("Comma-separated list of table names to get information for (e.g., 'Artist, Album, Track')"),
		}, "tables"),
	}
}

// SplitTableNames splits a comma-separated list, dropping empty entries
func SplitTableNames(tables string) []string {
	var names []string
	for _, name := range strings.Split(tables, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (t *DescribeTables) Execute(ctx context.Context, args map[string]any) (any, error) {
	const failed = "Failed to retrieve table information."

	raw, _ := args["tables"].(string)
	names := SplitTableNames(raw)
	if len(names) == 0 {
		return assistant.NewErrorResult(errors.New("no table names given"), failed), nil
	}

	samples := t.SampleRows
	if samples <= 0 {
		samples = DefaultSampleRows
	}

	result := DescribeResult{Tables: make(map[string]any, len(names))}
	err := t.Store.With(ctx, func(c *store.Conn) error {
		for _, name := range names {
			info, err := describe(ctx, c, name, samples)
			if err != nil {
				logger.Debug("describe %s: %v", name, err)
				result.Tables[name] = TableError{Error: err.Error()}
				continue
			}
			result.Tables[name] = info
		}
		return nil
	})
	if err != nil {
		return assistant.NewErrorResult(err, failed), nil
	}
	return result, nil
}

// describe returns a TableInfo, or a TableError for a missing table
func describe(ctx context.Context, c *store.Conn, name string, samples int) (any, error) {
	ok, err := c.TableExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return TableError{Error: fmt.Sprintf("Table '%s' does not exist", name)}, nil
	}

	cols, err := c.Columns(ctx, name)
	if err != nil {
		return nil, err
	}
	sample, err := c.Sample(ctx, name, samples)
	if err != nil {
		return nil, err
	}

	rows := sample.Rows
	if rows == nil {
		rows = []store.Row{}
	}
	return TableInfo{Schema: cols, SampleRows: rows, RowCount: len(rows)}, nil
}

// QueryResult is the payload of query_sql_database. Data and TotalRows are
// omitted when the query produced no rows.
type QueryResult struct {
	Message   string      `json:"message"`
	Data      []store.Row `json:"data,omitempty"`
	TotalRows int         `json:"total_rows,omitempty"`
}

// QuerySQL runs a statement and returns at most MaxRows rows
type QuerySQL struct {
	Store   *store.Store
	Guard   *safety.Guard
	MaxRows int
}

func (t *QuerySQL) Definition() assistant.ToolDefinition {
	return assistant.ToolDefinition{
		Name:        QueryName,
		Description: "Execute a SQL query against the database. Returns results or error message.",
		Parameters: assistant.ObjectSchema(map[string]*assistant.Schema{
			"query": assistant.StringProperty("A detailed and correct SQL query to execute against the database"),
		}, "query"),
	}
}

func (t *QuerySQL) Execute(ctx context.Context, args map[string]any) (any, error) {
	const failed = "Query failed. Please check your SQL syntax and table/column names."

	query, _ := args["query"].(string)
	if err := t.Guard.Check(query); err != nil {
		logger.Info("Rejected query: %v", err)
		return assistant.NewErrorResult(err, failed), nil
	}

	limit := t.MaxRows
	if limit <= 0 {
		limit = DefaultMaxRows
	}

	logger.Debug("Executing query: %s", query)
	res, err := t.Store.Query(ctx, query, limit)
	if err != nil {
		return assistant.NewErrorResult(err, failed), nil
	}

	if res.Total == 0 {
		return QueryResult{Message: "Query executed successfully but returned no results."}, nil
	}
	msg := fmt.Sprintf("Query returned %d rows.", res.Total)
	if res.Total > limit {
		msg = fmt.Sprintf("Query returned %d rows. Showing first %d rows.", res.Total, limit)
	}
	return QueryResult{Message: msg, Data: res.Rows, TotalRows: res.Total}, nil
}
