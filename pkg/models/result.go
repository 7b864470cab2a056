// Package models provides data models and structures for QueryGate.
// It defines the standardized query result shape shared by the gateway,
// the backend adapters, and the result shaper.
package models

import "time"

// Row is one result row: a mapping from column name to value. Go maps carry
// no order, so column order lives in QueryResult.Columns; the shaper and the
// gateway preserve that slice alongside the rows. A row is never mutated
// after creation, only transformed into a masked copy.
type Row = map[string]interface{}

// QueryResult is the standardized result of one executed query.
type QueryResult struct {
	// Columns holds the result column names in backend order
	Columns []string `json:"columns"`

	// Rows holds the result rows, one map per row
	Rows []Row `json:"rows"`

	// RowCount is the number of rows returned (after truncation)
	RowCount int `json:"row_count"`

	// ExecutionTime is how long the backend took to run the query
	ExecutionTime time.Duration `json:"execution_time"`

	// Truncated indicates the result was cut at the configured row limit
	Truncated bool `json:"truncated"`

	// Message carries an optional human-readable note (e.g. truncation)
	Message string `json:"message,omitempty"`
}

// TableInfo describes one table visible to the gateway user.
type TableInfo struct {
	Schema string `json:"schema,omitempty"`
	Name   string `json:"name"`
	Type   string `json:"type,omitempty"`
}

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
}
