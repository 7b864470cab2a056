package security

import (
	"sort"
	"strconv"
	"strings"

	"github.com/querygate/querygate/pkg/errors"
)

// PlaceholderStyle selects the parameter placeholder syntax of a backend.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses "?" placeholders (MySQL, SQLite, Snowflake)
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses "$1".."$n" placeholders (PostgreSQL)
	PlaceholderDollar
)

// Builder constructs parameterized queries from sanitized identifiers.
// All identifiers pass through SanitizeIdentifier; values are never embedded
// in the text, only returned as a parameter list.
type Builder struct {
	style PlaceholderStyle
}

// NewBuilder creates a builder for the given placeholder style.
func NewBuilder(style PlaceholderStyle) *Builder {
	return &Builder{style: style}
}

// SelectOptions customizes BuildSelect output.
type SelectOptions struct {
	Schema  string
	Columns []string
	Where   map[string]interface{}
	OrderBy []string
	Limit   int
}

// BuildSelect builds a parameterized SELECT over sanitized identifiers.
// It returns the query text and the parameter list in placeholder order.
func (b *Builder) BuildSelect(table string, opts SelectOptions) (string, []interface{}, error) {
	fullTable, err := b.qualifiedTable(table, opts.Schema)
	if err != nil {
		return "", nil, err
	}

	colStr := "*"
	if len(opts.Columns) > 0 {
		safeColumns := make([]string, 0, len(opts.Columns))
		for _, c := range opts.Columns {
			if safe := SanitizeIdentifier(c); safe != "" {
				safeColumns = append(safeColumns, safe)
			}
		}
		if len(safeColumns) == 0 {
			return "", nil, errors.New(errors.ErrorTypeQuery, "no valid column names after sanitizing")
		}
		colStr = strings.Join(safeColumns, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(colStr)
	sb.WriteString(" FROM ")
	sb.WriteString(fullTable)

	params := b.appendWhere(&sb, opts.Where)

	if len(opts.OrderBy) > 0 {
		safeOrder := make([]string, 0, len(opts.OrderBy))
		for _, c := range opts.OrderBy {
			if safe := SanitizeIdentifier(c); safe != "" {
				safeOrder = append(safeOrder, safe)
			}
		}
		if len(safeOrder) > 0 {
			sb.WriteString(" ORDER BY ")
			sb.WriteString(strings.Join(safeOrder, ", "))
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}
	sb.WriteString(" LIMIT ")
	sb.WriteString(strconv.Itoa(limit))

	return sb.String(), params, nil
}

// BuildCount builds a parameterized COUNT over sanitized identifiers.
func (b *Builder) BuildCount(table, schema string, where map[string]interface{}) (string, []interface{}, error) {
	fullTable, err := b.qualifiedTable(table, schema)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) AS row_count FROM ")
	sb.WriteString(fullTable)

	params := b.appendWhere(&sb, where)

	return sb.String(), params, nil
}

func (b *Builder) qualifiedTable(table, schema string) (string, error) {
	safeTable := SanitizeIdentifier(table)
	if safeTable == "" {
		return "", errors.New(errors.ErrorTypeQuery, "table name is empty after sanitizing").
			WithDetail("table", table)
	}

	if schema != "" {
		safeSchema := SanitizeIdentifier(schema)
		if safeSchema == "" {
			return "", errors.New(errors.ErrorTypeQuery, "schema name is empty after sanitizing").
				WithDetail("schema", schema)
		}
		return safeSchema + "." + safeTable, nil
	}

	return safeTable, nil
}

// appendWhere appends a WHERE clause with deterministic column order and
// returns the parameter values in placeholder order.
func (b *Builder) appendWhere(sb *strings.Builder, where map[string]interface{}) []interface{} {
	if len(where) == 0 {
		return nil
	}

	columns := make([]string, 0, len(where))
	for col := range where {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	params := make([]interface{}, 0, len(where))
	conditions := make([]string, 0, len(where))
	for _, col := range columns {
		safeCol := SanitizeIdentifier(col)
		if safeCol == "" {
			continue
		}
		params = append(params, where[col])
		conditions = append(conditions, safeCol+" = "+b.placeholder(len(params)))
	}

	if len(conditions) == 0 {
		return nil
	}

	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(conditions, " AND "))
	return params
}

func (b *Builder) placeholder(n int) string {
	if b.style == PlaceholderDollar {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}
