package gateway

import (
	"context"
	"fmt"
	"strconv"

	"github.com/querygate/querygate/pkg/errors"
	"github.com/querygate/querygate/pkg/models"
	"github.com/querygate/querygate/pkg/security"
)

// ListTables enumerates tables and views visible in the schema. An empty
// schema falls back to the dialect default.
func (g *Gateway) ListTables(ctx context.Context, schema string) ([]models.TableInfo, error) {
	d := g.backend.Dialect()

	var args []interface{}
	if d.ListTablesBySchema {
		if schema == "" {
			schema = d.DefaultSchema
		}
		args = []interface{}{schema}
	}

	result, err := g.run(ctx, "list_tables", d.ListTablesQuery, args)
	if err != nil {
		return nil, err
	}

	tables := make([]models.TableInfo, 0, len(result.Rows))
	for _, row := range result.Rows {
		tables = append(tables, models.TableInfo{
			Schema: asString(row["table_schema"]),
			Name:   asString(row["table_name"]),
			Type:   asString(row["table_type"]),
		})
	}
	return tables, nil
}

// DescribeTable returns column metadata for one table in backend column
// order. The table name is sanitized before it reaches the backend.
func (g *Gateway) DescribeTable(ctx context.Context, table, schema string) ([]models.ColumnInfo, error) {
	safeTable := security.SanitizeIdentifier(table)
	if safeTable == "" {
		return nil, errors.New(errors.ErrorTypeQuery, "table name is empty after sanitizing").
			WithDetail("table", table)
	}

	d := g.backend.Dialect()

	var args []interface{}
	if d.ListTablesBySchema {
		if schema == "" {
			schema = d.DefaultSchema
		}
		args = []interface{}{schema, safeTable}
	} else {
		args = []interface{}{safeTable}
	}

	result, err := g.run(ctx, "describe_table", d.DescribeTableQuery, args)
	if err != nil {
		return nil, err
	}

	columns := make([]models.ColumnInfo, 0, len(result.Rows))
	for _, row := range result.Rows {
		columns = append(columns, models.ColumnInfo{
			Name:     asString(row["column_name"]),
			DataType: asString(row["data_type"]),
			Nullable: asString(row["is_nullable"]) == "YES",
			Default:  asString(row["column_default"]),
		})
	}
	return columns, nil
}

// SampleRows returns up to limit rows from the table through the builder, so
// the statement is parameterized and identifier-sanitized end to end.
func (g *Gateway) SampleRows(ctx context.Context, table, schema string, limit int) (*models.QueryResult, error) {
	if limit <= 0 {
		limit = 10
	}

	query, args, err := g.builder.BuildSelect(table, security.SelectOptions{
		Schema: schema,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}

	return g.run(ctx, "get_sample_data", query, args)
}

// CountRows counts table rows, optionally filtered by equality conditions.
func (g *Gateway) CountRows(ctx context.Context, table, schema string, where map[string]interface{}) (int64, error) {
	query, args, err := g.builder.BuildCount(table, schema, where)
	if err != nil {
		return 0, err
	}

	result, err := g.run(ctx, "count_rows", query, args)
	if err != nil {
		return 0, err
	}
	if len(result.Rows) == 0 {
		return 0, errors.New(errors.ErrorTypeQuery, "count query returned no rows")
	}

	count, err := asInt64(result.Rows[0]["row_count"])
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeQuery, "unexpected count value")
	}
	return count, nil
}

// TestConnection proves the gateway can reach the backend.
func (g *Gateway) TestConnection(ctx context.Context) error {
	_, err := g.run(ctx, "test_connection", g.backend.Dialect().HealthCheckQuery, nil)
	return err
}

func asString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}
