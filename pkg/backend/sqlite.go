package backend

import (
	"context"
	"database/sql"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/querygate/querygate/pkg/security"
)

func init() {
	register("sqlite", newSQLite)
	register("sqlite3", newSQLite)
}

// sqliteBackend serves local and in-memory databases; it is also the engine
// the integration tests run against.
type sqliteBackend struct {
	dsn string
}

func newSQLite(dsn string, credentials map[string]string) (Backend, error) {
	return &sqliteBackend{dsn: dsn}, nil
}

func (b *sqliteBackend) Name() string { return "sqlite" }

func (b *sqliteBackend) Dialect() Dialect {
	return Dialect{
		Name:          "sqlite",
		Placeholder:   security.PlaceholderQuestion,
		QuoteChar:     `"`,
		DefaultSchema: "main",

		HealthCheckQuery: "SELECT 1",
		// sqlite has no schema dimension; sqlite_master covers the database.
		ListTablesQuery: `SELECT 'main' AS table_schema, name AS table_name, upper(type) AS table_type
FROM sqlite_master
WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
ORDER BY name`,
		ListTablesBySchema: false,
		DescribeTableQuery: `SELECT name AS column_name, type AS data_type,
CASE "notnull" WHEN 0 THEN 'YES' ELSE 'NO' END AS is_nullable,
dflt_value AS column_default
FROM pragma_table_info(?)
ORDER BY cid`,
	}
}

func (b *sqliteBackend) Open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", b.dsn)
	if err != nil {
		return nil, err
	}
	return open(ctx, db, "sqlite")
}
