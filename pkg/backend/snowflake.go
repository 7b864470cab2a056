package backend

import (
	"context"
	"database/sql"

	sf "github.com/snowflakedb/gosnowflake"

	"github.com/querygate/querygate/pkg/errors"
	"github.com/querygate/querygate/pkg/security"
)

func init() {
	register("snowflake", newSnowflake)
}

type snowflakeBackend struct {
	dsn    string
	schema string
}

// newSnowflake accepts either a full gosnowflake DSN or an account-style
// credentials map (account, user, password, database, schema, warehouse,
// role) from which the DSN is built.
func newSnowflake(dsn string, credentials map[string]string) (Backend, error) {
	schema := credentials["schema"]
	if schema == "" {
		schema = "PUBLIC"
	}

	if dsn == "" {
		cfg := &sf.Config{
			Account:   credentials["account"],
			User:      credentials["user"],
			Password:  credentials["password"],
			Database:  credentials["database"],
			Schema:    schema,
			Warehouse: credentials["warehouse"],
			Role:      credentials["role"],
		}
		built, err := sf.DSN(cfg)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid snowflake credentials")
		}
		dsn = built
	} else if cfg, err := sf.ParseDSN(dsn); err == nil && cfg.Schema != "" {
		schema = cfg.Schema
	}

	return &snowflakeBackend{dsn: dsn, schema: schema}, nil
}

func (b *snowflakeBackend) Name() string { return "snowflake" }

func (b *snowflakeBackend) Dialect() Dialect {
	return Dialect{
		Name:          "snowflake",
		Placeholder:   security.PlaceholderQuestion,
		QuoteChar:     `"`,
		DefaultSchema: b.schema,

		HealthCheckQuery: "SELECT 1",
		ListTablesQuery: `SELECT table_schema, table_name, table_type
FROM information_schema.tables
WHERE table_schema = ?
ORDER BY table_schema, table_name`,
		ListTablesBySchema: true,
		DescribeTableQuery: `SELECT column_name, data_type, character_maximum_length, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema = ? AND table_name = ?
ORDER BY ordinal_position`,
	}
}

func (b *snowflakeBackend) Open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("snowflake", b.dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open snowflake connection")
	}
	return open(ctx, db, "snowflake")
}
