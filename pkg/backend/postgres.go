package backend

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/querygate/querygate/pkg/errors"
	"github.com/querygate/querygate/pkg/security"
)

func init() {
	register("postgres", newPostgres)
	register("postgresql", newPostgres)
}

type postgresBackend struct {
	connConfig *pgx.ConnConfig
}

func newPostgres(dsn string, credentials map[string]string) (Backend, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid postgres dsn")
	}
	if user, ok := credentials["user"]; ok {
		cfg.User = user
	}
	if password, ok := credentials["password"]; ok {
		cfg.Password = password
	}
	return &postgresBackend{connConfig: cfg}, nil
}

func (b *postgresBackend) Name() string { return "postgres" }

func (b *postgresBackend) Dialect() Dialect {
	return Dialect{
		Name:          "postgres",
		Placeholder:   security.PlaceholderDollar,
		QuoteChar:     `"`,
		DefaultSchema: "public",

		HealthCheckQuery: "SELECT 1",
		ListTablesQuery: `SELECT table_schema, table_name, table_type
FROM information_schema.tables
WHERE table_schema = $1
ORDER BY table_schema, table_name`,
		ListTablesBySchema: true,
		DescribeTableQuery: `SELECT column_name, data_type, character_maximum_length, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`,
	}
}

func (b *postgresBackend) Open(ctx context.Context) (*sql.DB, error) {
	db := stdlib.OpenDB(*b.connConfig)
	return open(ctx, db, "postgres")
}
