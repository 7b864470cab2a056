package backend

import (
	"context"
	"database/sql"

	"github.com/go-sql-driver/mysql"

	"github.com/querygate/querygate/pkg/errors"
	"github.com/querygate/querygate/pkg/security"
)

func init() {
	register("mysql", newMySQL)
	register("mariadb", newMySQL)
}

type mysqlBackend struct {
	config *mysql.Config
}

func newMySQL(dsn string, credentials map[string]string) (Backend, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid mysql dsn")
	}
	if user, ok := credentials["user"]; ok {
		cfg.User = user
	}
	if password, ok := credentials["password"]; ok {
		cfg.Passwd = password
	}
	cfg.ParseTime = true
	return &mysqlBackend{config: cfg}, nil
}

func (b *mysqlBackend) Name() string { return "mysql" }

func (b *mysqlBackend) Dialect() Dialect {
	return Dialect{
		Name:          "mysql",
		Placeholder:   security.PlaceholderQuestion,
		QuoteChar:     "`",
		DefaultSchema: b.config.DBName,

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

func (b *mysqlBackend) Open(ctx context.Context) (*sql.DB, error) {
	connector, err := mysql.NewConnector(b.config)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to build mysql connector")
	}
	return open(ctx, sql.OpenDB(connector), "mysql")
}
