// Package backend abstracts the supported database engines behind a single
// connection-oriented interface. Each engine contributes a Backend that knows
// how to open one physical connection and a Dialect describing the SQL
// surface the gateway needs: placeholder style, identifier quoting, and the
// metadata queries for table discovery.
//
// A Backend yields *sql.DB handles capped at a single underlying connection,
// so the gateway's own pool stays the sole authority on connection counts.
package backend

import (
	"context"
	"database/sql"
	"strings"

	"github.com/querygate/querygate/pkg/errors"
	"github.com/querygate/querygate/pkg/security"
)

// Dialect describes the engine-specific SQL surface.
type Dialect struct {
	// Name is the engine identifier (postgres, mysql, sqlite, snowflake)
	Name string
	// Placeholder is the parameter style the engine expects
	Placeholder security.PlaceholderStyle
	// QuoteChar wraps identifiers in generated SQL
	QuoteChar string
	// DefaultSchema is used when a caller does not name one
	DefaultSchema string
	// HealthCheckQuery is a trivial statement proving the connection works
	HealthCheckQuery string
	// ListTablesQuery enumerates tables; takes the schema as its only
	// parameter when ListTablesBySchema is set, otherwise no parameters
	ListTablesQuery string
	// ListTablesBySchema reports whether ListTablesQuery is schema-scoped
	ListTablesBySchema bool
	// DescribeTableQuery returns column metadata ordered by position; takes
	// (schema, table) when ListTablesBySchema is set, otherwise (table)
	DescribeTableQuery string
}

// QuoteIdent quotes an already-sanitized identifier for this dialect.
func (d Dialect) QuoteIdent(ident string) string {
	return d.QuoteChar + ident + d.QuoteChar
}

// Backend opens physical connections to one configured database.
type Backend interface {
	// Name returns the engine identifier
	Name() string
	// Dialect returns the engine's SQL surface description
	Dialect() Dialect
	// Open establishes one new connection and verifies it with a ping
	Open(ctx context.Context) (*sql.DB, error)
}

// singleConn caps a *sql.DB at one underlying connection so the handle
// behaves as a single pooled resource.
func singleConn(db *sql.DB) *sql.DB {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db
}

// open pings the capped handle and closes it on failure so no half-open
// connection leaks to the caller.
func open(ctx context.Context, db *sql.DB, engine string) (*sql.DB, error) {
	singleConn(db)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to "+engine)
	}
	return db, nil
}

// Factory adapts a Backend to the pool's resource lifecycle.
type Factory struct {
	backend Backend
}

// NewFactory wraps a backend for use as a pool factory.
func NewFactory(b Backend) *Factory {
	return &Factory{backend: b}
}

// Create opens a new backend connection.
func (f *Factory) Create(ctx context.Context) (*sql.DB, error) {
	return f.backend.Open(ctx)
}

// Close releases a backend connection.
func (f *Factory) Close(db *sql.DB) error {
	return db.Close()
}

// IsHealthy runs the dialect's health check query on the connection.
func (f *Factory) IsHealthy(ctx context.Context, db *sql.DB) bool {
	var one int
	row := db.QueryRowContext(ctx, f.backend.Dialect().HealthCheckQuery)
	return row.Scan(&one) == nil
}

// constructors maps engine names to backend builders, populated by each
// engine file's init.
var constructors = map[string]func(dsn string, credentials map[string]string) (Backend, error){}

func register(name string, fn func(dsn string, credentials map[string]string) (Backend, error)) {
	constructors[name] = fn
}

// New builds a backend for the named engine.
func New(engine, dsn string, credentials map[string]string) (Backend, error) {
	fn, ok := constructors[strings.ToLower(engine)]
	if !ok {
		return nil, errors.New(errors.ErrorTypeConfig, "unsupported backend type: "+engine).
			WithDetail("supported", Supported())
	}
	return fn(dsn, credentials)
}

// Supported returns the registered engine names.
func Supported() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	return names
}
