// Package querygate provides a secure, pooled gateway between callers and a
// relational database. Every query travels a fixed pipeline: the security
// gate validates it against an immutable policy, a bounded connection pool
// supplies a healthy backend connection, and the result shaper masks
// sensitive fields before rows leave the gateway. An audit record is emitted
// for every execution, successful or not.
//
// # Architecture
//
// The module is organized around three core concerns:
//
// 1. Resource Pool (pkg/pool): a generic bounded pool that creates resources
// eagerly up to a minimum, overflows on demand up to a hard maximum, recycles
// by age, and heals itself through a background health audit.
//
// 2. Security Gate (pkg/security): an ordered validation pipeline with a
// closed rejection taxonomy, plus identifier sanitizing, a parameterized
// query builder, and the sensitive-field result masker.
//
// 3. Gateway (internal/gateway): wires gate, pool, and backend together and
// exposes query execution and metadata tools, each audited and instrumented.
//
// Backends for PostgreSQL, MySQL, SQLite, and Snowflake live in pkg/backend
// behind a single interface; adding an engine means implementing one file.
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/querygate/querygate/internal/gateway"
//	    "github.com/querygate/querygate/pkg/config"
//	)
//
//	cfg := config.New("gateway-1", "postgres")
//	cfg.Backend.DSN = "postgres://app@db:5432/prod"
//
//	g, err := gateway.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := g.Initialize(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer g.Shutdown()
//
//	result, err := g.Execute(ctx, "SELECT id, name FROM users LIMIT 10")
package querygate
