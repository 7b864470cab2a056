// Package gateway wires the security gate, the connection pool, and the
// backend into the query execution pipeline. Every request follows the same
// path: validate, acquire, execute, shape, release, audit. Validation
// failures never reach a backend; execution failures are still audited.
package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/querygate/querygate/pkg/config"
	"github.com/querygate/querygate/pkg/audit"
	"github.com/querygate/querygate/pkg/backend"
	"github.com/querygate/querygate/pkg/errors"
	"github.com/querygate/querygate/pkg/logger"
	"github.com/querygate/querygate/pkg/metrics"
	"github.com/querygate/querygate/pkg/models"
	"github.com/querygate/querygate/pkg/observability"
	"github.com/querygate/querygate/pkg/pool"
	"github.com/querygate/querygate/pkg/security"
)

// Gateway is one configured database gateway instance.
type Gateway struct {
	cfg     *config.Config
	backend backend.Backend
	gate    *security.Gate
	builder *security.Builder
	pool    *pool.Pool[*sql.DB]
	sink    audit.Sink

	auditFile *os.File
	logger    *zap.Logger
}

// New assembles a gateway from configuration. The gateway is inert until
// Initialize is called.
func New(cfg *config.Config) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid gateway configuration")
	}

	b, err := backend.New(cfg.Backend.Type, cfg.Backend.DSN, cfg.Backend.Credentials)
	if err != nil {
		return nil, err
	}

	p, err := pool.New(cfg.Pool, backend.NewFactory(b))
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		cfg:     cfg,
		backend: b,
		gate:    security.NewGate(cfg.Security.Policy()),
		builder: security.NewBuilder(b.Dialect().Placeholder),
		pool:    p,
		logger: logger.Get().With(
			zap.String("component", "gateway"),
			zap.String("backend", b.Name()),
		),
	}

	if path := cfg.Observability.AuditLogPath; path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to open audit log").
				WithDetail("path", path)
		}
		g.auditFile = f
		g.sink = audit.NewJSONLSink(f, g.logger)
	} else {
		g.sink = audit.NewLogSink(g.logger)
	}

	return g, nil
}

// Initialize connects the pool to the backend.
func (g *Gateway) Initialize(ctx context.Context) error {
	if err := g.pool.Initialize(ctx); err != nil {
		return err
	}
	metrics.UpdatePoolStats(g.backend.Name(), g.pool.Stats())
	g.logger.Info("gateway initialized")
	return nil
}

// Shutdown drains the pool and closes the audit log.
func (g *Gateway) Shutdown() {
	g.pool.Shutdown()
	if g.auditFile != nil {
		if err := g.auditFile.Close(); err != nil {
			g.logger.Warn("failed to close audit log", zap.Error(err))
		}
	}
	g.logger.Info("gateway shut down")
}

// Backend returns the configured backend.
func (g *Gateway) Backend() backend.Backend {
	return g.backend
}

// PoolStats returns a snapshot of the connection pool.
func (g *Gateway) PoolStats() pool.Stats {
	return g.pool.Stats()
}

// Validate runs the security gate without executing anything.
func (g *Gateway) Validate(query string) security.Verdict {
	return g.gate.Validate(query)
}

// Execute validates and runs one query, returning the shaped result.
func (g *Gateway) Execute(ctx context.Context, query string, args ...interface{}) (*models.QueryResult, error) {
	return g.run(ctx, "execute_query", query, args)
}

// run is the shared pipeline behind Execute and the metadata tools. It always
// emits an audit record, whatever the outcome.
func (g *Gateway) run(ctx context.Context, tool, query string, args []interface{}) (*models.QueryResult, error) {
	if t := g.cfg.Server.RequestTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	record := audit.NewRecord(g.cfg.Server.Name, g.backend.Name(), tool, userFrom(ctx), query)
	timer := metrics.NewTimer(tool)

	result, err := g.execute(ctx, tool, query, args)

	duration := timer.Stop()
	rows := 0
	if result != nil {
		result.ExecutionTime = duration
		rows = result.RowCount
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.QueriesTotal.WithLabelValues(g.backend.Name(), status).Inc()
	metrics.QueryDuration.WithLabelValues(g.backend.Name()).Observe(duration.Seconds())

	g.sink.Emit(ctx, record.Complete(err == nil, err, rows, duration))
	return result, err
}

func (g *Gateway) execute(ctx context.Context, tool, query string, args []interface{}) (*models.QueryResult, error) {
	if verdict := g.gate.Validate(query); !verdict.Allowed {
		metrics.ValidationRejections.WithLabelValues(string(verdict.Reason)).Inc()
		g.logger.Warn("query rejected",
			zap.String("reason", string(verdict.Reason)),
			zap.String("query_hash", audit.HashQuery(query)))
		return nil, verdict.Err()
	}

	ctx, span := observability.StartSpan(ctx, tool)
	defer span.End()
	span.SetAttribute("db.system", g.backend.Name())
	span.SetAttribute("db.query_hash", audit.HashQuery(query))

	waitTimer := metrics.NewTimer("acquire")
	res, err := g.pool.Acquire(ctx)
	metrics.AcquireWait.WithLabelValues(g.backend.Name()).Observe(waitTimer.Stop().Seconds())
	if err != nil {
		if errors.IsType(err, errors.ErrorTypePoolExhausted) {
			metrics.PoolExhaustions.WithLabelValues(g.backend.Name()).Inc()
		}
		span.RecordError(err)
		return nil, err
	}
	defer func() {
		g.pool.Release(res)
		metrics.UpdatePoolStats(g.backend.Name(), g.pool.Stats())
	}()

	sqlRows, err := res.Handle().QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "query execution failed").
			WithDetail("query_hash", audit.HashQuery(query))
	}
	defer sqlRows.Close()

	result, err := g.scanRows(sqlRows)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result.Rows = g.gate.MaskRows(result.Rows)
	metrics.RowsReturned.WithLabelValues(g.backend.Name()).Observe(float64(result.RowCount))
	span.SetAttribute("db.rows_returned", result.RowCount)
	span.SetAttribute("db.truncated", result.Truncated)
	return result, nil
}

// scanRows drains the cursor into the standardized result shape, preserving
// backend column order and cutting off at the policy row limit.
func (g *Gateway) scanRows(sqlRows *sql.Rows) (*models.QueryResult, error) {
	columns, err := sqlRows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read result columns")
	}

	maxRows := g.gate.Policy().MaxRows
	result := &models.QueryResult{Columns: columns, Rows: []models.Row{}}

	values := make([]interface{}, len(columns))
	ptrs := make([]interface{}, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for sqlRows.Next() {
		if maxRows > 0 && len(result.Rows) >= maxRows {
			result.Truncated = true
			result.Message = fmt.Sprintf("result truncated to %d rows", maxRows)
			break
		}

		if err := sqlRows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to scan result row")
		}

		row := make(models.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}

	if err := sqlRows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "result iteration failed")
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

// normalizeValue converts driver byte slices to strings so results are
// JSON-friendly regardless of engine.
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func userFrom(ctx context.Context) string {
	if user, ok := ctx.Value(logger.UserKey).(string); ok {
		return user
	}
	return ""
}
