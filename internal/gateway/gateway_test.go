package gateway

import (
	"bufio"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	gojson "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querygate/querygate/pkg/audit"
	"github.com/querygate/querygate/pkg/config"
	"github.com/querygate/querygate/pkg/errors"
)

// newTestGateway seeds a sqlite database on disk and starts a gateway on it.
func newTestGateway(t *testing.T, mutate func(*config.Config)) *Gateway {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "gateway.db")
	seed, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer seed.Close()

	_, err = seed.Exec(`CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		password TEXT
	)`)
	require.NoError(t, err)
	_, err = seed.Exec(`INSERT INTO users (name, password) VALUES
		('alice', 'hunter2'),
		('bob', 'supersecret')`)
	require.NoError(t, err)

	cfg := config.New("test-gateway", "sqlite")
	cfg.Backend.DSN = dbPath
	cfg.Pool.MinSize = 1
	cfg.Pool.MaxSize = 2
	if mutate != nil {
		mutate(cfg)
	}

	g, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, g.Initialize(context.Background()))
	t.Cleanup(g.Shutdown)
	return g
}

func TestExecuteSelect(t *testing.T) {
	g := newTestGateway(t, nil)

	result, err := g.Execute(context.Background(), "SELECT id, name, password FROM users ORDER BY id")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "password"}, result.Columns)
	assert.Equal(t, 2, result.RowCount)
	assert.False(t, result.Truncated)
	assert.Greater(t, result.ExecutionTime.Nanoseconds(), int64(0))

	// Sensitive fields come back masked, the rest untouched.
	assert.Equal(t, "alice", result.Rows[0]["name"])
	assert.Equal(t, "hu***r2", result.Rows[0]["password"])
	assert.NotEqual(t, "supersecret", result.Rows[1]["password"])
}

func TestExecuteParameterized(t *testing.T) {
	g := newTestGateway(t, nil)

	result, err := g.Execute(context.Background(), "SELECT name FROM users WHERE name = ?", "bob")
	require.NoError(t, err)
	require.Equal(t, 1, result.RowCount)
	assert.Equal(t, "bob", result.Rows[0]["name"])
}

func TestExecuteRejectsWrite(t *testing.T) {
	g := newTestGateway(t, nil)

	_, err := g.Execute(context.Background(), "DELETE FROM users")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeReadOnlyViolation))

	// The rejected statement never reached the backend.
	result, err := g.Execute(context.Background(), "SELECT COUNT(*) AS n FROM users")
	require.NoError(t, err)
	assert.EqualValues(t, int64(2), result.Rows[0]["n"])
}

func TestExecuteRejectsInjection(t *testing.T) {
	g := newTestGateway(t, nil)

	_, err := g.Execute(context.Background(), "SELECT * FROM users; -- probe")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSuspiciousPattern))
}

func TestExecuteRejectsEmpty(t *testing.T) {
	g := newTestGateway(t, nil)

	_, err := g.Execute(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEmptyRequest))
}

func TestExecuteQueryError(t *testing.T) {
	g := newTestGateway(t, nil)

	_, err := g.Execute(context.Background(), "SELECT nope FROM users")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeQuery))
}

func TestExecuteTruncatesAtMaxRows(t *testing.T) {
	g := newTestGateway(t, func(cfg *config.Config) {
		cfg.Security.MaxRows = 1
	})

	result, err := g.Execute(context.Background(), "SELECT id FROM users ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
	assert.True(t, result.Truncated)
	assert.Contains(t, result.Message, "truncated")
}

func TestValidateDoesNotExecute(t *testing.T) {
	g := newTestGateway(t, nil)

	verdict := g.Validate("DROP TABLE users")
	assert.False(t, verdict.Allowed)

	verdict = g.Validate("SELECT 1")
	assert.True(t, verdict.Allowed)
}

func TestListTables(t *testing.T) {
	g := newTestGateway(t, nil)

	tables, err := g.ListTables(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "users", tables[0].Name)
	assert.Equal(t, "main", tables[0].Schema)
	assert.Equal(t, "TABLE", tables[0].Type)
}

func TestDescribeTable(t *testing.T) {
	g := newTestGateway(t, nil)

	columns, err := g.DescribeTable(context.Background(), "users", "")
	require.NoError(t, err)
	require.Len(t, columns, 3)

	assert.Equal(t, "id", columns[0].Name)
	assert.Equal(t, "name", columns[1].Name)
	assert.False(t, columns[1].Nullable)
	assert.Equal(t, "password", columns[2].Name)
	assert.True(t, columns[2].Nullable)
}

func TestDescribeTableSanitizesName(t *testing.T) {
	g := newTestGateway(t, nil)

	// Hostile characters are stripped; the lookup runs on the clean name.
	columns, err := g.DescribeTable(context.Background(), "users;!@#", "")
	require.NoError(t, err)
	assert.Len(t, columns, 3)

	_, err = g.DescribeTable(context.Background(), ";!@#", "")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeQuery))
}

func TestSampleRows(t *testing.T) {
	g := newTestGateway(t, nil)

	result, err := g.SampleRows(context.Background(), "users", "", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
}

func TestCountRows(t *testing.T) {
	g := newTestGateway(t, nil)

	count, err := g.CountRows(context.Background(), "users", "", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	count, err = g.CountRows(context.Background(), "users", "", map[string]interface{}{"name": "alice"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestTestConnection(t *testing.T) {
	g := newTestGateway(t, nil)
	assert.NoError(t, g.TestConnection(context.Background()))
}

func TestPoolStats(t *testing.T) {
	g := newTestGateway(t, nil)

	stats := g.PoolStats()
	assert.Equal(t, 1, stats.Live)
	assert.Equal(t, 1, stats.Idle)
}

func TestAuditLogWritten(t *testing.T) {
	auditPath := filepath.Join(t.TempDir(), "audit.jsonl")
	g := newTestGateway(t, func(cfg *config.Config) {
		cfg.Observability.AuditLogPath = auditPath
	})

	_, err := g.Execute(context.Background(), "SELECT id FROM users")
	require.NoError(t, err)
	_, err = g.Execute(context.Background(), "DROP TABLE users")
	require.Error(t, err)

	f, err := os.Open(auditPath)
	require.NoError(t, err)
	defer f.Close()

	var records []audit.Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec audit.Record
		require.NoError(t, gojson.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.Len(t, records, 2)

	assert.Equal(t, "execute_query", records[0].Tool)
	assert.Equal(t, "test-gateway", records[0].Server)
	assert.True(t, records[0].Success)
	assert.Equal(t, 2, records[0].RowsReturned)

	assert.False(t, records[1].Success)
	assert.NotEmpty(t, records[1].Error)
	// The raw query text is never stored whole.
	assert.Len(t, records[1].QueryHash, 16)
}
