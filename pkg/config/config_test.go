package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg := New("gateway-1", "postgres")

	assert.Equal(t, "gateway-1", cfg.Server.Name)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "postgres", cfg.Backend.Type)
	assert.Equal(t, 2, cfg.Pool.MinSize)
	assert.Equal(t, 10, cfg.Pool.MaxSize)
	assert.True(t, cfg.Security.ReadOnly)
	assert.Contains(t, cfg.Security.BlockedKeywords, "DROP")
	assert.Contains(t, cfg.Security.SensitiveFields, "password")
	assert.Equal(t, 10000, cfg.Security.MaxQueryLength)
	assert.Equal(t, 10000, cfg.Security.MaxRows)
	assert.True(t, cfg.Observability.EnableMetrics)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing name", func(c *Config) { c.Server.Name = "" }, "server.name"},
		{"missing backend type", func(c *Config) { c.Backend.Type = "" }, "backend.type"},
		{"missing dsn", func(c *Config) { c.Backend.DSN = "" }, "backend.dsn"},
		{"bad pool", func(c *Config) { c.Pool.MinSize = 0 }, "pool"},
		{"bad query length", func(c *Config) { c.Security.MaxQueryLength = 0 }, "max_query_length"},
		{"bad max rows", func(c *Config) { c.Security.MaxRows = -1 }, "max_rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New("gw", "sqlite")
			cfg.Backend.DSN = ":memory:"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestPolicyConversion(t *testing.T) {
	cfg := New("gw", "sqlite")
	cfg.Security.ReadOnly = false
	cfg.Security.SensitiveFields = []string{"ssn"}
	cfg.Security.MaxRows = 50

	policy := cfg.Security.Policy()
	assert.False(t, policy.ReadOnly)
	assert.Equal(t, []string{"ssn"}, policy.SensitiveFields)
	assert.Equal(t, 50, policy.MaxRows)
}

func TestLoadFileWithEnvSubstitution(t *testing.T) {
	t.Setenv("QG_TEST_DSN", "postgres://app@db/prod")

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	content := `
server:
  name: test-gateway
backend:
  type: postgres
  dsn: ${QG_TEST_DSN}
pool:
  min_size: 1
  max_size: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "test-gateway", cfg.Server.Name)
	assert.Equal(t, "postgres://app@db/prod", cfg.Backend.DSN)
	assert.Equal(t, 1, cfg.Pool.MinSize)
	assert.Equal(t, 3, cfg.Pool.MaxSize)
	// Unstated sections keep their defaults.
	assert.True(t, cfg.Security.ReadOnly)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  name: x\nbackend:\n  type: postgres\n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.dsn")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := New("gw", "sqlite")
	cfg.Backend.DSN = "file:test.db"
	require.NoError(t, Save(path, cfg))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Server.Name, loaded.Server.Name)
	assert.Equal(t, cfg.Backend.DSN, loaded.Backend.DSN)
	assert.Equal(t, cfg.Pool, loaded.Pool)
}
