package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSpanWithoutInit(t *testing.T) {
	// The no-op tracer must serve spans before InitTracing is called.
	ctx, span := StartSpan(context.Background(), "execute_query")
	require.NotNil(t, ctx)
	require.NotNil(t, span)

	span.SetAttribute("backend", "sqlite")
	span.SetAttribute("rows", 42)
	span.RecordError(errors.New("boom"))
	span.End()
}

func TestInitTracingAndShutdown(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.SamplingRate = 0 // keep test output clean
	require.NoError(t, InitTracing(cfg))

	ctx, span := StartSpan(context.Background(), "execute_query")
	assert.NotNil(t, ctx)
	span.SetAttribute("backend", "postgres")
	span.End()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, Shutdown(shutdownCtx))
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	assert.Equal(t, 1.0, cfg.SamplingRate)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 512, cfg.MaxExportBatch)
}
