package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/querygate/querygate/pkg/pool"
)

func TestTimer(t *testing.T) {
	timer := NewTimer("test")
	time.Sleep(5 * time.Millisecond)
	d := timer.Stop()
	assert.GreaterOrEqual(t, d, 5*time.Millisecond)

	// Stopping again returns a longer total elapsed time.
	assert.GreaterOrEqual(t, timer.Stop(), d)
}

func TestUpdatePoolStats(t *testing.T) {
	UpdatePoolStats("test-backend", pool.Stats{Live: 7, Idle: 3})

	assert.Equal(t, 7.0, testutil.ToFloat64(PoolLive.WithLabelValues("test-backend")))
	assert.Equal(t, 3.0, testutil.ToFloat64(PoolIdle.WithLabelValues("test-backend")))
}

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(QueriesTotal.WithLabelValues("test-backend", "success"))
	QueriesTotal.WithLabelValues("test-backend", "success").Inc()
	after := testutil.ToFloat64(QueriesTotal.WithLabelValues("test-backend", "success"))
	assert.Equal(t, before+1, after)

	ValidationRejections.WithLabelValues("blocked_keyword").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(ValidationRejections.WithLabelValues("blocked_keyword")), 1.0)
}
