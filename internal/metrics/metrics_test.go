package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	require.NotPanics(t, func() {
		Register()
		Register()
	})

	err := prometheus.Register(RotationsTotal)
	var already prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &already)
}

func TestCollectorsRecord(t *testing.T) {
	before := testutil.ToFloat64(AttemptsTotal.WithLabelValues("transient"))
	AttemptsTotal.WithLabelValues("transient").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(AttemptsTotal.WithLabelValues("transient")))

	PoolSize.Set(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(PoolSize))

	AnalyzeDurationSeconds.WithLabelValues("ok").Observe(1.5)
	assert.Equal(t, 1, testutil.CollectAndCount(AnalyzeDurationSeconds))
}
