package optimistic

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	return testutil.ToFloat64(c)
}

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.Discarded.Inc()

	n, err := testutil.GatherAndCount(reg, "discuss_optimistic_discarded_refreshes_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
