package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCompletion(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCompletion("fitness", 50, nil)
	m.ObserveCompletion("fitness", 30, nil)
	m.ObserveCompletion("fitness", 20, errors.New("conflict"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.completions.WithLabelValues("fitness", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.completions.WithLabelValues("fitness", "error")))
	assert.Equal(t, 80.0, testutil.ToFloat64(m.xpAwarded.WithLabelValues("fitness")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCompletion("home", 10, nil)
		m.ObserveAggregation("leaderboard", time.Now(), nil)
	})
}
