package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Metrics groups the collectors exported by the service. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	completions  *prometheus.CounterVec
	xpAwarded    *prometheus.CounterVec
	aggregations *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lifequest",
			Name:      "task_completions_total",
			Help:      "Task completion attempts by category and outcome.",
		}, []string{"category", "outcome"}),
		xpAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lifequest",
			Name:      "xp_awarded_total",
			Help:      "XP awarded through task completions.",
		}, []string{"category"}),
		aggregations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lifequest",
			Name:      "aggregation_duration_seconds",
			Help:      "Latency of leaderboard and analytics computations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"aggregation", "outcome"}),
	}
	reg.MustRegister(m.completions, m.xpAwarded, m.aggregations)
	return m
}

// ObserveCompletion counts a completion attempt; points are only added on success.
func (m *Metrics) ObserveCompletion(category string, points int, err error) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(category, outcome(err)).Inc()
	if err == nil && points > 0 {
		m.xpAwarded.WithLabelValues(category).Add(float64(points))
	}
}

// ObserveAggregation records how long an aggregation took since started.
func (m *Metrics) ObserveAggregation(name string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.aggregations.WithLabelValues(name, outcome(err)).Observe(time.Since(started).Seconds())
}

// Handler exposes the gatherer in the Prometheus text format for fasthttp.
func Handler(g prometheus.Gatherer) fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
