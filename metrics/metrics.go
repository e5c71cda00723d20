package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the round client.
type Metrics struct {
	PollsTotal       *prometheus.CounterVec // labels: result=ok|error
	PollsSkipped     prometheus.Counter
	PollDuration     prometheus.Histogram
	StaleSnapshots   prometheus.Counter
	InvalidState     prometheus.Counter
	CandlesTotal     prometheus.Counter
	RoundRollovers   prometheus.Counter
	CurrentRound     prometheus.Gauge
	StatusErrors     *prometheus.CounterVec // labels: call=init|mybet|last_result
	BetsTotal        *prometheus.CounterVec // labels: result=ok|rejected|error
	StoreErrors      *prometheus.CounterVec // labels: store=redis|postgres
	RendererClients  prometheus.Gauge
	RendererDropped  prometheus.Counter
	HistoryRefreshes *prometheus.CounterVec // labels: result=ok|error
}

// NewMetrics creates the metrics and registers them with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		PollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebull_polls_total",
			Help: "Series polls by result",
		}, []string{"result"}),
		PollsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebull_polls_skipped_total",
			Help: "Ticks skipped because the previous poll was still in flight",
		}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradebull_poll_duration_seconds",
			Help:    "Series poll round-trip latency",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		StaleSnapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebull_stale_snapshots_total",
			Help: "Snapshots discarded as older than already consumed state",
		}),
		InvalidState: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebull_aggregator_invalid_state_total",
			Help: "Aggregator contract violations that forced a resync",
		}),
		CandlesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebull_candles_total",
			Help: "Candles emitted",
		}),
		RoundRollovers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebull_round_rollovers_total",
			Help: "Round id changes observed",
		}),
		CurrentRound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebull_current_round",
			Help: "Round id of the latest accepted snapshot",
		}),
		StatusErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebull_status_errors_total",
			Help: "Failed status refresh calls",
		}, []string{"call"}),
		BetsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebull_bets_total",
			Help: "Bet submissions by result",
		}, []string{"result"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebull_store_errors_total",
			Help: "Cache or history write failures",
		}, []string{"store"}),
		RendererClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebull_renderer_clients",
			Help: "Connected WebSocket clients",
		}),
		RendererDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebull_renderer_dropped_total",
			Help: "Messages dropped because a client send buffer was full",
		}),
		HistoryRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebull_history_refreshes_total",
			Help: "Backend history refresh jobs by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.PollsTotal,
		m.PollsSkipped,
		m.PollDuration,
		m.StaleSnapshots,
		m.InvalidState,
		m.CandlesTotal,
		m.RoundRollovers,
		m.CurrentRound,
		m.StatusErrors,
		m.BetsTotal,
		m.StoreErrors,
		m.RendererClients,
		m.RendererDropped,
		m.HistoryRefreshes,
	)

	return m
}

// NewNop returns metrics registered with a private registry. Used in tests.
func NewNop() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
