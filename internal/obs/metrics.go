package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"riskcore/internal/schema"
)

var (
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskd_decisions_total",
			Help: "Risk decisions by action and reject reason",
		},
		[]string{"action", "reason"},
	)

	breakerTripsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskd_breaker_trips_total",
			Help: "Circuit breaker trips by cause",
		},
		[]string{"cause"},
	)

	marginCallsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "riskd_margin_calls_total",
			Help: "Margin call events emitted",
		},
	)

	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskd_events_total",
			Help: "Events published to the journal by type",
		},
		[]string{"type"},
	)

	queueDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "riskd_queue_drops_total",
			Help: "Events dropped because the journal queue was full",
		},
	)

	openOrders = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "riskd_open_orders",
			Help: "Orders currently counted against the open-order limit",
		},
	)

	dailyPnl = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "riskd_daily_pnl",
			Help: "Accumulated session P&L in money ticks",
		},
	)

	evalLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskd_eval_latency_seconds",
			Help:    "Risk evaluation latency",
			Buckets: prometheus.ExponentialBuckets(100e-9, 4, 10),
		},
	)
)

// Decision children are bound once so recording an outcome never builds a
// label slice.
var (
	allowDecisions prometheus.Counter
	denyDecisions  [int(schema.RejectDailyLoss) + 1]prometheus.Counter
)

func init() {
	prometheus.MustRegister(decisionsTotal, breakerTripsTotal, marginCallsTotal,
		eventsTotal, queueDropsTotal, openOrders, dailyPnl, evalLatency)

	allowDecisions = decisionsTotal.WithLabelValues(schema.RiskActionAllow.String(), schema.RejectNone.String())
	for r := range denyDecisions {
		denyDecisions[r] = decisionsTotal.WithLabelValues(schema.RiskActionDeny.String(), schema.RejectReason(r).String())
	}
}

// RecordDecision counts an allow or deny outcome.
func RecordDecision(action schema.RiskAction, reason schema.RejectReason) {
	if action == schema.RiskActionAllow {
		allowDecisions.Inc()
		return
	}
	if int(reason) < len(denyDecisions) {
		denyDecisions[reason].Inc()
		return
	}
	decisionsTotal.WithLabelValues(action.String(), reason.String()).Inc()
}

// RecordBreakerTrip counts a breaker trip.
func RecordBreakerTrip(cause schema.BreakerCause) {
	breakerTripsTotal.WithLabelValues(cause.String()).Inc()
}

// RecordMarginCall counts an emitted margin call.
func RecordMarginCall() {
	marginCallsTotal.Inc()
}

// RecordEvent counts an event handed to the journal.
func RecordEvent(eventType schema.EventType) {
	eventsTotal.WithLabelValues(eventType.String()).Inc()
}

// RecordQueueDrop counts an event dropped on publish.
func RecordQueueDrop() {
	queueDropsTotal.Inc()
}

// SetOpenOrders updates the open-order gauge.
func SetOpenOrders(n uint32) {
	openOrders.Set(float64(n))
}

// SetDailyPnl updates the session P&L gauge.
func SetDailyPnl(v schema.Money) {
	dailyPnl.Set(float64(v))
}

// ObserveEvalLatency records one evaluation duration.
func ObserveEvalLatency(d time.Duration) {
	evalLatency.Observe(d.Seconds())
}

// Serve exposes /metrics on addr and returns the server so the caller can
// close it on shutdown.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
