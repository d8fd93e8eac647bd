// Package metrics exposes Prometheus collectors for the tick path. All
// methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stratengine"

type Metrics struct {
	registry *prometheus.Registry

	ticks        *prometheus.CounterVec
	signals      *prometheus.CounterVec
	confidence   *prometheus.GaugeVec
	rejections   *prometheus.CounterVec
	fills        *prometheus.CounterVec
	orderUpdates *prometheus.CounterVec
	errors       *prometheus.CounterVec
	tickSeconds  prometheus.Histogram

	equity        prometheus.Gauge
	realized      prometheus.Gauge
	unrealized    prometheus.Gauge
	drawdown      prometheus.Gauge
	maxDrawdown   prometheus.Gauge
	openPositions prometheus.Gauge
}

// New registers every collector on a fresh registry. withRuntime adds the
// Go and process collectors.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ticks_total",
			Help: "Market snapshots processed while running",
		}, []string{"symbol"}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "signals_total",
			Help: "Non-hold signals generated",
		}, []string{"symbol", "type"}),
		confidence: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "signal_confidence",
			Help: "Confidence of the last signal per symbol",
		}, []string{"symbol"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "risk_rejections_total",
			Help: "Risk violations by code",
		}, []string{"code"}),
		fills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "fills_total",
			Help: "Fills applied to the ledger by effect",
		}, []string{"symbol", "effect"}),
		orderUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "order_updates_total",
			Help: "Order update events observed",
		}, []string{"status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "errors_total",
			Help: "Errors recovered at the engine boundary",
		}, []string{"kind"}),
		tickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "tick_duration_seconds",
			Help:    "Time spent processing one snapshot",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "equity", Help: "Realized plus unrealized pnl",
		}),
		realized: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "realized_pnl", Help: "Cumulative realized pnl",
		}),
		unrealized: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "unrealized_pnl", Help: "Mark-to-market pnl of open positions",
		}),
		drawdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "drawdown_ratio", Help: "Current decline from peak equity",
		}),
		maxDrawdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "max_drawdown_ratio", Help: "Largest decline from peak equity",
		}),
		openPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "open_positions", Help: "Open positions in the ledger",
		}),
	}

	reg.MustRegister(
		m.ticks, m.signals, m.confidence, m.rejections, m.fills, m.orderUpdates,
		m.errors, m.tickSeconds, m.equity, m.realized, m.unrealized, m.drawdown,
		m.maxDrawdown, m.openPositions,
	)
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Tick(symbol string, took time.Duration) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(symbol).Inc()
	m.tickSeconds.Observe(took.Seconds())
}

func (m *Metrics) Signal(symbol, typ string, confidence float64) {
	if m == nil {
		return
	}
	m.signals.WithLabelValues(symbol, typ).Inc()
	m.confidence.WithLabelValues(symbol).Set(confidence)
}

func (m *Metrics) Rejected(codes ...string) {
	if m == nil {
		return
	}
	for _, c := range codes {
		m.rejections.WithLabelValues(c).Inc()
	}
}

func (m *Metrics) Fill(symbol, effect string) {
	if m == nil {
		return
	}
	m.fills.WithLabelValues(symbol, effect).Inc()
}

func (m *Metrics) OrderUpdate(status string) {
	if m == nil {
		return
	}
	m.orderUpdates.WithLabelValues(status).Inc()
}

func (m *Metrics) Error(kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(kind).Inc()
}

// Equity publishes the valuation after a mark.
func (m *Metrics) Equity(realized, unrealized, equity, drawdown, maxDrawdown float64, open int) {
	if m == nil {
		return
	}
	m.realized.Set(realized)
	m.unrealized.Set(unrealized)
	m.equity.Set(equity)
	m.drawdown.Set(drawdown)
	m.maxDrawdown.Set(maxDrawdown)
	m.openPositions.Set(float64(open))
}
