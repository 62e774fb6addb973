// Package metrics provides Prometheus instrumentation for the bot.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsTotal counts inbound webhook messages, partitioned by type.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatbet_events_total",
		Help: "Total inbound webhook messages processed",
	}, []string{"type"})

	// BetsTotal counts filled bets, partitioned by side.
	BetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatbet_bets_total",
		Help: "Total bets filled",
	}, []string{"side"})

	// BetRejections counts bets rejected before the fill, by reason.
	BetRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatbet_bet_rejections_total",
		Help: "Bets rejected before execution",
	}, []string{"reason"})

	// SendFailures counts failed outbound messages.
	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatbet_send_failures_total",
		Help: "Outbound message sends that failed",
	})

	// DuplicateEvents counts webhook deliveries suppressed by the deduper.
	DuplicateEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatbet_duplicate_events_total",
		Help: "Webhook deliveries skipped as duplicates",
	})

	// OpenMarkets tracks the number of open markets.
	OpenMarkets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatbet_open_markets",
		Help: "Number of currently open markets",
	})

	// WebSocketClients tracks connected fill-feed clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatbet_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatbet_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chatbet_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the route surface is small.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
