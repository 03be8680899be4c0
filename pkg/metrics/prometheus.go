package metrics

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// Collector owns a private registry. A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	clientRequests *prometheus.CounterVec
	clientDuration *prometheus.HistogramVec
	serverRequests *prometheus.CounterVec
	serverDuration *prometheus.HistogramVec
	loansDecided   *prometheus.CounterVec
	chatMessages   prometheus.Counter
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	f := promauto.With(registry)

	return &Collector{
		registry: registry,
		clientRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finagent_client_requests_total",
			Help: "API calls made by the client, by route and outcome",
		}, []string{"route", "outcome"}),
		clientDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finagent_client_request_duration_seconds",
			Help:    "Latency of API calls made by the client",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		serverRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finagent_http_requests_total",
			Help: "HTTP requests served, by method, route and status",
		}, []string{"method", "route", "status"}),
		serverDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finagent_http_request_duration_seconds",
			Help:    "Latency of HTTP requests served",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		loansDecided: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finagent_loans_decided_total",
			Help: "Loan applications recorded, by decision",
		}, []string{"decision"}),
		chatMessages: f.NewCounter(prometheus.CounterOpts{
			Name: "finagent_chat_messages_total",
			Help: "Chat messages handled by the assistant",
		}),
	}
}

// ObserveClient records one outbound API call. outcome is an error kind or "ok".
func (m *Collector) ObserveClient(route, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.clientRequests.WithLabelValues(route, outcome).Inc()
	m.clientDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Collector) ObserveServer(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.serverRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.serverDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Collector) LoanDecided(decision string) {
	if m == nil {
		return
	}
	m.loansDecided.WithLabelValues(decision).Inc()
}

func (m *Collector) ChatMessage() {
	if m == nil {
		return
	}
	m.chatMessages.Inc()
}

func (m *Collector) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteText dumps every collected series in the Prometheus text format.
// Short-lived processes such as the CLI use it instead of a scrape endpoint.
func (m *Collector) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
