package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors exported at /metrics.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	APIRequestsTotal    *prometheus.CounterVec
	APIRequestDuration  *prometheus.HistogramVec
	TokenFetchesTotal   *prometheus.CounterVec
	SequenceEvictions   prometheus.Counter
	MediaCacheLookups   *prometheus.CounterVec
	GatewayEventsTotal  *prometheus.CounterVec
	SendRequestsTotal   *prometheus.CounterVec
}

// ------------------------------------------------------------------------------------------------------
// New creates the collectors and registers them on reg. A nil reg leaves them unregistered,
// which is what tests usually want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qqbot_api_requests_total",
				Help: "Total number of platform API calls",
			},
			[]string{"method", "endpoint", "status"},
		),
		APIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qqbot_api_request_duration_seconds",
				Help:    "Platform API call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		TokenFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qqbot_token_fetches_total",
				Help: "Access token fetches by result",
			},
			[]string{"result"},
		),
		SequenceEvictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qqbot_sequence_evictions_total",
				Help: "Conversation keys dropped from the sequence table",
			},
		),
		MediaCacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qqbot_media_cache_lookups_total",
				Help: "Media upload cache lookups by result",
			},
			[]string{"result"},
		),
		GatewayEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qqbot_gateway_events_total",
				Help: "Gateway dispatch events by type",
			},
			[]string{"type"},
		),
		SendRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qqbot_send_requests_total",
				Help: "Outbound send requests by target type and result",
			},
			[]string{"target_type", "result"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.HTTPRequestsTotal,
			m.HTTPRequestDuration,
			m.APIRequestsTotal,
			m.APIRequestDuration,
			m.TokenFetchesTotal,
			m.SequenceEvictions,
			m.MediaCacheLookups,
			m.GatewayEventsTotal,
			m.SendRequestsTotal,
		)
	}

	return m
}

// The helpers below accept a nil receiver so components can run without metrics.

// ------------------------------------------------------------------------------------------------------
func (m *Metrics) ObserveHTTP(method, endpoint, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// ------------------------------------------------------------------------------------------------------
func (m *Metrics) ObserveAPI(method, endpoint, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.APIRequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// ------------------------------------------------------------------------------------------------------
func (m *Metrics) TokenFetch(result string) {
	if m == nil {
		return
	}
	m.TokenFetchesTotal.WithLabelValues(result).Inc()
}

// ------------------------------------------------------------------------------------------------------
func (m *Metrics) SequenceEvicted(n int) {
	if m == nil {
		return
	}
	m.SequenceEvictions.Add(float64(n))
}

// ------------------------------------------------------------------------------------------------------
func (m *Metrics) MediaCacheLookup(result string) {
	if m == nil {
		return
	}
	m.MediaCacheLookups.WithLabelValues(result).Inc()
}

// ------------------------------------------------------------------------------------------------------
func (m *Metrics) GatewayEvent(eventType string) {
	if m == nil {
		return
	}
	m.GatewayEventsTotal.WithLabelValues(eventType).Inc()
}

// ------------------------------------------------------------------------------------------------------
func (m *Metrics) SendResult(targetType, result string) {
	if m == nil {
		return
	}
	m.SendRequestsTotal.WithLabelValues(targetType, result).Inc()
}
