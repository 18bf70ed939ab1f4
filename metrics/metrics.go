package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gateway decisions.
const (
	DecisionAllow     = "allow"
	DecisionNoSession = "no_session"
	DecisionExpired   = "expired"
	DecisionDomain    = "domain"
)

// Exchange outcomes.
const (
	ExchangeSuccess       = "success"
	ExchangeInvalidLink   = "invalid_link"
	ExchangeProviderError = "provider_error"
	ExchangeNoSession     = "no_session"
	ExchangeDomain        = "domain"
)

// Magic link request outcomes.
const (
	MagicLinkSent        = "sent"
	MagicLinkRateLimited = "rate_limited"
	MagicLinkRejected    = "rejected"
	MagicLinkFailed      = "failed"
)

// Config configures the collectors.
type Config struct {
	Namespace string
	Registry  prometheus.Registerer
	Gatherer  prometheus.Gatherer
}

type Option func(*Config)

func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithRegistry registers the collectors on reg instead of the default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = reg
		c.Gatherer = reg
	}
}

// Metrics holds the portal's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	gatewayDecisions *prometheus.CounterVec
	exchanges        *prometheus.CounterVec
	magicLinks       *prometheus.CounterVec
	refreshes        *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	gatherer         prometheus.Gatherer
}

func New(options ...Option) *Metrics {
	config := Config{
		Namespace: "portal",
		Registry:  prometheus.DefaultRegisterer,
		Gatherer:  prometheus.DefaultGatherer,
	}
	for _, opt := range options {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		gatewayDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "gateway_decisions_total",
			Help:      "Auth gateway decisions for protected requests",
		}, []string{"decision"}),

		exchanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "magic_link_exchanges_total",
			Help:      "Magic link confirmations by outcome",
		}, []string{"outcome"}),

		magicLinks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "magic_links_requested_total",
			Help:      "Magic link requests by outcome",
		}, []string{"outcome"}),

		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "session_refreshes_total",
			Help:      "Session refresh attempts made by the gateway",
		}, []string{"result"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),

		gatherer: config.Gatherer,
	}
}

func (m *Metrics) GatewayDecision(decision string) {
	if m == nil {
		return
	}
	m.gatewayDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) Exchange(outcome string) {
	if m == nil {
		return
	}
	m.exchanges.WithLabelValues(outcome).Inc()
}

func (m *Metrics) MagicLink(outcome string) {
	if m == nil {
		return
	}
	m.magicLinks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Refresh(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, http.StatusText(status)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
