package gateway

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - счётчики шлюза. Реализует transport.Observer.
type Metrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	refreshes     *prometheus.CounterVec
	invalidations prometheus.Counter
}

// Значения label result у route_planner_token_refresh_total.
const (
	refreshOK       = "ok"
	refreshFailed   = "failed"
	refreshAbsent   = "no_refresh_token"
	refreshCanceled = "canceled"
)

// NewMetrics создаёт коллекторы и регистрирует их в reg (nil - без регистрации).
// Повторная регистрация тех же коллекторов переиспользует уже зарегистрированные.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "route_planner_http_requests_total",
			Help: "Outgoing HTTP calls by method and status code (0 - transport error).",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "route_planner_http_request_duration_seconds",
			Help:    "Outgoing HTTP call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "route_planner_token_refresh_total",
			Help: "Refresh-token exchanges by result.",
		}, []string{"result"}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "route_planner_session_invalidations_total",
			Help: "Sessions invalidated after unrecoverable authorization failures.",
		}),
	}

	if reg != nil {
		m.requests = register(reg, m.requests)
		m.duration = register(reg, m.duration)
		m.refreshes = register(reg, m.refreshes)
		m.invalidations = register(reg, m.invalidations)
	}

	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}

	return c
}

// ObserveCall - реализация transport.Observer.
func (m *Metrics) ObserveCall(method string, status int, dur time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method).Observe(dur.Seconds())
}

func (m *Metrics) refresh(result string) {
	if m == nil {
		return
	}

	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) invalidated() {
	if m == nil {
		return
	}

	m.invalidations.Inc()
}
