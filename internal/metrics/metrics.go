// Package metrics provides Prometheus metrics for the tournament operator.
package metrics

import (
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yolodolo42/clawroyale/internal/tournament"
)

// Manager owns every metric and the registry they are served from.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Transaction sequencing
	txSteps        *prometheus.CounterVec
	txStepDuration *prometheus.HistogramVec

	// Tournament state from the poller
	tournamentStatus    prometheus.Gauge
	tournamentPlayers   prometheus.Gauge
	tournamentPrizePool prometheus.Gauge
	tournamentEntryFee  prometheus.Gauge
	snapshotErrors      prometheus.Counter
	snapshotLastUnix    prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// API intake
	registrations prometheus.Counter
	bets          prometheus.Counter
	authIssued    prometheus.Counter

	streamClients prometheus.Gauge
}

// NewManager creates a manager on a fresh registry unless one is supplied.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "clawroyale",
		histogramBuckets: prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.txSteps = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tx_steps_total",
		Help:      "Transaction sequence steps by operation, step and final status",
	}, []string{"op", "step", "status"})

	m.txStepDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tx_step_duration_seconds",
		Help:      "Time from submit to receipt for one sequence step",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
	}, []string{"op", "step"})

	m.tournamentStatus = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tournament_status",
		Help:      "On-chain tournament status (0 pending, 1 active, 2 completed)",
	})

	m.tournamentPlayers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tournament_players",
		Help:      "Registered players",
	})

	m.tournamentPrizePool = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tournament_prize_pool_usdc",
		Help:      "Prize pool in USDC",
	})

	m.tournamentEntryFee = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tournament_entry_fee_usdc",
		Help:      "Entry fee in USDC",
	})

	m.snapshotErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_errors_total",
		Help:      "Failed tournament state refreshes",
	})

	m.snapshotLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_last_success_unix",
		Help:      "Unix time of the last successful tournament state refresh",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_errors_total",
		Help:      "HTTP responses with status >= 400 by endpoint and error type",
	}, []string{"endpoint", "method", "error_type"})

	m.registrations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "api_registrations_total",
		Help:      "Agent registrations accepted by the API",
	})

	m.bets = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "api_bets_total",
		Help:      "Bets accepted by the API",
	})

	m.authIssued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "api_credentials_issued_total",
		Help:      "Agent credentials issued by the auth endpoint",
	})

	m.streamClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stream_clients",
		Help:      "Connected status stream websockets",
	})
}

// Registry returns the registry metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveStep implements tx.Observer.
func (m *Manager) ObserveStep(op, step, status string, elapsed time.Duration) {
	m.txSteps.WithLabelValues(op, step, status).Inc()
	m.txStepDuration.WithLabelValues(op, step).Observe(elapsed.Seconds())
}

// ObserveSnapshot records a poller refresh. Suitable for tournament.WithOnUpdate.
func (m *Manager) ObserveSnapshot(st *tournament.State, err error) {
	if err != nil {
		m.snapshotErrors.Inc()
		return
	}
	m.tournamentStatus.Set(float64(st.Status))
	m.tournamentPlayers.Set(bigFloat(st.PlayerCount, 0))
	m.tournamentPrizePool.Set(bigFloat(st.PrizePool, 6))
	m.tournamentEntryFee.Set(bigFloat(st.EntryFee, 6))
	m.snapshotLastUnix.Set(float64(st.FetchedAt.Unix()))
}

func (m *Manager) RecordHTTPRequest(endpoint, method string, statusCode int, elapsed time.Duration) {
	code := strconv.Itoa(statusCode)
	m.httpRequests.WithLabelValues(endpoint, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, code).Observe(elapsed.Seconds())
	if statusCode >= http.StatusBadRequest {
		m.httpErrors.WithLabelValues(endpoint, method, ErrorType(statusCode)).Inc()
	}
}

// ErrorType buckets an HTTP status code into a low-cardinality label.
func ErrorType(statusCode int) string {
	switch {
	case statusCode >= http.StatusInternalServerError:
		return "server_error"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limit"
	case statusCode == http.StatusUnauthorized:
		return "unauthorized"
	case statusCode == http.StatusNotFound:
		return "not_found"
	case statusCode >= http.StatusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

func (m *Manager) RecordRegistration() { m.registrations.Inc() }

func (m *Manager) RecordBet() { m.bets.Inc() }

func (m *Manager) RecordCredentialIssued() { m.authIssued.Inc() }

func (m *Manager) SetStreamClients(n int) { m.streamClients.Set(float64(n)) }

func bigFloat(v *big.Int, decimals int) float64 {
	if v == nil {
		return 0
	}
	f := new(big.Float).SetInt(v)
	if decimals > 0 {
		scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
		f.Quo(f, scale)
	}
	out, _ := f.Float64()
	return out
}
