package metrics

import (
	"io"
	"math/big"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/clawroyale/internal/contracts"
	"github.com/yolodolo42/clawroyale/internal/tournament"
	"github.com/yolodolo42/clawroyale/internal/tx"
)

var _ tx.Observer = (*Manager)(nil)

func TestNewManager(t *testing.T) {
	t.Run("defaults to a private registry", func(t *testing.T) {
		a := NewManager()
		b := NewManager()
		assert.NotSame(t, a.Registry(), b.Registry())
	})

	t.Run("uses supplied registry", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m := NewManager(WithRegistry(reg), WithNamespace("test"), WithSubsystem("ops"), WithHistogramBuckets([]float64{0.1, 1}))
		assert.Same(t, reg, m.Registry())

		m.RecordBet()
		families, err := reg.Gather()
		require.NoError(t, err)
		names := map[string]bool{}
		for _, f := range families {
			names[f.GetName()] = true
		}
		assert.True(t, names["test_ops_api_bets_total"])
	})
}

func TestObserveStep(t *testing.T) {
	m := NewManager()
	m.ObserveStep("register", "approve", "mined", 3*time.Second)
	m.ObserveStep("register", "approve", "mined", time.Second)
	m.ObserveStep("register", "call", "failed", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.txSteps.WithLabelValues("register", "approve", "mined")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.txSteps.WithLabelValues("register", "call", "failed")))
}

func TestObserveSnapshot(t *testing.T) {
	m := NewManager()
	m.ObserveSnapshot(&tournament.State{
		Status:      contracts.StatusActive,
		PrizePool:   big.NewInt(49_500_000),
		EntryFee:    big.NewInt(5_000_000),
		PlayerCount: big.NewInt(7),
		FetchedAt:   time.Unix(1_700_000_000, 0),
	}, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.tournamentStatus))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.tournamentPlayers))
	assert.InDelta(t, 49.5, testutil.ToFloat64(m.tournamentPrizePool), 1e-9)
	assert.InDelta(t, 5.0, testutil.ToFloat64(m.tournamentEntryFee), 1e-9)
	assert.Equal(t, 1_700_000_000.0, testutil.ToFloat64(m.snapshotLastUnix))

	m.ObserveSnapshot(nil, assert.AnError)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.snapshotErrors))
}

func TestRecordHTTPRequest(t *testing.T) {
	m := NewManager()
	m.RecordHTTPRequest("bet", "POST", 400, time.Millisecond)
	m.RecordHTTPRequest("bet", "POST", 200, time.Millisecond)
	m.RecordHTTPRequest("bet", "POST", 429, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpErrors.WithLabelValues("bet", "POST", "client_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpErrors.WithLabelValues("bet", "POST", "rate_limit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("bet", "POST", "200")))
}

func TestErrorType(t *testing.T) {
	cases := map[int]string{
		500: "server_error",
		502: "server_error",
		429: "rate_limit",
		401: "unauthorized",
		404: "not_found",
		400: "client_error",
		200: "unknown",
	}
	for code, want := range cases {
		assert.Equal(t, want, ErrorType(code), "status %d", code)
	}
}

func TestHandler(t *testing.T) {
	m := NewManager()
	m.RecordHTTPRequest("status", "GET", 200, 10*time.Millisecond)
	m.RecordRegistration()
	m.RecordCredentialIssued()
	m.SetStreamClients(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `clawroyale_http_requests_total{endpoint="status",method="GET",status_code="200"} 1`)
	assert.Contains(t, string(body), "clawroyale_api_registrations_total 1")
	assert.Contains(t, string(body), "clawroyale_api_credentials_issued_total 1")
	assert.Contains(t, string(body), "clawroyale_stream_clients 2")
}
