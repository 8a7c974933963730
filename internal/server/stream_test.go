package server

import (
	"math/big"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/clawroyale/internal/contracts"
	"github.com/yolodolo42/clawroyale/internal/metrics"
	"github.com/yolodolo42/clawroyale/internal/tournament"
)

type statusFrame struct {
	Type    string         `json:"type"`
	Payload statusResponse `json:"payload"`
}

func dialStream(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) statusFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f statusFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestStream(t *testing.T) {
	t.Run("sends current snapshot then updates", func(t *testing.T) {
		state := fixedState{st: &tournament.State{
			Status:      contracts.StatusActive,
			PrizePool:   big.NewInt(10_000_000),
			EntryFee:    big.NewInt(5_000_000),
			PlayerCount: big.NewInt(2),
			FetchedAt:   time.Now(),
		}}
		m := metrics.NewManager()
		srv, _ := newTestServer(t, Config{}, state, WithMetrics(m))
		conn := dialStream(t, srv)

		first := readFrame(t, conn)
		assert.Equal(t, "status", first.Type)
		assert.Equal(t, "active", first.Payload.Tournament.Status)
		assert.Equal(t, int64(2), first.Payload.Tournament.Players)

		srv.Publish(&tournament.State{
			Status:      contracts.StatusCompleted,
			PrizePool:   big.NewInt(15_000_000),
			EntryFee:    big.NewInt(5_000_000),
			PlayerCount: big.NewInt(3),
			FetchedAt:   time.Now(),
		}, nil)

		next := readFrame(t, conn)
		assert.Equal(t, "closed", next.Payload.Tournament.Status)
		assert.Equal(t, int64(3), next.Payload.Tournament.Players)
		assert.Equal(t, 15.0, next.Payload.Tournament.PrizePoolUSDC)
	})

	t.Run("pending defaults before first snapshot", func(t *testing.T) {
		srv, _ := newTestServer(t, Config{}, nil)
		conn := dialStream(t, srv)

		f := readFrame(t, conn)
		assert.Equal(t, "open", f.Payload.Tournament.Status)
		assert.Nil(t, f.Payload.Tournament.UpdatedAt)
	})

	t.Run("failed refresh is not forwarded", func(t *testing.T) {
		srv, _ := newTestServer(t, Config{}, nil)
		conn := dialStream(t, srv)
		readFrame(t, conn)

		srv.Publish(nil, assert.AnError)
		srv.Publish(&tournament.State{Status: contracts.StatusActive, FetchedAt: time.Now()}, nil)

		f := readFrame(t, conn)
		assert.Equal(t, "active", f.Payload.Tournament.Status)
	})
}
