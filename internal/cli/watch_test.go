package cli

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/clawroyale/internal/contracts"
	"github.com/yolodolo42/clawroyale/internal/tournament"
)

type fakeSource struct {
	state   *tournament.State
	err     error
	updated chan struct{}
}

func (f *fakeSource) Latest() (*tournament.State, error) { return f.state, f.err }

func (f *fakeSource) Updated() <-chan struct{} { return f.updated }

func (f *fakeSource) Refresh(context.Context) (*tournament.State, error) {
	select {
	case f.updated <- struct{}{}:
	default:
	}
	return f.state, f.err
}

type fakePlayers struct {
	players []contracts.Player
	calls   int
}

func (f *fakePlayers) Players(context.Context) ([]contracts.Player, error) {
	f.calls++
	return f.players, nil
}

func pendingState(players int64) *tournament.State {
	return &tournament.State{
		Status:      contracts.StatusPending,
		PrizePool:   big.NewInt(20_000_000),
		EntryFee:    big.NewInt(5_000_000),
		PlayerCount: big.NewInt(players),
		FetchedAt:   time.Now(),
	}
}

func TestWatchModel(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{updated: make(chan struct{}, 1)}
	lister := &fakePlayers{players: []contracts.Player{
		{EthAddress: me, Score: big.NewInt(12), Registered: true},
		{EthAddress: common.HexToAddress("0x0b0b"), Score: big.NewInt(3), Eliminated: true, Registered: true},
	}}

	t.Run("loading until the first snapshot", func(t *testing.T) {
		m := newWatchModel(ctx, "localhost", src, lister)
		assert.Contains(t, m.View(), "Loading tournament state")
	})

	t.Run("snapshot fetches players", func(t *testing.T) {
		m := newWatchModel(ctx, "localhost", src, lister)
		next, cmd := m.Update(stateMsg{state: pendingState(2)})
		m = next.(watchModel)
		require.NotNil(t, cmd)
		assert.Contains(t, m.View(), "Pending")
		assert.Contains(t, m.View(), "20.000000")
		assert.Contains(t, m.View(), "10.000000", "estimated payout")

		msg := m.fetchPlayers()()
		next, _ = m.Update(msg)
		m = next.(watchModel)
		assert.Equal(t, 1, lister.calls)
		assert.Len(t, m.table.Rows(), 2)
		assert.Equal(t, "eliminated", m.table.Rows()[1][3])
	})

	t.Run("same count does not refetch", func(t *testing.T) {
		m := newWatchModel(ctx, "localhost", src, lister)
		next, _ := m.Update(stateMsg{state: pendingState(2)})
		m = next.(watchModel)
		assert.Equal(t, "2", m.lastCount)

		next, _ = m.Update(stateMsg{state: pendingState(2)})
		assert.Equal(t, "2", next.(watchModel).lastCount)
	})

	t.Run("error keeps last state", func(t *testing.T) {
		m := newWatchModel(ctx, "localhost", src, lister)
		next, _ := m.Update(stateMsg{state: pendingState(1)})
		next, _ = next.(watchModel).Update(stateMsg{err: errors.New("rpc down")})
		m = next.(watchModel)
		assert.NotNil(t, m.state)
		assert.Contains(t, m.View(), "rpc down")
	})

	t.Run("waits for poller updates", func(t *testing.T) {
		src := &fakeSource{state: pendingState(4), updated: make(chan struct{}, 1)}
		m := newWatchModel(ctx, "localhost", src, lister)
		_, _ = src.Refresh(ctx)
		msg := m.waitForUpdate()()
		got, ok := msg.(stateMsg)
		require.True(t, ok)
		assert.Equal(t, int64(4), got.state.PlayerCount.Int64())
	})

	t.Run("q quits", func(t *testing.T) {
		m := newWatchModel(ctx, "localhost", src, lister)
		next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
		require.NotNil(t, cmd)
		assert.True(t, next.(watchModel).quitting)
		assert.Empty(t, next.(watchModel).View())
	})
}
