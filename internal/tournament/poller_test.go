package tournament

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/clawroyale/internal/contracts"
)

type fakeSnapshotter struct {
	calls atomic.Int64
	fail  atomic.Bool
}

func (f *fakeSnapshotter) Snapshot(ctx context.Context) (*State, error) {
	n := f.calls.Add(1)
	if f.fail.Load() {
		return nil, errors.New("rpc down")
	}
	return &State{
		Status:      contracts.StatusActive,
		PrizePool:   big.NewInt(n),
		EntryFee:    big.NewInt(0),
		PlayerCount: big.NewInt(2),
		FetchedAt:   time.Now(),
	}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPoller_PublishesAndStops(t *testing.T) {
	src := &fakeSnapshotter{}
	p := NewPoller(src, WithInterval(5*time.Millisecond), WithLogger(quietLogger()))

	st, err := p.Latest()
	assert.Nil(t, st)
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, time.Second, time.Millisecond)

	st, err = p.Latest()
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, contracts.StatusActive, st.Status)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on cancel")
	}

	stopped := src.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, src.calls.Load())
}

func TestPoller_KeepsLastGoodSnapshot(t *testing.T) {
	src := &fakeSnapshotter{}
	var updates atomic.Int64
	p := NewPoller(src, WithLogger(quietLogger()), WithOnUpdate(func(*State, error) { updates.Add(1) }))

	st, err := p.Refresh(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st)
	good := st.PrizePool.Int64()

	src.fail.Store(true)
	st, err = p.Refresh(context.Background())
	assert.EqualError(t, err, "rpc down")
	require.NotNil(t, st)
	assert.Equal(t, good, st.PrizePool.Int64())
	assert.Equal(t, int64(2), updates.Load())

	select {
	case <-p.Updated():
	default:
		t.Fatal("expected an update signal")
	}
}
