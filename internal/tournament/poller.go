package tournament

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval matches the refresh cadence of the tournament dashboard.
const DefaultPollInterval = 10 * time.Second

// Snapshotter produces tournament snapshots. *Service implements it.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*State, error)
}

// Poller refreshes the tournament snapshot on a fixed interval and keeps the
// latest one for concurrent readers.
type Poller struct {
	src      Snapshotter
	interval time.Duration
	logger   *slog.Logger
	onUpdate func(*State, error)

	mu      sync.RWMutex
	latest  *State
	lastErr error
	updated chan struct{}
}

type PollerOption func(*Poller)

func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithOnUpdate registers a callback run after every refresh attempt.
func WithOnUpdate(fn func(*State, error)) PollerOption {
	return func(p *Poller) { p.onUpdate = fn }
}

func NewPoller(src Snapshotter, opts ...PollerOption) *Poller {
	p := &Poller{
		src:      src,
		interval: DefaultPollInterval,
		logger:   slog.Default(),
		updated:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run refreshes immediately, then every interval, until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("poller stopped")
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

// Refresh takes one snapshot now.
func (p *Poller) Refresh(ctx context.Context) (*State, error) {
	p.refresh(ctx)
	return p.Latest()
}

func (p *Poller) refresh(ctx context.Context) {
	st, err := p.src.Snapshot(ctx)
	if err != nil && ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	if err == nil {
		p.latest = st
	}
	p.lastErr = err
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("tournament snapshot failed", "error", err)
	} else {
		p.logger.Debug("tournament snapshot",
			"status", st.Status.String(),
			"players", st.PlayerCount.String(),
			"prize_pool", st.PrizePool.String(),
		)
	}
	if p.onUpdate != nil {
		p.onUpdate(st, err)
	}

	select {
	case p.updated <- struct{}{}:
	default:
	}
}

// Latest returns the last good snapshot and the error of the last attempt.
// The snapshot is nil until the first successful refresh.
func (p *Poller) Latest() (*State, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.lastErr
}

// Updated is signalled after refresh attempts. Sends coalesce.
func (p *Poller) Updated() <-chan struct{} {
	return p.updated
}
