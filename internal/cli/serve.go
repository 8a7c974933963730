package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yolodolo42/clawroyale/internal/metrics"
	"github.com/yolodolo42/clawroyale/internal/server"
	"github.com/yolodolo42/clawroyale/internal/store"
	"github.com/yolodolo42/clawroyale/internal/tournament"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tournament HTTP API",
		Long: `Serve the agent API: registration, bets, tournament status, leaderboard,
wallet-signature authentication and Prometheus metrics.

Tournament status comes from a background poller of the ClawRoyale contract.
Authentication is enabled by --auth (secret generated into the data directory)
or by setting auth_secret (CLAWROYALE_AUTH_SECRET).`,
		RunE: runServe,
	}
	flags := cmd.Flags()
	flags.String("addr", server.DefaultAddr, "Listen address")
	flags.Bool("auth", false, "Enable /api/v1/auth with a secret kept in the data directory")
	flags.Bool("require-auth", false, "Require an agent credential for POST /register and /bet (implies --auth)")
	flags.Float64("rate-limit", 5, "Requests per second per client on write endpoints (0 disables)")
	flags.Int("rate-burst", 10, "Burst size for the rate limiter")
	flags.Duration("interval", 0, "Snapshot refresh interval (default from poll_interval)")
	return cmd
}

var serveFlagBindings = map[string]string{
	"server.addr":         "addr",
	"server.auth":         "auth",
	"server.require_auth": "require-auth",
	"server.rate_limit":   "rate-limit",
	"server.rate_burst":   "rate-burst",
}

func newLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log_level"))); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd.Flags(), serveFlagBindings); err != nil {
		return err
	}
	logger := newLogger()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := store.Open(getDataDir())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = st

	m := metrics.NewManager()

	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		interval = viper.GetDuration("poll_interval")
	}
	// srv is assigned before the poller starts.
	var srv *server.Server
	poller := tournament.NewPoller(a.reader(),
		tournament.WithInterval(interval),
		tournament.WithLogger(logger.With("component", "poller")),
		tournament.WithOnUpdate(func(st *tournament.State, err error) {
			m.ObserveSnapshot(st, err)
			srv.Publish(st, err)
		}),
	)

	secret := []byte(strings.TrimSpace(viper.GetString("auth_secret")))
	requireAuth := viper.GetBool("server.require_auth")
	if len(secret) == 0 && (requireAuth || viper.GetBool("server.auth")) {
		if secret, err = server.LoadOrCreateSecret(getDataDir()); err != nil {
			return err
		}
	}

	cfg := server.Config{
		Addr:        viper.GetString("server.addr"),
		Network:     a.chain,
		Contracts:   a.addrs,
		AuthSecret:  secret,
		RequireAuth: requireAuth,
		RateLimit:   viper.GetFloat64("server.rate_limit"),
		RateBurst:   viper.GetInt("server.rate_burst"),
	}
	srv, err = server.New(cfg, st, poller,
		server.WithMetrics(m),
		server.WithLogger(logger.With("component", "server")),
	)
	if err != nil {
		return err
	}
	if len(cfg.AuthSecret) == 0 {
		logger.Warn("auth disabled, set auth_secret or pass --auth to enable /api/v1/auth")
	}

	ctx, stop := signal.NotifyContext(contextFor(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go poller.Run(ctx)
	return serve(ctx, srv)
}

var serve = func(ctx context.Context, srv *server.Server) error {
	return srv.ListenAndServe(ctx)
}
