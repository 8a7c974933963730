package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yolodolo42/clawroyale/internal/chain"
	"github.com/yolodolo42/clawroyale/internal/contracts"
	"github.com/yolodolo42/clawroyale/internal/metrics"
	"github.com/yolodolo42/clawroyale/internal/setup"
	"github.com/yolodolo42/clawroyale/internal/store"
	"github.com/yolodolo42/clawroyale/internal/tournament"
	"github.com/yolodolo42/clawroyale/internal/tx"
	"github.com/yolodolo42/clawroyale/internal/ui"
	"github.com/yolodolo42/clawroyale/internal/wallet"
	"golang.org/x/term"
)

var errNoSigner = errors.New("no signer configured: set PRIVATE_KEY or --from with a keystore wallet")

// Backend is everything commands need from a chain connection.
type Backend interface {
	tx.Backend
	tournament.Reader
}

// dialBackend connects to chainName. rpcURL overrides the chain's default
// endpoints when set.
var dialBackend = func(chainName, rpcURL string) (Backend, error) {
	client := chain.NewClient()
	cfg, err := client.GetChainConfig(chainName)
	if err != nil {
		return nil, err
	}
	if rpcURL != "" {
		client.AddChain(chainName, cfg.WithRPCURL(rpcURL))
	}
	return client, nil
}

// readPassword prompts on the terminal without echo.
var readPassword = func(prompt string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("password required: set CLAWROYALE_KEYSTORE_PASSWORD or run in a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(password), nil
}

func getDataDir() string {
	if dir := viper.GetString("data_dir"); dir != "" {
		return dir
	}
	dir, err := setup.GetDataDir()
	if err != nil {
		return ".clawroyale"
	}
	return dir
}

// resolveAddresses layers contract addresses: flag/env, then config, then
// deployments.json, then the built-in Base Sepolia deployment.
func resolveAddresses(chainName string) (contracts.Addresses, error) {
	var addrs contracts.Addresses
	if chainName == setup.DefaultChain {
		addrs = contracts.BaseSepolia()
	}

	path := expandHome(viper.GetString("deployments"))
	if path == "" {
		if _, err := os.Stat("deployments.json"); err == nil {
			path = "deployments.json"
		}
	}
	if path != "" {
		d, err := contracts.LoadDeployments(path)
		if err != nil {
			return contracts.Addresses{}, fmt.Errorf("load deployments: %w", err)
		}
		if addrs, err = d.Merge(addrs); err != nil {
			return contracts.Addresses{}, err
		}
	}

	for _, o := range []struct {
		key string
		dst *common.Address
	}{
		{"contracts.usdc", &addrs.USDC},
		{"contracts.agent_verifier", &addrs.AgentVerifier},
		{"contracts.claw_royale", &addrs.ClawRoyale},
		{"contracts.betting_pool", &addrs.BettingPool},
		{"contracts.claw_royale_smart", &addrs.ClawRoyaleSmart},
	} {
		v := viper.GetString(o.key)
		if v == "" {
			continue
		}
		addr, err := contracts.ParseAddress(o.key, v)
		if err != nil {
			return contracts.Addresses{}, err
		}
		*o.dst = addr
	}
	return addrs, nil
}

// loadSigner returns the PRIVATE_KEY signer when set, otherwise the keystore
// wallet named by --from.
func loadSigner() (wallet.Signer, error) {
	if key := viper.GetString("private_key"); key != "" {
		return wallet.NewKeySigner(key)
	}
	from := viper.GetString("from")
	if from == "" {
		return nil, errNoSigner
	}
	if !common.IsHexAddress(from) {
		return nil, fmt.Errorf("invalid --from address: %s", from)
	}

	ks, err := wallet.OpenKeystore(getDataDir())
	if err != nil {
		return nil, err
	}
	addr := common.HexToAddress(from)
	if !ks.Has(addr) {
		return nil, fmt.Errorf("%w: %s (see 'clawroyale wallet list')", wallet.ErrAccountNotFound, from)
	}
	password := viper.GetString("keystore_password")
	if password == "" {
		password, err = readPassword(fmt.Sprintf("Password for %s: ", ui.ShortAddress(from)))
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
	}
	return ks.Unlock(addr, password)
}

// app is the per-invocation wiring shared by the tournament commands.
type app struct {
	out     *ui.Printer
	chain   string
	config  *chain.ChainConfig
	backend Backend
	addrs   contracts.Addresses

	store   *store.Store
	metrics *metrics.Manager
}

func newApp(cmd *cobra.Command) (*app, error) {
	chainName := viper.GetString("chain")
	if chainName == "" {
		chainName = setup.DefaultChain
	}
	backend, err := dialBackend(chainName, viper.GetString("rpc_url"))
	if err != nil {
		return nil, err
	}
	cfg, err := backend.GetChainConfig(chainName)
	if err != nil {
		return nil, err
	}
	addrs, err := resolveAddresses(chainName)
	if err != nil {
		return nil, err
	}
	return &app{
		out:     ui.NewPrinter(cmd.OutOrStdout()),
		chain:   chainName,
		config:  cfg,
		backend: backend,
		addrs:   addrs,
	}, nil
}

func (a *app) Close() {
	if a.metrics != nil {
		if path := viper.GetString("metrics_file"); path != "" {
			if err := prometheus.WriteToTextfile(path, a.metrics.Registry()); err != nil {
				a.out.Warn(fmt.Sprintf("write metrics: %v", err))
			}
		}
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if c, ok := a.backend.(interface{ Close() }); ok {
		c.Close()
	}
}

// reader is a read-only tournament service.
func (a *app) reader() *tournament.Service {
	return tournament.NewService(a.backend, a.chain, a.addrs, nil)
}

// writer loads the signer, opens the journal and returns a service that can
// send transactions.
func (a *app) writer(revokeOnFailure bool) (*tournament.Service, error) {
	signer, err := loadSigner()
	if err != nil {
		return nil, err
	}

	// The signer may only call the tournament contracts.
	policy := tx.Policy{AllowTo: a.addrs.Targets()}
	if raw := viper.GetString("max_amount"); raw != "" {
		limit, err := tournament.ParseUSDC(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid max_amount: %w", err)
		}
		policy.MaxTokenAmount = limit
	}
	sender := tx.NewSender(a.backend, signer, a.chain,
		tx.WithPolicy(policy),
		tx.WithSendTimeout(viper.GetDuration("send_timeout")),
		tx.WithWaitTimeout(viper.GetDuration("wait_timeout")),
	)

	opts := []tx.SequencerOption{
		tx.WithProgress(a.printStep),
		tx.WithRevokeOnFailure(revokeOnFailure),
	}
	if a.store == nil {
		st, err := store.Open(getDataDir())
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		a.store = st
	}
	opts = append(opts, tx.WithJournal(a.store))
	if viper.GetString("metrics_file") != "" {
		a.metrics = metrics.NewManager()
		opts = append(opts, tx.WithObserver(a.metrics))
	}

	a.out.KV("From", signer.Address().Hex())
	a.out.KV("Chain", a.config.Name)
	return tournament.NewService(a.backend, a.chain, a.addrs, tx.NewSequencer(sender, opts...)), nil
}

func (a *app) printStep(ev tx.StepEvent) {
	detail := ""
	switch {
	case ev.Err != nil:
		detail = ev.Err.Error()
	case ev.Status == tx.StatusMined:
		detail = fmt.Sprintf("%s gas=%d", ev.TxHash.Hex(), ev.GasUsed)
	case ev.TxHash != (common.Hash{}):
		detail = ev.TxHash.Hex()
	}
	a.out.Step(string(ev.Step), string(ev.Status), detail)
}

// printTx renders the common part of a write result.
func (a *app) printTx(res tournament.TxResult) {
	if res.ApproveSkipped {
		a.out.Dim("Existing allowance reused, approve skipped")
	} else if res.ApproveHash != (common.Hash{}) {
		a.out.Hash("Approve tx", res.ApproveHash.Hex(), a.config.TxURL(res.ApproveHash.Hex()))
	}
	a.out.Hash("Tx", res.TxHash.Hex(), a.config.TxURL(res.TxHash.Hex()))
	a.out.KV("Block", res.BlockNumber)
	a.out.KV("Gas used", res.GasUsed)
	a.out.Dim("Operation " + res.OpID)
}

// explain adds operator guidance to sequence failures before handing the
// error back to cobra.
func (a *app) explain(err error) error {
	var seqErr *tx.SequenceError
	if errors.As(err, &seqErr) && seqErr.AllowanceOutstanding() {
		a.out.Warn(fmt.Sprintf("approve %s was mined but %s failed; the allowance is still outstanding and will be reused on retry",
			seqErr.ApproveHash.Hex(), seqErr.Step))
	}
	return err
}

func contextFor(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func newPrinter(cmd *cobra.Command) *ui.Printer {
	return ui.NewPrinter(cmd.OutOrStdout())
}
