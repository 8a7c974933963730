package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/yolodolo42/clawroyale/internal/setup"
	"github.com/yolodolo42/clawroyale/internal/tournament"
)

// envBindings maps config keys to the environment variables the deploy and
// operator scripts have always used.
var envBindings = map[string]string{
	"private_key":                 "PRIVATE_KEY",
	"rpc_url":                     "RPC_URL",
	"contracts.usdc":              "USDC_ADDRESS",
	"contracts.agent_verifier":    "AGENT_VERIFIER_ADDRESS",
	"contracts.claw_royale":       "CLAW_ROYALE_ADDRESS",
	"contracts.betting_pool":      "BETTING_POOL_ADDRESS",
	"contracts.claw_royale_smart": "CLAW_ROYALE_SMART_ADDRESS",
}

// flagBindings maps config keys to persistent flags.
var flagBindings = map[string]string{
	"chain":       "chain",
	"rpc_url":     "rpc-url",
	"deployments": "deployments",
	"from":        "from",
	"data_dir":    "data-dir",
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "clawroyale",
		Short: "Operate the Claw Royale on-chain agent tournament",
		Long: `clawroyale registers agents, funds the prize pool, claims prizes and
places bets against the deployed Claw Royale contracts.

Every state-changing command runs as a journaled sequence: an optional USDC
approve (skipped when the current allowance already covers the amount)
followed by the contract call, each waited on until mined.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir := getDataDir()

			if !setup.NeedsSetup(dataDir) {
				return cmd.Help()
			}
			if !setup.IsInteractive() {
				setup.PrintEnvInstructions()
				return cmd.Help()
			}
			return runInit(cmd, dataDir)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.clawroyale/config.yaml)")
	flags.String("chain", setup.DefaultChain, "Chain to use")
	flags.String("rpc-url", "", "JSON-RPC endpoint overriding the chain default")
	flags.String("deployments", "", "deployments.json with contract addresses")
	flags.String("from", "", "Keystore wallet address to send from")
	flags.String("data-dir", "", "Data directory (default is $HOME/.clawroyale)")

	rootCmd.AddCommand(
		newInitCmd(),
		newWalletCmd(),
		newBalanceCmd(),
		newRegisterCmd(),
		newFundCmd(),
		newClaimCmd(),
		newDelegationCmd(),
		newBetCmd(),
		newStatusCmd(),
		newPlayersCmd(),
		newLeaderboardCmd(),
		newCheckCmd(),
		newWatchCmd(),
		newServeCmd(),
		newHistoryCmd(),
		newAdminCmd(),
		newX402Cmd(),
	)
	return rootCmd
}

func Execute() error {
	return newRootCmd().Execute()
}

// bindFlags binds flags to config keys. Bindings are dropped by
// viper.Reset, so commands bind after initConfig has run.
func bindFlags(flags *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

func initConfig(cmd *cobra.Command, cfgFile string) error {
	viper.Reset()

	if err := bindFlags(cmd.Root().PersistentFlags(), flagBindings); err != nil {
		return err
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}

	viper.SetEnvPrefix("clawroyale")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("send_timeout", "20s")
	viper.SetDefault("wait_timeout", "2m")
	viper.SetDefault("poll_interval", tournament.DefaultPollInterval)
	viper.SetDefault("log_level", "info")

	if cfgFile != "" {
		viper.SetConfigFile(expandHome(cfgFile))
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	} else {
		viper.SetConfigFile(filepath.Join(getDataDir(), setup.ConfigFile))

		// Missing config file is fine, everything has a flag or env form.
		if err := viper.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("read config: %w", err)
			}
		}
	}

	// data_dir may come from the config file just read.
	if err := os.MkdirAll(getDataDir(), 0700); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create data directory: %v\n", err)
	}
	return nil
}
