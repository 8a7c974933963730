package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/clawroyale/internal/setup"
	"github.com/yolodolo42/clawroyale/internal/ui"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Run the setup wizard",
		Long: `Run the interactive setup wizard to configure clawroyale.

This command guides you through:
  - Choosing the network the contracts live on
  - Naming your agent (its bytes32 id is derived from the name)
  - Creating, importing or selecting the wallet that pays entry fees

Run it again at any time to change these settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !setup.IsInteractive() {
				setup.PrintEnvInstructions()
				return fmt.Errorf("init requires an interactive terminal")
			}
			return runInit(cmd, getDataDir())
		},
	}
}

func runInit(cmd *cobra.Command, dataDir string) error {
	result, path, err := setup.RunWizard(dataDir)
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}
	if result == nil || result.Cancelled {
		return nil
	}

	out := ui.NewPrinter(cmd.OutOrStdout())
	out.Success("Setup complete")
	out.KV("Config", path)
	out.KV("Chain", result.Chain)
	if result.AgentName != "" {
		out.KV("Agent", result.AgentName)
	}
	if result.WalletAddress != "" {
		out.KV("Wallet", result.WalletAddress)
	}
	out.Dim("Run 'clawroyale status' to see the tournament.")
	return nil
}
