package cli

import (
	"github.com/spf13/cobra"
	"github.com/yolodolo42/clawroyale/internal/chain"
)

func newBalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show ETH, USDC and tournament allowances",
		Long:  `Display the gas balance, USDC balance and the USDC allowances already granted to ClawRoyale and the BettingPool.`,
		RunE:  runBalance,
	}
	cmd.Flags().String("address", "", "Address to check (uses the configured signer if not specified)")
	return cmd
}

func runBalance(cmd *cobra.Command, args []string) error {
	account, err := accountFor(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	funds, err := a.reader().Funds(contextFor(cmd), account)
	if err != nil {
		return err
	}

	a.out.Title("Balance " + account.Hex())
	a.out.KV("Chain", a.config.Name)
	a.out.Amount("ETH", chain.FormatBalance(funds.ETH, 18), a.config.NativeCurrency)
	a.out.Amount("USDC", chain.FormatUSDC(funds.USDC), "USDC")
	a.out.Amount("Allowance ClawRoyale", chain.FormatUSDC(funds.RoyaleAllowance), "USDC")
	a.out.Amount("Allowance BettingPool", chain.FormatUSDC(funds.BettingAllowance), "USDC")
	if funds.ETH.Sign() == 0 {
		a.out.Warn("No ETH for gas on " + a.config.Name)
	}
	return nil
}
