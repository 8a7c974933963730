package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/clawroyale/internal/chain"
)

func newDelegationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delegation",
		Short: "Manage smart-account betting delegation",
	}

	configureCmd := &cobra.Command{
		Use:   "configure <maxBetUSDC> <durationSeconds>",
		Short: "Allow ClawRoyaleSmart to bet for you",
		Long: `Configure the ClawRoyaleSmart delegation: the contract may place bets on your
behalf up to maxBetUSDC (whole or decimal USDC, e.g. 10 or 2.5) per bet
for durationSeconds.`,
		Example: "  clawroyale delegation configure 10 86400",
		Args:    cobra.ExactArgs(2),
		RunE:    runDelegationConfigure,
	}
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current delegation",
		RunE:  runDelegationStatus,
	}
	statusCmd.Flags().String("address", "", "Address to check (uses the configured signer if not specified)")

	cmd.AddCommand(configureCmd, statusCmd)
	return cmd
}

func runDelegationConfigure(cmd *cobra.Command, args []string) error {
	maxBet, err := chain.ParseUnits(args[0], chain.USDCDecimals)
	if err != nil {
		return fmt.Errorf("invalid maxBetUSDC: %w", err)
	}
	duration, err := parseUint("durationSeconds", args[1])
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	a.out.Title("Configure delegation")
	svc, err := a.writer(false)
	if err != nil {
		return err
	}
	a.out.Amount("Max bet", chain.FormatUSDC(maxBet), "USDC")
	a.out.KV("Duration", fmt.Sprintf("%ss", duration))

	res, err := svc.ConfigureDelegation(contextFor(cmd), maxBet, duration)
	if err != nil {
		return fmt.Errorf("configure delegation: %w", err)
	}

	a.out.Rule()
	a.printTx(res.TxResult)
	if ev := res.Event; ev != nil {
		a.out.KV("Expires", time.Unix(ev.Expiry.Int64(), 0).UTC().Format(time.RFC3339))
	}
	if d := res.Delegation; d != nil {
		a.out.KV("Valid delegation", d.Valid)
		a.out.Amount("Delegation limit", chain.FormatUSDC(d.Limit), "USDC")
	}
	a.out.Success("Delegation configured")
	return nil
}

func runDelegationStatus(cmd *cobra.Command, args []string) error {
	account, err := accountFor(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := a.reader().Delegation(contextFor(cmd), account)
	if err != nil {
		return err
	}
	a.out.Title("Delegation " + account.Hex())
	a.out.KV("Valid delegation", d.Valid)
	a.out.Amount("Delegation limit", chain.FormatUSDC(d.Limit), "USDC")
	return nil
}
