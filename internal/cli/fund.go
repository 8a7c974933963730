package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/clawroyale/internal/chain"
	"github.com/yolodolo42/clawroyale/internal/tournament"
)

func newFundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Add USDC to the prize pool",
		Long: `Approve and transfer USDC into the ClawRoyale prize pool.

--amount accepts raw base units (5000000) or a decimal amount (5.0).`,
		RunE: runFund,
	}
	cmd.Flags().String("amount", "", "Amount of USDC to add (required)")
	cmd.Flags().Bool("revoke-on-failure", false, "Reset the allowance to zero if the fund call fails")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func runFund(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString("amount")
	amount, err := tournament.ParseUSDC(raw)
	if err != nil {
		return fmt.Errorf("invalid --amount: %w", err)
	}
	revoke, _ := cmd.Flags().GetBool("revoke-on-failure")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	a.out.Title("Fund prize pool")
	svc, err := a.writer(revoke)
	if err != nil {
		return err
	}
	a.out.Amount("Amount", chain.FormatUSDC(amount), "USDC")

	res, err := svc.FundPrizePool(contextFor(cmd), amount)
	if err != nil {
		return a.explain(fmt.Errorf("fund: %w", err))
	}

	a.out.Rule()
	a.printTx(res.TxResult)
	a.out.Amount("Pool before", chain.FormatUSDC(res.PoolBefore), "USDC")
	if res.PoolAfter != nil {
		a.out.Amount("Pool after", chain.FormatUSDC(res.PoolAfter), "USDC")
	}
	a.out.Success("Prize pool funded")
	return nil
}

func newClaimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim your prize after the tournament completes",
		Long: `Claim the caller's share of the prize pool.

The tournament must be completed, the caller registered and not yet paid, and
eliminated players only receive a share through a referral. Use --check to run
these checks without sending a transaction.`,
		RunE: runClaim,
	}
	cmd.Flags().Bool("check", false, "Only check eligibility")
	cmd.Flags().String("address", "", "Address to check with --check (uses the configured signer if not specified)")
	return cmd
}

func runClaim(cmd *cobra.Command, args []string) error {
	check, _ := cmd.Flags().GetBool("check")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := contextFor(cmd)

	if check {
		account, err := accountFor(cmd)
		if err != nil {
			return err
		}
		a.out.Title("Claim eligibility " + account.Hex())
		_, st, err := a.reader().CheckClaim(ctx, account)
		if st != nil {
			a.out.KV("Status", st.Status)
			a.out.Amount("Prize pool", chain.FormatUSDC(st.PrizePool), "USDC")
			a.out.Amount("Estimated payout", chain.FormatUSDC(st.EstimatedPayout()), "USDC")
		}
		if err != nil {
			a.out.Fail(claimReason(err))
			return err
		}
		a.out.Success("Eligible to claim")
		return nil
	}

	a.out.Title("Claim prize")
	svc, err := a.writer(false)
	if err != nil {
		return err
	}
	res, err := svc.ClaimPrize(ctx)
	if err != nil {
		a.out.Fail(claimReason(err))
		return a.explain(fmt.Errorf("claim: %w", err))
	}

	a.out.Rule()
	a.printTx(res.TxResult)
	a.out.Amount("Estimated", chain.FormatUSDC(res.Estimated), "USDC")
	if res.Claimed != nil {
		a.out.Amount("Claimed", chain.FormatUSDC(res.Claimed), "USDC")
	}
	a.out.Success("Prize claimed")
	return nil
}

func claimReason(err error) string {
	switch {
	case errors.Is(err, tournament.ErrNotCompleted):
		return "Tournament not completed yet"
	case errors.Is(err, tournament.ErrNotRegistered):
		return "Not registered in tournament"
	case errors.Is(err, tournament.ErrAlreadyClaimed):
		return "Prize already claimed"
	case errors.Is(err, tournament.ErrNoPrize):
		return "Eliminated without referral, nothing to claim"
	}
	return err.Error()
}
