package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/clawroyale/internal/chain"
	"github.com/yolodolo42/clawroyale/internal/store"
	"github.com/yolodolo42/clawroyale/internal/tournament"
)

func newBetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bet",
		Short: "Bet on matches through the BettingPool",
	}

	placeCmd := &cobra.Command{
		Use:   "place <matchId> <amount>",
		Short: "Approve USDC and place a bet",
		Long: `Approve the amount to the BettingPool and bet on one side of a match.

amount accepts raw base units (5000000) or a decimal amount (5.0). With
--pending the bet id accepted earlier by the HTTP API is marked as placed.`,
		Args: cobra.ExactArgs(2),
		RunE: runBetPlace,
	}
	placeCmd.Flags().Int("player", 1, "Side to back: 1 or 2")
	placeCmd.Flags().String("pending", "", "Mark this API bet id as placed")
	placeCmd.Flags().Bool("revoke-on-failure", false, "Reset the allowance to zero if placeBet fails")

	claimCmd := &cobra.Command{
		Use:   "claim <matchId>",
		Short: "Claim winnings for a settled match",
		Args:  cobra.ExactArgs(1),
		RunE:  runBetClaim,
	}

	showCmd := &cobra.Command{
		Use:   "show <matchId>",
		Short: "Show match pools and your bet",
		Args:  cobra.ExactArgs(1),
		RunE:  runBetShow,
	}
	showCmd.Flags().String("address", "", "Address to check (uses the configured signer if not specified)")

	pendingCmd := &cobra.Command{
		Use:   "pending [battleId]",
		Short: "List bets accepted by the HTTP API",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBetPending,
	}

	cmd.AddCommand(placeCmd, claimCmd, showCmd, pendingCmd)
	return cmd
}

func runBetPlace(cmd *cobra.Command, args []string) error {
	matchID, err := parseUint("matchId", args[0])
	if err != nil {
		return err
	}
	amount, err := tournament.ParseUSDC(args[1])
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	side, _ := cmd.Flags().GetInt("player")
	if side != 1 && side != 2 {
		return fmt.Errorf("--player must be 1 or 2")
	}
	pendingID, _ := cmd.Flags().GetString("pending")
	revoke, _ := cmd.Flags().GetBool("revoke-on-failure")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	a.out.Title("Place bet")
	svc, err := a.writer(revoke)
	if err != nil {
		return err
	}
	a.out.KV("Match", matchID)
	a.out.KV("Backing", "player "+strconv.Itoa(side))
	a.out.Amount("Amount", chain.FormatUSDC(amount), "USDC")

	res, err := svc.PlaceBet(contextFor(cmd), matchID, amount, side == 1)
	if err != nil {
		return a.explain(fmt.Errorf("place bet: %w", err))
	}

	a.out.Rule()
	a.printTx(*res)
	if pendingID != "" {
		if err := a.store.MarkBetPlaced(pendingID, res.TxHash.Hex()); err != nil {
			a.out.Warn(fmt.Sprintf("bet placed but API bet %s not updated: %v", pendingID, err))
		}
	}
	a.out.Success("Bet placed")
	return nil
}

func runBetClaim(cmd *cobra.Command, args []string) error {
	matchID, err := parseUint("matchId", args[0])
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	a.out.Title("Claim bet")
	svc, err := a.writer(false)
	if err != nil {
		return err
	}
	res, err := svc.ClaimBet(contextFor(cmd), matchID)
	if err != nil {
		return fmt.Errorf("claim bet: %w", err)
	}
	a.out.Rule()
	a.printTx(*res)
	a.out.Success("Winnings claimed")
	return nil
}

func runBetShow(cmd *cobra.Command, args []string) error {
	matchID, err := parseUint("matchId", args[0])
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := contextFor(cmd)
	svc := a.reader()
	p1, p2, err := svc.MatchPools(ctx, matchID)
	if err != nil {
		return err
	}
	a.out.Title(fmt.Sprintf("Match %s", matchID))
	a.out.Amount("Pool player 1", chain.FormatUSDC(p1), "USDC")
	a.out.Amount("Pool player 2", chain.FormatUSDC(p2), "USDC")

	account, err := accountFor(cmd)
	if err != nil {
		return nil
	}
	bet, err := svc.BetOf(ctx, matchID, account)
	if err != nil {
		return err
	}
	if bet.Amount == nil || bet.Amount.Sign() == 0 {
		a.out.Dim("No bet from " + account.Hex())
		return nil
	}
	side := "player 2"
	if bet.ForPlayer1 {
		side = "player 1"
	}
	a.out.Amount("Your bet", chain.FormatUSDC(bet.Amount), "USDC")
	a.out.KV("Backing", side)
	a.out.KV("Claimed", bet.Claimed)
	return nil
}

func runBetPending(cmd *cobra.Command, args []string) error {
	battleID := ""
	if len(args) == 1 {
		battleID = args[0]
	}
	st, err := store.Open(getDataDir())
	if err != nil {
		return err
	}
	defer st.Close()

	bets, err := st.ListBets(battleID)
	if err != nil {
		return err
	}
	return renderBets(cmd, bets)
}
