package cli

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"github.com/yolodolo42/clawroyale/internal/chain"
	"github.com/yolodolo42/clawroyale/internal/contracts"
	"github.com/yolodolo42/clawroyale/internal/store"
	"github.com/yolodolo42/clawroyale/internal/ui"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show tournament status, prize pool and entry fee",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.reader().Snapshot(contextFor(cmd))
	if err != nil {
		return err
	}

	a.out.Title(ui.SymbolClaw + " Claw Royale")
	a.out.KV("Chain", a.config.Name)
	a.out.KV("Contract", a.addrs.ClawRoyale.Hex())
	a.out.KV("Status", ui.StatusStyle(st.Status.APIName()).Render(st.Status.String()))
	a.out.KV("Players", st.PlayerCount)
	a.out.Amount("Entry fee", chain.FormatUSDC(st.EntryFee), "USDC")
	a.out.Amount("Prize pool", chain.FormatUSDC(st.PrizePool), "USDC")
	a.out.Amount("Est. payout", chain.FormatUSDC(st.EstimatedPayout()), "USDC")
	return nil
}

func newPlayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "players",
		Short: "List registered players by score",
		RunE:  runPlayers,
	}
}

func runPlayers(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	players, err := a.reader().Players(contextFor(cmd))
	if err != nil {
		return err
	}
	if len(players) == 0 {
		a.out.Line("No players registered yet.")
		return nil
	}

	tbl := &ui.Table{
		Title:   fmt.Sprintf("%d player(s)", len(players)),
		Headers: []string{"#", "Address", "Agent", "Score", "State", "Referrer"},
	}
	for i, p := range players {
		tbl.Append(
			strconv.Itoa(i+1),
			p.EthAddress.Hex(),
			ui.ShortAddress(hexutil.Encode(p.AgentId[:])),
			p.Score.String(),
			playerState(p),
			referrer(p.Referrer),
		)
	}
	a.out.Table(tbl)
	return nil
}

func playerState(p contracts.Player) string {
	switch {
	case p.ClaimedPrize:
		return "claimed"
	case p.Eliminated:
		return "eliminated"
	}
	return "alive"
}

func referrer(addr common.Address) string {
	if addr == (common.Address{}) {
		return "-"
	}
	return ui.ShortAddress(addr.Hex())
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [address...]",
		Short: "Check the deployed contracts",
		Long: `Report code presence, owner() and ETH balance for each address, or for every
configured tournament contract when none is given.`,
		RunE: runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	type target struct {
		name string
		addr common.Address
	}
	var targets []target
	for _, arg := range args {
		addr, err := contracts.ParseAddress("address", arg)
		if err != nil {
			return err
		}
		targets = append(targets, target{name: ui.ShortAddress(addr.Hex()), addr: addr})
	}
	if len(targets) == 0 {
		targets = []target{
			{"USDC", a.addrs.USDC},
			{"AgentVerifier", a.addrs.AgentVerifier},
			{"ClawRoyale", a.addrs.ClawRoyale},
			{"BettingPool", a.addrs.BettingPool},
			{"ClawRoyaleSmart", a.addrs.ClawRoyaleSmart},
		}
	}

	ctx := contextFor(cmd)
	svc := a.reader()
	missing := 0
	a.out.Title("Contracts on " + a.config.Name)
	for _, t := range targets {
		if t.addr == (common.Address{}) {
			a.out.Dim(t.name + ": not configured")
			continue
		}
		rep, err := svc.CheckContract(ctx, t.addr)
		if err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
		if !rep.Deployed {
			missing++
			a.out.Fail(t.name + ": " + t.addr.Hex() + " has no code")
			continue
		}
		detail := fmt.Sprintf("%s code=%dB eth=%s", t.addr.Hex(), rep.CodeSize, chain.FormatBalance(rep.Balance, 18))
		if rep.OwnerErr == nil {
			detail += " owner=" + rep.Owner.Hex()
		}
		a.out.Success(t.name + ": " + detail)
	}
	if missing > 0 {
		return fmt.Errorf("%d contract(s) not deployed on %s", missing, a.chain)
	}
	return nil
}

func renderBets(cmd *cobra.Command, bets []store.Bet) error {
	out := ui.NewPrinter(cmd.OutOrStdout())
	if len(bets) == 0 {
		out.Line("No bets recorded.")
		return nil
	}
	tbl := &ui.Table{Headers: []string{"ID", "Battle", "Agent", "USDC", "Status", "Tx", "Time"}}
	for _, b := range bets {
		tx := "-"
		if b.TxHash != nil {
			tx = ui.ShortAddress(*b.TxHash)
		}
		tbl.Append(b.ID, b.BattleID, b.AgentID, strconv.FormatFloat(b.AmountUSDC, 'f', -1, 64), b.Status, tx, b.Timestamp)
	}
	out.Table(tbl)
	return nil
}
