package cli

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"github.com/yolodolo42/clawroyale/internal/chain"
	"github.com/yolodolo42/clawroyale/internal/tournament"
)

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Pay the entry fee and register an agent",
		Long: `Register an agent in the tournament.

The entry fee is approved to ClawRoyale (skipped when the allowance already
covers it) and register(agentId, referrer) is called. With --smart the
ClawRoyaleSmart contract is used instead, and adding --bet registers and places
an opening bet in one registerAndBet call after a single approve of entry fee
plus bet. With --payment-id the fee is settled through an x402 payment and no
approve is sent.`,
		Example: `  clawroyale register --agent-id 0x6c61...
  clawroyale register --agent-name clawdywithmeatballs --referrer 0xabc...
  clawroyale register --smart
  clawroyale register --smart --bet 2.5`,
		RunE: runRegister,
	}
	cmd.Flags().String("agent-id", "", "Agent id (0x-prefixed bytes32)")
	cmd.Flags().String("agent-name", "", "Derive the agent id from this name")
	cmd.Flags().String("referrer", "", "Referrer address")
	cmd.Flags().Bool("smart", false, "Register through ClawRoyaleSmart")
	cmd.Flags().String("bet", "", "With --smart, also bet this much USDC in the same call")
	cmd.Flags().String("payment-id", "", "x402 payment id (bytes32); registers with registerWithX402")
	cmd.Flags().Bool("revoke-on-failure", false, "Reset the allowance to zero if the register call fails")
	cmd.MarkFlagsMutuallyExclusive("smart", "payment-id")
	cmd.MarkFlagsMutuallyExclusive("bet", "payment-id")
	return cmd
}

func runRegister(cmd *cobra.Command, args []string) error {
	agentID, err := agentIDFor(cmd)
	if err != nil {
		return err
	}
	referrer, err := optionalAddress(cmd, "referrer")
	if err != nil {
		return err
	}
	smart, _ := cmd.Flags().GetBool("smart")
	var bet *big.Int
	if raw, _ := cmd.Flags().GetString("bet"); raw != "" {
		if !smart {
			return fmt.Errorf("--bet requires --smart")
		}
		if bet, err = tournament.ParseUSDC(raw); err != nil {
			return fmt.Errorf("invalid bet: %w", err)
		}
	}
	paymentFlag, _ := cmd.Flags().GetString("payment-id")
	revoke, _ := cmd.Flags().GetBool("revoke-on-failure")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	a.out.Title("Register agent")
	svc, err := a.writer(revoke)
	if err != nil {
		return err
	}
	a.out.KV("Agent id", hexutil.Encode(agentID[:]))
	if referrer != (common.Address{}) {
		a.out.KV("Referrer", referrer.Hex())
	}

	ctx := contextFor(cmd)
	var res *tournament.RegisterResult
	switch {
	case paymentFlag != "":
		paymentID, perr := parseBytes32("payment id", paymentFlag)
		if perr != nil {
			return perr
		}
		res, err = svc.RegisterWithX402(ctx, agentID, paymentID, referrer)
	case bet != nil:
		res, err = svc.RegisterAndBet(ctx, agentID, bet, referrer)
	case smart:
		res, err = svc.RegisterSmart(ctx, agentID, referrer)
	default:
		res, err = svc.Register(ctx, agentID, referrer)
	}
	if err != nil {
		return a.explain(fmt.Errorf("register: %w", err))
	}

	a.out.Rule()
	if res.EntryFee != nil {
		a.out.Amount("Entry fee", chain.FormatUSDC(res.EntryFee), "USDC")
	}
	if res.Bet != nil {
		a.out.Amount("Bet", chain.FormatUSDC(res.Bet), "USDC")
	}
	a.printTx(res.TxResult)
	if res.Event != nil {
		a.out.KV("Registered", res.Event.EthAddress.Hex())
	}
	if ev := res.SmartEvent; ev != nil {
		a.out.KV("Registered", ev.SmartAccount.Hex())
		a.out.Amount("Paid", chain.FormatUSDC(ev.Amount), "USDC")
	}
	if res.PlayerCount != nil {
		a.out.KV("Players", res.PlayerCount)
		a.out.KV("Smart account", res.SmartAccount)
	}
	a.out.Success("Agent registered")
	return nil
}
