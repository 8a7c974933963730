package cli

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"github.com/yolodolo42/clawroyale/internal/chain"
	"github.com/yolodolo42/clawroyale/internal/tournament"
	"github.com/yolodolo42/clawroyale/internal/x402"
)

func newX402Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "x402",
		Short: "x402 USDC payment authorizations",
	}

	authorizeCmd := &cobra.Command{
		Use:   "authorize",
		Short: "Sign a TransferWithAuthorization and print the X-PAYMENT header",
		Long: `Sign an ERC-3009 TransferWithAuthorization for USDC and print the base64
X-PAYMENT header together with the payment id.

The amount defaults to the tournament entry fee and the payee to ClawRoyale.
Once the payment settles, pass the payment id to 'clawroyale register --payment-id'.`,
		RunE: runX402Authorize,
	}
	authorizeCmd.Flags().String("amount", "", "USDC amount (default: entry fee)")
	authorizeCmd.Flags().String("to", "", "Payee address (default: ClawRoyale)")
	authorizeCmd.Flags().Duration("valid-for", x402.DefaultValidity, "How long the authorization stays valid")

	verifyCmd := &cobra.Command{
		Use:   "verify <header>",
		Short: "Decode an X-PAYMENT header and check its signature and window",
		Args:  cobra.ExactArgs(1),
		RunE:  runX402Verify,
	}

	cmd.AddCommand(authorizeCmd, verifyCmd)
	return cmd
}

func runX402Authorize(cmd *cobra.Command, args []string) error {
	validFor, _ := cmd.Flags().GetDuration("valid-for")
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	to, err := optionalAddress(cmd, "to")
	if err != nil {
		return err
	}
	if to == (common.Address{}) {
		to = a.addrs.ClawRoyale
	}
	if to == (common.Address{}) {
		return fmt.Errorf("no payee: pass --to or configure the ClawRoyale address")
	}

	var amount *big.Int
	if raw, _ := cmd.Flags().GetString("amount"); raw != "" {
		if amount, err = tournament.ParseUSDC(raw); err != nil {
			return fmt.Errorf("invalid --amount: %w", err)
		}
	} else {
		st, err := a.reader().Snapshot(contextFor(cmd))
		if err != nil {
			return fmt.Errorf("read entry fee: %w", err)
		}
		amount = st.EntryFee
	}

	signer, err := loadSigner()
	if err != nil {
		return err
	}
	auth, err := x402.NewAuthorization(signer.Address(), to, amount, time.Now(), validFor)
	if err != nil {
		return err
	}
	payment, err := x402.Sign(signer, x402.USDCDomain(a.config.ChainIDInt, a.addrs.USDC), auth)
	if err != nil {
		return err
	}
	header, err := payment.Header()
	if err != nil {
		return err
	}

	id := payment.PaymentID()
	a.out.Title("x402 payment")
	a.out.KV("From", auth.From.Hex())
	a.out.KV("To", auth.To.Hex())
	a.out.Amount("Value", chain.FormatUSDC(auth.Value), "USDC")
	a.out.KV("Valid until", time.Unix(int64(auth.ValidBefore), 0).UTC().Format(time.RFC3339))
	a.out.KV("Payment id", hexutil.Encode(id[:]))
	a.out.Rule()
	a.out.Line("X-PAYMENT: %s", header)
	return nil
}

func runX402Verify(cmd *cobra.Command, args []string) error {
	payment, err := x402.DecodeHeader(args[0])
	if err != nil {
		return err
	}
	if err := payment.Verify(time.Now()); err != nil {
		return err
	}
	a := payment.Authorization
	id := payment.PaymentID()
	out := newPrinter(cmd)
	out.Success("Valid authorization")
	out.KV("From", a.From.Hex())
	out.KV("To", a.To.Hex())
	out.Amount("Value", chain.FormatUSDC(a.Value), "USDC")
	out.KV("Token", payment.Domain.VerifyingContract.Hex())
	out.KV("Chain id", payment.Domain.ChainID)
	out.KV("Payment id", hexutil.Encode(id[:]))
	return nil
}
