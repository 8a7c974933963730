package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/clawroyale/internal/tournament"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Owner-only tournament operations",
		Long:  `Start and complete the tournament and submit match results. The sender must own ClawRoyale.`,
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Move the tournament from Pending to Active",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOwnerCall(cmd, "Start tournament", (*tournament.Service).StartTournament)
		},
	}
	completeCmd := &cobra.Command{
		Use:   "complete",
		Short: "Move the tournament to Completed so prizes can be claimed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOwnerCall(cmd, "Complete tournament", (*tournament.Service).CompleteTournament)
		},
	}
	submitCmd := &cobra.Command{
		Use:   "submit-result <matchId> <player1Score> <player2Score>",
		Short: "Record a match result",
		Args:  cobra.ExactArgs(3),
		RunE:  runSubmitResult,
	}

	cmd.AddCommand(startCmd, completeCmd, submitCmd)
	return cmd
}

func runOwnerCall(cmd *cobra.Command, title string, call func(*tournament.Service, context.Context) (*tournament.TxResult, error)) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	a.out.Title(title)
	svc, err := a.writer(false)
	if err != nil {
		return err
	}
	res, err := call(svc, contextFor(cmd))
	if err != nil {
		return fmt.Errorf("%s: %w", title, err)
	}
	a.out.Rule()
	a.printTx(*res)
	a.out.Success(title + " done")
	return nil
}

func runSubmitResult(cmd *cobra.Command, args []string) error {
	matchID, err := parseUint("matchId", args[0])
	if err != nil {
		return err
	}
	p1, err := parseUint("player1Score", args[1])
	if err != nil {
		return err
	}
	p2, err := parseUint("player2Score", args[2])
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	a.out.Title("Submit result")
	svc, err := a.writer(false)
	if err != nil {
		return err
	}
	a.out.KV("Match", matchID)
	a.out.KV("Score", fmt.Sprintf("%s - %s", p1, p2))

	res, err := svc.SubmitResult(contextFor(cmd), matchID, p1, p2)
	if err != nil {
		return fmt.Errorf("submit result: %w", err)
	}
	a.out.Rule()
	a.printTx(*res)
	a.out.Success("Result submitted")
	return nil
}
