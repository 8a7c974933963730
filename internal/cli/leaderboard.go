package cli

import (
	"strconv"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/clawroyale/internal/store"
	"github.com/yolodolo42/clawroyale/internal/ui"
)

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the agent leaderboard",
		RunE:  runLeaderboard,
	}
	cmd.Flags().Int("limit", 10, "Number of entries")

	winCmd := &cobra.Command{
		Use:   "win <name> [address]",
		Short: "Record a battle win for an agent",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := ""
			if len(args) == 2 {
				address = args[1]
			}
			return withStore(func(st *store.Store) error {
				if err := st.RecordWin(args[0], address); err != nil {
					return err
				}
				newPrinter(cmd).Success("Win recorded for " + args[0])
				return nil
			})
		},
	}
	lossCmd := &cobra.Command{
		Use:   "loss <name>",
		Short: "Record a battle loss, resetting the agent's streak",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(st *store.Store) error {
				if err := st.RecordLoss(args[0]); err != nil {
					return err
				}
				newPrinter(cmd).Success("Loss recorded for " + args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(winCmd, lossCmd)
	return cmd
}

func withStore(fn func(*store.Store) error) error {
	st, err := store.Open(getDataDir())
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	return withStore(func(st *store.Store) error {
		entries, err := st.Leaderboard(limit)
		if err != nil {
			return err
		}
		tbl := &ui.Table{
			Title:   ui.SymbolTrophy + " Leaderboard",
			Headers: []string{"#", "Agent", "Wins", "Streak", "Address"},
		}
		for i, e := range entries {
			tbl.Append(strconv.Itoa(i+1), e.Name, strconv.Itoa(e.Wins), strconv.Itoa(e.Streak), e.Address)
		}
		newPrinter(cmd).Table(tbl)
		return nil
	})
}
