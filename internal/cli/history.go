package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/clawroyale/internal/store"
	"github.com/yolodolo42/clawroyale/internal/ui"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [operationId]",
		Short: "Show journaled operations",
		Long: `List recent operations from the local journal, or show the steps of one
operation. An operation stuck in "pending" was interrupted; its approve step
tells you whether an allowance is outstanding.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}
	cmd.Flags().Int("limit", 20, "Number of operations to list")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := store.Open(getDataDir())
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer st.Close()
	out := newPrinter(cmd)

	if len(args) == 1 {
		op, err := st.GetOperation(args[0])
		if store.IsNotFound(err) {
			return fmt.Errorf("operation %s not found", args[0])
		}
		if err != nil {
			return err
		}
		printOperation(out, st, op)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	ops, err := st.ListOperations(limit)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		out.Line("No operations recorded.")
		return nil
	}

	tbl := &ui.Table{Headers: []string{"ID", "Op", "Chain", "Status", "Steps", "Started"}}
	for _, op := range ops {
		steps := make([]string, 0, len(op.Steps))
		for _, s := range op.Steps {
			steps = append(steps, s.Step+":"+s.Status)
		}
		tbl.Append(op.ID, op.Op, op.Chain, op.Status, strings.Join(steps, " "), op.CreatedAt.Local().Format(time.DateTime))
	}
	out.Table(tbl)
	return nil
}

func printOperation(out *ui.Printer, st *store.Store, op *store.Operation) {
	out.Title("Operation " + op.ID)
	out.KV("Op", op.Op)
	out.KV("Chain", op.Chain)
	out.KV("From", op.From)
	out.KV("Status", op.Status)
	if op.Error != "" {
		out.KV("Error", op.Error)
	}
	out.KV("Started", op.CreatedAt.Local().Format(time.DateTime))
	out.KV("Updated", op.UpdatedAt.Local().Format(time.DateTime))

	keys := make([]string, 0, len(op.Args))
	for k := range op.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.KV(k, op.Args[k])
	}

	out.Rule()
	for _, s := range op.Steps {
		detail := s.TxHash
		if s.TxHash != "" {
			if r, err := st.GetReceipt(op.Chain, s.TxHash); err == nil {
				detail += " block=" + strconv.FormatUint(r.BlockNumber, 10)
			}
		}
		if s.GasUsed > 0 {
			detail += " gas=" + strconv.FormatUint(s.GasUsed, 10)
		}
		if s.Error != "" {
			detail = strings.TrimSpace(detail + " " + s.Error)
		}
		out.Step(s.Step, s.Status, detail)
	}
}
