package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"demoforge/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var productSlug string
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer ledger.Close()

			entries, err := ledger.List(cmd.Context(), history.ListOptions{Product: productSlug, Limit: limit})
			if err != nil {
				return err
			}
			if jsonOut {
				if entries == nil {
					entries = []history.Entry{}
				}
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Run", "Product", "State", "Started", "Time", "Ran", "Detail"},
				historyRows(entries), 4,
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&productSlug, "product", "", "Only show runs for this product slug")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print runs as JSON")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the stored report of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer ledger.Close()

			rep, err := ledger.Report(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, rep)
			}
			fmt.Fprint(cmd.OutOrStdout(), rep.Summary())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	return cmd
}

func openHistory(ctx *commandContext) (*history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.HistoryPath())
}

func historyRows(entries []history.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		detail := ""
		switch {
		case e.FailedStage != "":
			detail = fmt.Sprintf("%s: %s", e.FailedStage, e.ErrorKind)
		case e.FinalPath != "":
			detail = e.FinalPath
		case e.Awaiting != "":
			detail = "awaiting " + e.Awaiting
		}
		ran := strings.Join(e.StagesRun, ",")
		if ran == "" {
			ran = "-"
		}
		rows = append(rows, []string{
			shortID(e.RunID),
			e.Product,
			e.State,
			e.StartedAt.Local().Format("2006-01-02 15:04"),
			e.Duration.Round(time.Second).String(),
			ran,
			detail,
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
