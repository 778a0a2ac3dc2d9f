package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"demoforge/internal/stage"
	"demoforge/internal/workspace"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List product run roots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			roots, err := workspace.List(cfg.Paths.RunRoot)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(roots) == 0 {
				fmt.Fprintf(out, "No run roots under %s\n", cfg.Paths.RunRoot)
				return nil
			}
			rows := make([][]string, 0, len(roots))
			for _, r := range roots {
				rows = append(rows, []string{
					r.Slug,
					r.LastActivity.Local().Format("2006-01-02 15:04"),
					humanize.IBytes(uint64(r.Size)),
					r.Path,
				})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Product", "Last Activity", "Size", "Path"}, rows, 2))
			return nil
		},
	}
}

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	var productPath string
	var from string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale run roots or a product's artifacts from one stage onward",
		Long: `With --older-than, clean removes every run root with no artifact activity
inside that window. Roots held by a running pipeline are skipped.

With --product and --from, clean removes the named stage's artifacts and those
of every later stage so the next run regenerates them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case productPath != "" && olderThan > 0:
				return errors.New("use either --older-than or --product, not both")
			case productPath != "":
				return cleanFromStage(cmd, ctx, productPath, from, dryRun)
			case olderThan > 0:
				return cleanStale(cmd, ctx, olderThan, dryRun)
			default:
				return errors.New("nothing to clean: pass --older-than or --product with --from")
			}
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Remove run roots idle for longer than this (e.g. 720h)")
	cmd.Flags().StringVarP(&productPath, "product", "p", "", "Product specification whose artifacts to remove")
	cmd.Flags().StringVar(&from, "from", "", "First stage whose artifacts are removed")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only list what would be removed")
	return cmd
}

func cleanStale(cmd *cobra.Command, ctx *commandContext, olderThan time.Duration, dryRun bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	result := workspace.CleanStale(cfg.Paths.RunRoot, olderThan, dryRun, logger)
	out := cmd.OutOrStdout()
	verb := "Removed"
	if dryRun {
		verb = "Would remove"
	}
	for _, path := range result.Removed {
		fmt.Fprintf(out, "%s %s\n", verb, path)
	}
	for _, path := range result.Skipped {
		fmt.Fprintf(out, "Skipped %s (in use)\n", path)
	}
	if len(result.Removed) == 0 && len(result.Skipped) == 0 {
		fmt.Fprintln(out, "Nothing to clean")
	}
	if n := len(result.Errors); n > 0 {
		return fmt.Errorf("%d run root(s) could not be removed; first: %s: %w", n, result.Errors[0].Path, result.Errors[0].Error)
	}
	return nil
}

func cleanFromStage(cmd *cobra.Command, ctx *commandContext, productPath, from string, dryRun bool) error {
	if strings.TrimSpace(from) == "" {
		return errors.New("--from is required with --product")
	}
	first, err := stage.ParseName(from)
	if err != nil {
		return err
	}
	ws, err := ctx.openProduct(productPath)
	if err != nil {
		return err
	}
	if !dryRun {
		if err := ws.store.Lock(); err != nil {
			return err
		}
		defer ws.store.Unlock()
	}

	out := cmd.OutOrStdout()
	removed := 0
	for _, entry := range ws.store.List() {
		if !entry.Present || entry.Stage.Before(first) {
			continue
		}
		if dryRun {
			fmt.Fprintf(out, "Would remove %s (%s)\n", entry.Path, entry.Key())
			removed++
			continue
		}
		if err := ws.store.Remove(entry.Stage, entry.Kind); err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed %s (%s)\n", entry.Path, entry.Key())
		removed++
	}
	if removed == 0 {
		fmt.Fprintf(out, "No artifacts from %s onward\n", first)
	}
	return nil
}
