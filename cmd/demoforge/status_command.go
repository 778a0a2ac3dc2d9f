package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"demoforge/internal/artifact"
	"demoforge/internal/report"
	"demoforge/internal/workflow"
)

type statusArtifact struct {
	Stage    string    `json:"stage"`
	Kind     string    `json:"kind"`
	Path     string    `json:"path"`
	Present  bool      `json:"present"`
	Modified time.Time `json:"modified,omitempty"`
}

type statusView struct {
	Product    string           `json:"product"`
	RunRoot    string           `json:"run_root"`
	Artifacts  []statusArtifact `json:"artifacts"`
	NextRun    []decisionJSON   `json:"next_run"`
	LastReport *report.Report   `json:"last_report,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var productPath string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the artifacts of a product's run root and what the next run would do",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openProduct(productPath)
			if err != nil {
				return err
			}
			p, err := buildPipeline(ws, "", nil)
			if err != nil {
				return err
			}
			decisions, err := p.orchestrator.Preview(workflow.Options{})
			if err != nil {
				return err
			}

			view := statusView{
				Product:   ws.spec.Slug(),
				RunRoot:   ws.store.Root(),
				Artifacts: statusArtifacts(ws.store.List()),
				NextRun:   decisionsJSON(decisions),
			}
			if last, err := report.Load(ws.store.Root()); err == nil {
				view.LastReport = &last
			} else if !errors.Is(err, os.ErrNotExist) {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, view)
			}
			renderStatus(cmd, view, decisions)
			return nil
		},
	}
	cmd.Flags().StringVarP(&productPath, "product", "p", "", "Product specification file (TOML)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print status as JSON")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func statusArtifacts(entries []artifact.Entry) []statusArtifact {
	out := make([]statusArtifact, 0, len(entries))
	for _, e := range entries {
		out = append(out, statusArtifact{
			Stage:    string(e.Stage),
			Kind:     string(e.Kind),
			Path:     e.Path,
			Present:  e.Present,
			Modified: e.ModTime,
		})
	}
	return out
}

func renderStatus(cmd *cobra.Command, view statusView, decisions []workflow.Decision) {
	out := cmd.OutOrStdout()
	colorize := isTerminal(out)

	fmt.Fprintln(out, renderHeading(view.Product, colorize))
	fmt.Fprintf(out, "Run root: %s\n\n", view.RunRoot)

	rows := make([][]string, 0, len(view.Artifacts))
	for _, a := range view.Artifacts {
		modified := "-"
		if a.Present && !a.Modified.IsZero() {
			modified = a.Modified.Local().Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{a.Stage, a.Kind, yesNo(a.Present), modified})
	}
	fmt.Fprintln(out, renderTable(out, []string{"Stage", "Artifact", "Present", "Modified"}, rows))

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next run:")
	fmt.Fprintln(out, renderDecisions(cmd, decisions))

	if view.LastReport != nil {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Last run %s (%s):\n", view.LastReport.RunID, view.LastReport.StartedAt.Local().Format("2006-01-02 15:04"))
		fmt.Fprint(out, view.LastReport.Summary())
	}
}
