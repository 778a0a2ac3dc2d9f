package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"demoforge/internal/media/ffmpeg"
	"demoforge/internal/notifications"
	"demoforge/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var productPath string
	var notifyTest bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment before running the pipeline",
		Long: `Doctor verifies the run root and log directory, the ffmpeg and ffprobe
binaries with the encoders and filters composition needs, and the generator
API keys. With --product it also asks each stage whether it is ready.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := isTerminal(out)

			fmt.Fprintln(out, renderHeading("Environment", colorize))
			results := preflight.RunAll(cmd.Context(), cfg, ffmpeg.New(cfg.Composition.FFmpegBinary))
			printChecks(out, results, colorize)
			failed := len(preflight.Failed(results))

			if productPath != "" {
				ws, err := ctx.openProduct(productPath)
				if err != nil {
					return err
				}
				p, err := buildPipeline(ws, "", nil)
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderHeading("Stages for "+ws.spec.Slug(), colorize))
				stageResults := preflight.FromHealth(p.orchestrator.Health(cmd.Context()))
				printChecks(out, stageResults, colorize)
				failed += len(preflight.Failed(stageResults))
				for _, w := range ws.spec.Warnings() {
					fmt.Fprintln(out, renderCheckLine("Product", checkWarn, w, colorize))
				}
			}

			if notifyTest {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderHeading("Notifications", colorize))
				switch err := notifications.NewService(cfg.Notifications).TestNotification(cmd.Context()); {
				case cfg.Notifications.NtfyTopic == "":
					fmt.Fprintln(out, renderCheckLine("ntfy", checkInfo, "no topic configured", colorize))
				case err != nil:
					fmt.Fprintln(out, renderCheckLine("ntfy", checkFail, err.Error(), colorize))
					failed++
				default:
					fmt.Fprintln(out, renderCheckLine("ntfy", checkOK, "test message sent", colorize))
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&productPath, "product", "p", "", "Also check stage readiness for this product specification")
	cmd.Flags().BoolVar(&notifyTest, "notify-test", false, "Send a test notification to the configured ntfy topic")
	return cmd
}

func printChecks(out io.Writer, results []preflight.Result, colorize bool) {
	for _, r := range results {
		kind := checkOK
		if !r.Passed {
			kind = checkFail
		}
		fmt.Fprintln(out, renderCheckLine(r.Name, kind, r.Detail, colorize))
	}
}
