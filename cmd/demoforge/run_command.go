package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"demoforge/internal/config"
	"demoforge/internal/history"
	"demoforge/internal/logging"
	"demoforge/internal/notifications"
	"demoforge/internal/preflight"
	"demoforge/internal/report"
	"demoforge/internal/stage"
	"demoforge/internal/tracing"
	"demoforge/internal/workflow"
)

type runFlags struct {
	product    string
	recording  string
	background string
	resumeFrom string
	skips      map[stage.Name]*bool
	jsonOut    bool
	dryRun     bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	flags := runFlags{skips: make(map[stage.Name]*bool, len(stage.Order))}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo pipeline for a product",
		Long: `Run walks the script, voiceover, captions, recording and composite stages.

Stages whose outputs already exist and are newer than their inputs are reused.
Without a screen recording the run suspends after writing a recording brief;
supply the capture with --recording and resume with --resume-from composite.

Exit status is 0 when the final video was rendered, 3 when the run is waiting
for a recording, and 2 when a stage failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, ctx, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.product, "product", "p", "", "Product specification file (TOML)")
	cmd.Flags().StringVar(&flags.recording, "recording", "", "Screen recording to import before stages run")
	cmd.Flags().StringVar(&flags.background, "bgm", "", "Background music mixed under the narration")
	cmd.Flags().StringVar(&flags.resumeFrom, "resume-from", "", "Run this stage and everything after it")
	for _, name := range stage.Order {
		flags.skips[name] = cmd.Flags().Bool("skip-"+string(name), false, fmt.Sprintf("Skip the %s stage and reuse its existing artifact", name))
	}
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "Print the run report as JSON")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Show how each stage would resolve without running anything")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func runPipeline(cmd *cobra.Command, ctx *commandContext, flags runFlags) error {
	skips := make(map[stage.Name]bool, len(flags.skips))
	for name, set := range flags.skips {
		skips[name] = set != nil && *set
	}
	opts, err := parseStageOptions(flags.resumeFrom, skips, flags.recording)
	if err != nil {
		return err
	}

	ws, err := ctx.openProduct(flags.product)
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	tracer, flush := startTracing(cmd.Context(), logger, ws.cfg.Tracing)
	defer flush()
	p, err := buildPipeline(ws, flags.background, logger, workflow.WithTracer(tracer))
	if err != nil {
		return err
	}

	if flags.dryRun {
		decisions, err := p.orchestrator.Preview(opts)
		if err != nil {
			return err
		}
		if flags.jsonOut {
			return writeJSON(cmd, decisionsJSON(decisions))
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderDecisions(cmd, decisions))
		return nil
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	warnPreflight(runCtx, logger, ws, p)

	run, err := p.orchestrator.Run(runCtx, opts)
	if err != nil {
		return err
	}

	rep := report.Build(run)
	if _, err := report.Write(ws.store.Root(), rep); err != nil {
		logging.WarnWithContext(logger, "run report not written", "report_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check run root permissions"),
			logging.String(logging.FieldImpact, "status will show the previous report"),
		)
	}
	recordHistory(runCtx, logger, ws.cfg.HistoryPath(), rep)
	notifyOutcome(cmd.Context(), logger, ws.cfg, rep)

	if flags.jsonOut {
		if err := writeJSON(cmd, rep); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, renderStageTable(cmd, rep))
		fmt.Fprint(out, rep.Summary())
	}

	switch run.State {
	case workflow.RunSuspended:
		return &exitError{code: exitSuspended}
	case workflow.RunAborted:
		return &exitError{code: exitAborted}
	default:
		return nil
	}
}

// warnPreflight logs failed environment checks. Stages still run; the
// affected stage reports the real failure.
func warnPreflight(ctx context.Context, logger *slog.Logger, ws *productWorkspace, p *pipeline) {
	results := preflight.RunAll(ctx, ws.cfg, p.ffmpeg)
	results = append(results, preflight.FromHealth(p.orchestrator.Health(ctx))...)
	for _, failed := range preflight.Failed(results) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldErrorHint, "run `demoforge doctor` for the full environment report"),
			logging.String(logging.FieldImpact, "a stage depending on this may fail"),
		)
	}
	for _, warning := range ws.spec.Warnings() {
		logging.WarnWithContext(logger, "product specification warning", "product_warning",
			logging.String("warning", warning),
			logging.String(logging.FieldErrorHint, "adjust scene timings in the product specification"),
			logging.String(logging.FieldImpact, "the script may not fit the planned duration"),
		)
	}
}

// startTracing falls back to a no-op tracer when the exporter cannot be built.
// The returned flush waits briefly for buffered spans.
func startTracing(ctx context.Context, logger *slog.Logger, cfg config.Tracing) (trace.Tracer, func()) {
	tracer, shutdown, err := tracing.Setup(ctx, cfg)
	if err != nil {
		logging.WarnWithContext(logger, "tracing disabled", "tracing_setup_failed",
			logging.Error(err),
			logging.String("endpoint", cfg.Endpoint),
			logging.String(logging.FieldErrorHint, "check tracing.endpoint"),
			logging.String(logging.FieldImpact, "this run exports no spans"),
		)
		return tracing.Noop(), func() {}
	}
	return tracer, func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Debug("flush spans", logging.Error(err))
		}
	}
}

func recordHistory(ctx context.Context, logger *slog.Logger, path string, rep report.Report) {
	ledger, err := history.Open(path)
	if err == nil {
		defer ledger.Close()
		err = ledger.Record(ctx, rep)
	}
	if err != nil {
		logging.WarnWithContext(logger, "run not recorded in history", "history_record_failed",
			logging.Error(err),
			logging.String("history_path", path),
			logging.String(logging.FieldErrorHint, "delete the history database if its schema is outdated"),
			logging.String(logging.FieldImpact, "this run will not appear in `demoforge history`"),
		)
	}
}

func notifyOutcome(ctx context.Context, logger *slog.Logger, cfg *config.Config, rep report.Report) {
	if err := notifications.NotifyOutcome(ctx, notifications.NewService(cfg.Notifications), rep); err != nil {
		logging.WarnWithContext(logger, "run notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "no alert was delivered for this run"),
		)
	}
}

func renderStageTable(cmd *cobra.Command, rep report.Report) string {
	rows := make([][]string, 0, len(rep.Stages))
	for _, s := range rep.Stages {
		detail := s.Reason
		if s.ErrorKind != "" {
			detail = s.ErrorKind
		}
		if n := len(s.Warnings); n > 0 {
			detail = strings.TrimSpace(detail + " " + strconv.Itoa(n) + " warning(s)")
		}
		duration := ""
		if s.DurationMS > 0 {
			duration = (time.Duration(s.DurationMS) * time.Millisecond).Round(100 * time.Millisecond).String()
		}
		rows = append(rows, []string{s.Label, s.Status, duration, detail})
	}
	return renderTable(cmd.OutOrStdout(), []string{"Stage", "Status", "Time", "Detail"}, rows, 2)
}

type decisionJSON struct {
	Stage   string   `json:"stage"`
	Action  string   `json:"action"`
	Reason  string   `json:"reason,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

func decisionsJSON(decisions []workflow.Decision) []decisionJSON {
	out := make([]decisionJSON, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, decisionJSON{
			Stage:   string(d.Stage),
			Action:  decisionAction(d),
			Reason:  d.Reason,
			Missing: keyStrings(d.Missing),
		})
	}
	return out
}

func renderDecisions(cmd *cobra.Command, decisions []workflow.Decision) string {
	rows := make([][]string, 0, len(decisions))
	for _, d := range decisions {
		detail := d.Reason
		if len(d.Missing) > 0 {
			detail = "needs " + strings.Join(keyStrings(d.Missing), ", ")
		}
		rows = append(rows, []string{report.Label(d.Stage), decisionAction(d), detail})
	}
	return renderTable(cmd.OutOrStdout(), []string{"Stage", "Action", "Detail"}, rows)
}

func decisionAction(d workflow.Decision) string {
	switch {
	case d.Skip:
		return "skip"
	case len(d.Missing) > 0:
		return "blocked"
	default:
		return "run"
	}
}

func keyStrings(keys []stage.Key) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.String())
	}
	return out
}
