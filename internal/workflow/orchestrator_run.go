package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"demoforge/internal/logging"
	"demoforge/internal/services"
	"demoforge/internal/stage"
	"demoforge/internal/tracing"
)

// Run executes one pipeline invocation. The returned error covers setup
// problems only (bad options, a locked run root, an unreadable recording);
// stage outcomes are reported through Run.State and Run.Results.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Run, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	if err := o.store.Lock(); err != nil {
		return nil, err
	}
	defer func() {
		if err := o.store.Unlock(); err != nil {
			o.logger.Debug("release run root lock", logging.Error(err))
		}
	}()

	run := newRun(o.newID(), o.product, opts, o.now())
	ctx = services.WithRunID(ctx, run.ID)
	if o.product != "" {
		ctx = services.WithProduct(ctx, o.product)
	}
	logger := logging.WithContext(ctx, o.logger)

	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String(tracing.RunIDKey, run.ID),
		attribute.String(tracing.ProductKey, o.product),
		attribute.String(tracing.ResumeFromKey, string(run.ResumeFrom)),
	))
	defer span.End()

	if removed, err := o.store.SweepTemp(); err != nil {
		logging.WarnWithContext(logger, "could not sweep interrupted writes", "temp_sweep_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check run root permissions"),
			logging.String(logging.FieldImpact, "stale temp files remain in the run root"),
		)
	} else if removed > 0 {
		logger.Info("removed interrupted writes",
			logging.String(logging.FieldEventType, "temp_swept"),
			logging.Int("files", removed),
		)
	}

	if opts.Recording != "" {
		ref, err := o.store.Import(stage.Recording, stage.KindVideoRaw, opts.Recording)
		if err != nil {
			tracing.SetError(span, err)
			return nil, fmt.Errorf("import recording: %w", err)
		}
		run.ImportedRecording = ref.Path
		logger.Info("recording imported",
			logging.String(logging.FieldEventType, "recording_imported"),
			logging.String("source", opts.Recording),
			logging.String("recording_path", ref.Path),
			logging.Int64("size_bytes", ref.Size),
		)
	}

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("resume_from", string(run.ResumeFrom)),
		logging.Any("skip", run.Skip),
	)

	for _, h := range o.handlers {
		name := h.Name()
		if err := ctx.Err(); err != nil {
			res := stage.Failed(err)
			res.Stage = name
			run.record(res)
			o.settleFailure(logger, run, res)
			break
		}

		if reason, ok := o.skipReason(run, h); ok {
			res := stage.Skipped(reason, o.existingOutputs(h))
			res.Stage = name
			run.record(res)
			span.AddEvent("stage skipped", trace.WithAttributes(
				attribute.String(tracing.StageKey, string(name)),
				attribute.String(tracing.ReasonKey, reason),
			))
			logger.Info("stage skipped",
				logging.String(logging.FieldEventType, "stage_skipped"),
				logging.String(logging.FieldStage, string(name)),
				logging.String("reason", reason),
			)
			continue
		}

		res := o.execute(ctx, run, h)
		run.record(res)
		if res.Status == stage.StatusFailed {
			o.settleFailure(logger, run, res)
			break
		}
	}

	if run.State == RunRunning {
		run.State = RunCompleted
		if res, ok := run.Result(stage.Composite); ok {
			run.FinalPath = res.Outputs[stage.KindVideoFinal]
		}
	}
	run.FinishedAt = o.now()
	span.SetAttributes(attribute.String(tracing.StateKey, string(run.State)))
	if run.State == RunAborted {
		tracing.SetError(span, run.Err, attribute.String(tracing.ErrorKindKey, string(services.Classify(run.Err))))
	}
	o.logOutcome(logger, run)
	return run, nil
}

func (o *Orchestrator) logOutcome(logger *slog.Logger, run *Run) {
	switch run.State {
	case RunCompleted:
		logger.Info("run completed",
			logging.String(logging.FieldEventType, "run_completed"),
			logging.String("final_path", run.FinalPath),
			logging.Duration("run_duration", run.Duration()),
			logging.Int("stages_run", len(run.Ran())),
			logging.Int("stages_skipped", len(run.Skipped())),
		)
	case RunSuspended:
		logger.Info("run suspended",
			logging.String(logging.FieldEventType, "run_suspended"),
			logging.String("awaiting", run.Awaiting),
			logging.String("brief_path", run.BriefPath),
			logging.Duration("run_duration", run.Duration()),
		)
	}
}
