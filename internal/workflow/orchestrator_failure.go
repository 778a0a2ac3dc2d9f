package workflow

import (
	"log/slog"

	"demoforge/internal/logging"
	"demoforge/internal/services"
	"demoforge/internal/stage"
)

// settleFailure decides what a failed stage means for the run. A missing
// screen recording suspends the run so the operator can supply one and resume;
// every other failure aborts it.
func (o *Orchestrator) settleFailure(logger *slog.Logger, run *Run, res stage.Result) {
	run.FailedStage = res.Stage
	run.Err = res.Err
	kind := res.ErrorKind()

	if res.Stage == stage.Recording && kind == services.KindMissingRecording {
		run.State = RunSuspended
		run.Awaiting = o.store.Path(stage.Recording, stage.KindVideoRaw)
		if ref, ok := o.store.Get(stage.Recording, stage.KindRecordingBrief); ok {
			run.BriefPath = ref.Path
		}
		logging.WarnWithContext(logger, "waiting for screen recording", "recording_awaited",
			logging.String(logging.FieldStage, string(res.Stage)),
			logging.String("awaiting", run.Awaiting),
			logging.String("brief_path", run.BriefPath),
			logging.String(logging.FieldErrorHint, "record the walkthrough, then rerun with --recording <file> --resume-from composite"),
			logging.String(logging.FieldImpact, "the final video cannot be composited yet"),
		)
		return
	}

	run.State = RunAborted
	logging.ErrorWithContext(logger, "stage failed", "stage_failure",
		logging.String(logging.FieldStage, string(res.Stage)),
		logging.String(logging.FieldErrorKind, string(kind)),
		logging.String(logging.FieldErrorHint, failureHint(kind)),
		logging.Duration("stage_duration", res.Duration),
		logging.Error(res.Err),
	)
	logger.Info("run aborted",
		logging.String(logging.FieldEventType, "run_aborted"),
		logging.String("failed_stage", string(res.Stage)),
		logging.Int("stages_run", len(run.Ran())),
	)
}

func failureHint(kind services.ErrorKind) string {
	switch kind {
	case services.KindMissingDependency:
		return "an earlier stage's artifact is missing; rerun without --resume-from or clear the skip flag"
	case services.KindMissingRecording:
		return "supply a screen recording with --recording"
	case services.KindGeneratorTransient:
		return "the generation service is unavailable or rate limited; retry later"
	case services.KindGeneratorFatal:
		return "check API keys, model names and the product spec"
	case services.KindComposition:
		return "inspect the input media with ffprobe and check the ffmpeg build"
	case services.KindCanceled:
		return "the run was interrupted; rerun to continue from cached artifacts"
	default:
		return "check logs for details"
	}
}
