package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"demoforge/internal/artifact"
	"demoforge/internal/logging"
	"demoforge/internal/services"
	"demoforge/internal/stage"
	"demoforge/internal/tracing"
)

// skipReason applies the resolution rule. A skip flag always wins. With a
// resume point, every earlier stage is skipped; a missing artifact surfaces as
// a dependency failure at the first stage that needs it. Without a resume
// point, a stage is skipped when every required input and every output exists
// and no output is older than an existing input.
func (o *Orchestrator) skipReason(run *Run, h stage.Handler) (string, bool) {
	name := h.Name()
	if run.skips(name) {
		return ReasonSkipFlag, true
	}
	if run.ResumeFrom != "" {
		if name.Before(run.ResumeFrom) {
			return ReasonBeforeStart, true
		}
		return "", false
	}
	if o.cached(h) {
		return ReasonCached, true
	}
	return "", false
}

func (o *Orchestrator) cached(h stage.Handler) bool {
	var deps []artifact.Ref
	for _, sel := range h.Inputs() {
		ref, ok := o.store.Get(sel.Stage, sel.Kind)
		switch {
		case ok:
			deps = append(deps, ref)
		case !sel.Optional:
			return false
		}
	}
	for _, kind := range h.Outputs() {
		ref, ok := o.store.Get(h.Name(), kind)
		if !ok || !o.store.Fresh(ref, deps...) {
			return false
		}
	}
	return true
}

func (o *Orchestrator) existingOutputs(h stage.Handler) map[stage.Kind]string {
	out := make(map[stage.Kind]string)
	for _, kind := range h.Outputs() {
		if ref, ok := o.store.Get(h.Name(), kind); ok {
			out[kind] = ref.Path
		}
	}
	return out
}

// resolveInputs looks every declared input up in the store. The first missing
// required input is returned as a DependencyError.
func (o *Orchestrator) resolveInputs(h stage.Handler) (stage.Inputs, error) {
	paths := make(map[stage.Key]string)
	for _, sel := range h.Inputs() {
		ref, ok := o.store.Get(sel.Stage, sel.Kind)
		if !ok {
			if sel.Optional {
				continue
			}
			return stage.Inputs{}, &stage.DependencyError{
				Stage: h.Name(),
				Input: sel.Key(),
				Path:  o.store.Path(sel.Stage, sel.Kind),
			}
		}
		paths[sel.Key()] = ref.Path
	}
	return stage.NewInputs(paths), nil
}

func (o *Orchestrator) stageLogger(ctx context.Context, name stage.Name) *slog.Logger {
	logger := logging.WithContext(ctx, o.logger)
	if level, ok := o.stageLevels[string(name)]; ok {
		logger = logging.WithLevelOverride(logger, level)
	}
	return logger
}

// execute runs one stage inside its own span.
func (o *Orchestrator) execute(ctx context.Context, run *Run, h stage.Handler) stage.Result {
	ctx, span := o.tracer.Start(ctx, "stage."+string(h.Name()),
		trace.WithAttributes(attribute.String(tracing.StageKey, string(h.Name()))))
	defer span.End()

	res := o.runStage(ctx, run, h)
	span.SetAttributes(attribute.String(tracing.StatusKey, string(res.Status)))
	if res.Err != nil {
		tracing.SetError(span, res.Err, attribute.String(tracing.ErrorKindKey, string(res.ErrorKind())))
	}
	return res
}

func (o *Orchestrator) runStage(ctx context.Context, run *Run, h stage.Handler) stage.Result {
	name := h.Name()
	stageCtx := services.WithStage(ctx, string(name))
	logger := o.stageLogger(stageCtx, name)
	if aware, ok := h.(stage.LoggerAware); ok {
		aware.SetLogger(logger)
	}

	run.states[name] = StageRunning
	start := o.now()

	in, err := o.resolveInputs(h)
	if err != nil {
		res := stage.Failed(err)
		res.Stage = name
		res.Duration = o.now().Sub(start)
		return res
	}

	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Int("inputs", in.Len()),
	)

	res := invoke(stageCtx, h, in)
	res.Stage = name
	res.Duration = o.now().Sub(start)
	if res.Status == "" {
		if res.Err != nil {
			res.Status = stage.StatusFailed
		} else {
			res.Status = stage.StatusDone
		}
	}
	if res.Status == stage.StatusDone {
		res = o.verifyOutputs(h, res)
	}
	if res.Status != stage.StatusDone {
		return res
	}

	for _, warning := range res.Warnings {
		logging.WarnWithContext(logger, "stage warning", "stage_warning",
			logging.String("warning", warning),
			logging.String(logging.FieldErrorHint, "review the artifact before publishing"),
			logging.String(logging.FieldImpact, "output was produced but may need attention"),
		)
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", res.Duration),
		logging.Int("outputs", len(res.Outputs)),
		logging.Int("warnings", len(res.Warnings)),
	)
	return res
}

// invoke runs the handler, converting a panic into a failed result.
func invoke(ctx context.Context, h stage.Handler, in stage.Inputs) (res stage.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = stage.Failed(fmt.Errorf("stage %s panicked: %v\n%s", h.Name(), r, debug.Stack()))
		}
	}()
	return h.Run(ctx, in)
}

// verifyOutputs confirms every declared output is in the store and fills in
// the reported paths from it.
func (o *Orchestrator) verifyOutputs(h stage.Handler, res stage.Result) stage.Result {
	outputs := make(map[stage.Kind]string, len(res.Outputs))
	for kind, path := range res.Outputs {
		outputs[kind] = path
	}
	for _, kind := range h.Outputs() {
		ref, ok := o.store.Get(h.Name(), kind)
		if !ok {
			failed := stage.Failed(fmt.Errorf("stage %s reported success but %s/%s is missing from the run root", h.Name(), h.Name(), kind))
			failed.Stage = res.Stage
			failed.Duration = res.Duration
			failed.Warnings = res.Warnings
			return failed
		}
		outputs[kind] = ref.Path
	}
	res.Outputs = outputs
	return res
}
