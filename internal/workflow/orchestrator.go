package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"demoforge/internal/artifact"
	"demoforge/internal/logging"
	"demoforge/internal/stage"
	"demoforge/internal/tracing"
)

// Orchestrator sequences the pipeline stages over one artifact store.
type Orchestrator struct {
	store       *artifact.Store
	handlers    []stage.Handler
	logger      *slog.Logger
	product     string
	now         func() time.Time
	newID       func() string
	stageLevels map[string]slog.Level
	tracer      trace.Tracer
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithProduct tags runs and log lines with the product slug.
func WithProduct(slug string) Option {
	return func(o *Orchestrator) { o.product = slug }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithStageLevels sets a minimum log level per stage name.
func WithStageLevels(levels map[string]slog.Level) Option {
	return func(o *Orchestrator) { o.stageLevels = levels }
}

// WithTracer records a span per run and per executed stage.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// New validates the handler set and builds an orchestrator. Exactly one
// handler must be registered per stage, and a stage may only declare inputs
// produced by stages that run before it.
func New(store *artifact.Store, handlers []stage.Handler, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("workflow: artifact store is required")
	}
	ordered, err := orderHandlers(handlers)
	if err != nil {
		return nil, err
	}
	o := &Orchestrator{
		store:    store,
		handlers: ordered,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		now:      time.Now,
		newID:    uuid.NewString,
		tracer:   tracing.Noop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func orderHandlers(handlers []stage.Handler) ([]stage.Handler, error) {
	byName := make(map[stage.Name]stage.Handler, len(handlers))
	for _, h := range handlers {
		if h == nil {
			return nil, fmt.Errorf("workflow: nil stage handler")
		}
		name := h.Name()
		if !name.Valid() {
			return nil, fmt.Errorf("workflow: handler for unknown stage %q", name)
		}
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("workflow: duplicate handler for stage %s", name)
		}
		byName[name] = h
	}

	ordered := make([]stage.Handler, 0, len(stage.Order))
	for _, name := range stage.Order {
		h, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("workflow: no handler registered for stage %s", name)
		}
		if len(h.Outputs()) == 0 {
			return nil, fmt.Errorf("workflow: stage %s declares no outputs", name)
		}
		for _, sel := range h.Inputs() {
			if !sel.Stage.Before(name) {
				return nil, fmt.Errorf("workflow: stage %s declares input %s from a stage that does not run before it", name, sel.Key())
			}
		}
		ordered = append(ordered, h)
	}
	return ordered, nil
}

// Store returns the artifact store the orchestrator runs against.
func (o *Orchestrator) Store() *artifact.Store { return o.store }

// Health reports readiness of every stage that can check its collaborators.
func (o *Orchestrator) Health(ctx context.Context) []stage.Health {
	var out []stage.Health
	for _, h := range o.handlers {
		if checker, ok := h.(stage.HealthChecker); ok {
			out = append(out, checker.HealthCheck(ctx))
		}
	}
	return out
}

// Decision is the predicted resolution of one stage.
type Decision struct {
	Stage  stage.Name
	Skip   bool
	Reason string
	// Missing lists required inputs absent from the store right now.
	Missing []stage.Key
}

// Preview predicts how each stage would resolve against the current store
// without running anything. Stages that would run may refresh artifacts and
// make later cached outputs stale, so later decisions are a lower bound.
func (o *Orchestrator) Preview(opts Options) ([]Decision, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	run := newRun("", o.product, opts, o.now())
	out := make([]Decision, 0, len(o.handlers))
	for _, h := range o.handlers {
		d := Decision{Stage: h.Name()}
		if reason, ok := o.skipReason(run, h); ok {
			d.Skip, d.Reason = true, reason
		} else {
			for _, sel := range h.Inputs() {
				if !sel.Optional && !o.store.Exists(sel.Stage, sel.Kind) {
					d.Missing = append(d.Missing, sel.Key())
				}
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func validateOptions(opts Options) error {
	if opts.ResumeFrom != "" && !opts.ResumeFrom.Valid() {
		return fmt.Errorf("workflow: unknown resume stage %q", opts.ResumeFrom)
	}
	for _, name := range opts.Skip {
		if !name.Valid() {
			return fmt.Errorf("workflow: unknown skip stage %q", name)
		}
	}
	return nil
}
