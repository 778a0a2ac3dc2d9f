package script

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"demoforge/internal/artifact"
	"demoforge/internal/logging"
	"demoforge/internal/product"
	"demoforge/internal/services"
	"demoforge/internal/services/llm"
	"demoforge/internal/stage"
)

// Generator produces the narration body for a product.
type Generator interface {
	Generate(ctx context.Context, spec *product.Spec) (string, error)
}

// Completer is the chat-completion call LLMGenerator needs.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMGenerator builds the script prompt and asks a language model for it.
type LLMGenerator struct {
	client Completer
}

// NewLLMGenerator wraps a chat-completion client.
func NewLLMGenerator(client Completer) *LLMGenerator {
	return &LLMGenerator{client: client}
}

// Generate implements Generator.
func (g *LLMGenerator) Generate(ctx context.Context, spec *product.Spec) (string, error) {
	system, user := BuildPrompt(spec)
	reply, err := g.client.Complete(ctx, system, user)
	if err != nil {
		return "", err
	}
	return llm.StripCodeFence(reply), nil
}

// Ready reports whether the wrapped client is configured.
func (g *LLMGenerator) Ready() error {
	if r, ok := g.client.(stage.Readier); ok {
		return r.Ready()
	}
	return nil
}

// Stage is the script pipeline stage.
type Stage struct {
	spec      *product.Spec
	store     *artifact.Store
	generator Generator
	retry     stage.RetryPolicy
	logger    *slog.Logger
	now       func() time.Time
}

// NewStage builds the script stage.
func NewStage(spec *product.Spec, store *artifact.Store, generator Generator, retry stage.RetryPolicy) *Stage {
	return &Stage{
		spec:      spec,
		store:     store,
		generator: generator,
		retry:     retry,
		logger:    logging.NewNop(),
		now:       time.Now,
	}
}

func (s *Stage) Name() stage.Name { return stage.Script }

func (s *Stage) Inputs() []stage.Selector { return nil }

func (s *Stage) Outputs() []stage.Kind { return []stage.Kind{stage.KindScriptText} }

// SetLogger implements stage.LoggerAware.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// HealthCheck implements stage.HealthChecker.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	return stage.CheckReady(string(stage.Script), s.generator)
}

// Run generates, stores, and times the script.
func (s *Stage) Run(ctx context.Context, _ stage.Inputs) stage.Result {
	var body string
	attempts, err := s.retry.Logged(s.logger, "script").Do(ctx, func(ctx context.Context) error {
		out, err := s.generator.Generate(ctx, s.spec)
		if err != nil {
			return err
		}
		out = strings.TrimSpace(out)
		if CountWords(ExtractNarration(out)) == 0 {
			return services.Wrap(services.ErrGeneratorTransient, string(stage.Script), "generate", "model returned no narration", nil)
		}
		body = out
		return nil
	})
	if err != nil {
		return stage.Failed(fmt.Errorf("generate script (%d attempt(s)): %w", attempts, err))
	}

	doc := Document(s.spec, body, s.now())
	ref, err := s.store.Put(stage.Script, stage.KindScriptText, []byte(doc))
	if err != nil {
		return stage.Failed(fmt.Errorf("store script: %w", err))
	}

	timing := Analyze(doc, s.spec)
	s.logger.Info("script generated",
		logging.Args(
			logging.String(logging.FieldEventType, "script_generated"),
			logging.Int("attempts", attempts),
			logging.Int("scenes", len(timing.Scenes)),
			logging.Int("words", timing.TotalWords),
			logging.Duration("estimated_read", timing.Estimated),
			logging.Duration("planned", timing.Planned),
		)...,
	)
	return stage.Done(map[stage.Kind]string{stage.KindScriptText: ref.Path}, timing.Warnings()...)
}
