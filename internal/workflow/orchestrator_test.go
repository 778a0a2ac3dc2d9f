package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"demoforge/internal/artifact"
	"demoforge/internal/logging"
	"demoforge/internal/services"
	"demoforge/internal/stage"
	"demoforge/internal/testsupport"
	"demoforge/internal/workflow"
)

type fakeStage struct {
	name    stage.Name
	inputs  []stage.Selector
	outputs []stage.Kind
	store   *artifact.Store
	run     func(ctx context.Context, in stage.Inputs) stage.Result

	calls int
	seen  stage.Inputs
}

func (f *fakeStage) Name() stage.Name         { return f.name }
func (f *fakeStage) Inputs() []stage.Selector { return f.inputs }
func (f *fakeStage) Outputs() []stage.Kind    { return f.outputs }

func (f *fakeStage) Run(ctx context.Context, in stage.Inputs) stage.Result {
	f.calls++
	f.seen = in
	if f.run != nil {
		return f.run(ctx, in)
	}
	return f.produce()
}

func (f *fakeStage) produce() stage.Result {
	outputs := make(map[stage.Kind]string, len(f.outputs))
	for _, kind := range f.outputs {
		ref, err := f.store.Put(f.name, kind, []byte(string(f.name)+" "+string(kind)))
		if err != nil {
			return stage.Failed(err)
		}
		outputs[kind] = ref.Path
	}
	return stage.Done(outputs)
}

type pipeline struct {
	store  *artifact.Store
	stages map[stage.Name]*fakeStage
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	store := testsupport.MustOpenStore(t)
	p := &pipeline{store: store, stages: map[stage.Name]*fakeStage{
		stage.Script: {name: stage.Script, outputs: []stage.Kind{stage.KindScriptText}},
		stage.Voiceover: {
			name:    stage.Voiceover,
			inputs:  []stage.Selector{stage.Require(stage.Script, stage.KindScriptText)},
			outputs: []stage.Kind{stage.KindAudio},
		},
		stage.Captions: {
			name:    stage.Captions,
			inputs:  []stage.Selector{stage.Require(stage.Voiceover, stage.KindAudio)},
			outputs: []stage.Kind{stage.KindCaptionSRT, stage.KindCaptionStyled},
		},
		stage.Recording: {
			name:    stage.Recording,
			inputs:  []stage.Selector{stage.Optional(stage.Script, stage.KindScriptText)},
			outputs: []stage.Kind{stage.KindVideoRaw},
		},
		stage.Composite: {
			name: stage.Composite,
			inputs: []stage.Selector{
				stage.Require(stage.Voiceover, stage.KindAudio),
				stage.Require(stage.Captions, stage.KindCaptionSRT),
				stage.Optional(stage.Captions, stage.KindCaptionStyled),
				stage.Require(stage.Recording, stage.KindVideoRaw),
			},
			outputs: []stage.Kind{stage.KindVideoFinal},
		},
	}}
	for _, s := range p.stages {
		s.store = store
	}
	return p
}

func (p *pipeline) handlers() []stage.Handler {
	out := make([]stage.Handler, 0, len(stage.Order))
	for _, name := range stage.Order {
		out = append(out, p.stages[name])
	}
	return out
}

func (p *pipeline) orchestrator(t *testing.T) *workflow.Orchestrator {
	t.Helper()
	o, err := workflow.New(p.store, p.handlers(), logging.NewNop(), workflow.WithProduct("launchpad"))
	if err != nil {
		t.Fatalf("workflow.New: %v", err)
	}
	return o
}

func (p *pipeline) run(t *testing.T, opts workflow.Options) *workflow.Run {
	t.Helper()
	run, err := p.orchestrator(t).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return run
}

func (p *pipeline) calls() map[stage.Name]int {
	out := make(map[stage.Name]int, len(p.stages))
	for name, s := range p.stages {
		out[name] = s.calls
	}
	return out
}

func (p *pipeline) resetCalls() {
	for _, s := range p.stages {
		s.calls = 0
	}
}

// awaitRecording makes the recording fake behave like the real stage: it
// passes an existing recording through and otherwise writes a brief and fails.
func (p *pipeline) awaitRecording() {
	rec := p.stages[stage.Recording]
	rec.run = func(context.Context, stage.Inputs) stage.Result {
		if ref, ok := p.store.Get(stage.Recording, stage.KindVideoRaw); ok {
			return stage.Done(map[stage.Kind]string{stage.KindVideoRaw: ref.Path})
		}
		if _, err := p.store.Put(stage.Recording, stage.KindRecordingBrief, []byte("# Recording brief\n")); err != nil {
			return stage.Failed(err)
		}
		return stage.Failed(services.Wrap(services.ErrMissingRecording, "recording", "await recording", "no screen recording has been supplied", nil))
	}
}

func (p *pipeline) setModTime(t *testing.T, name stage.Name, kind stage.Kind, when time.Time) {
	t.Helper()
	if err := os.Chtimes(p.store.Path(name, kind), when, when); err != nil {
		t.Fatalf("chtimes %s/%s: %v", name, kind, err)
	}
}

func TestRunCompletesEveryStageInOrder(t *testing.T) {
	p := newPipeline(t)
	var order []stage.Name
	for _, name := range stage.Order {
		s := p.stages[name]
		s.run = func(context.Context, stage.Inputs) stage.Result {
			order = append(order, s.name)
			return s.produce()
		}
	}

	run := p.run(t, workflow.Options{})

	if run.State != workflow.RunCompleted {
		t.Fatalf("state = %s, want completed (err %v)", run.State, run.Err)
	}
	if len(order) != len(stage.Order) {
		t.Fatalf("ran %v, want %v", order, stage.Order)
	}
	for i, name := range stage.Order {
		if order[i] != name {
			t.Fatalf("ran %v, want %v", order, stage.Order)
		}
		if got := run.StageState(name); got != workflow.StageDone {
			t.Fatalf("%s state = %s, want done", name, got)
		}
	}
	if run.FinalPath != p.store.Path(stage.Composite, stage.KindVideoFinal) {
		t.Fatalf("final path = %q", run.FinalPath)
	}
	if run.Product != "launchpad" || run.ID == "" {
		t.Fatalf("run identity not set: %+v", run)
	}
	if path, ok := p.stages[stage.Composite].seen.Path(stage.Recording, stage.KindVideoRaw); !ok || path != p.store.Path(stage.Recording, stage.KindVideoRaw) {
		t.Fatalf("composite saw recording %q (%v)", path, ok)
	}
}

func TestRerunSkipsCachedStages(t *testing.T) {
	p := newPipeline(t)
	p.run(t, workflow.Options{})
	p.resetCalls()

	run := p.run(t, workflow.Options{})

	if run.State != workflow.RunCompleted {
		t.Fatalf("state = %s, want completed", run.State)
	}
	for name, n := range p.calls() {
		if n != 0 {
			t.Fatalf("%s invoked %d times on a fully cached run", name, n)
		}
	}
	for _, res := range run.Results {
		if res.Status != stage.StatusSkipped || res.Reason != workflow.ReasonCached {
			t.Fatalf("%s resolved %s (%q), want cached skip", res.Stage, res.Status, res.Reason)
		}
	}
	if run.FinalPath == "" {
		t.Fatal("cached final video should still be reported")
	}
}

func TestMissingDependencyNeverInvokesStage(t *testing.T) {
	p := newPipeline(t)

	run := p.run(t, workflow.Options{ResumeFrom: stage.Voiceover})

	if run.State != workflow.RunAborted {
		t.Fatalf("state = %s, want aborted", run.State)
	}
	if p.stages[stage.Voiceover].calls != 0 {
		t.Fatal("voiceover ran without its script")
	}
	if run.FailedStage != stage.Voiceover {
		t.Fatalf("failed stage = %s", run.FailedStage)
	}
	if !errors.Is(run.Err, services.ErrMissingDependency) {
		t.Fatalf("err = %v, want missing dependency", run.Err)
	}
	var depErr *stage.DependencyError
	if !errors.As(run.Err, &depErr) || depErr.Path != p.store.Path(stage.Script, stage.KindScriptText) {
		t.Fatalf("dependency error should name the expected path: %v", run.Err)
	}
	res, _ := run.Result(stage.Voiceover)
	if res.ErrorKind() != services.KindMissingDependency {
		t.Fatalf("error kind = %s", res.ErrorKind())
	}
	for _, name := range []stage.Name{stage.Captions, stage.Recording, stage.Composite} {
		if p.stages[name].calls != 0 || run.StageState(name) != workflow.StagePending {
			t.Fatalf("%s should not resolve after an abort", name)
		}
	}
}

func TestSkipFlagReusesExistingArtifact(t *testing.T) {
	p := newPipeline(t)
	scriptPath := testsupport.PutArtifact(t, p.store, stage.Script, stage.KindScriptText, "hand-written script")

	run := p.run(t, workflow.Options{Skip: []stage.Name{stage.Script}})

	if run.State != workflow.RunCompleted {
		t.Fatalf("state = %s (err %v)", run.State, run.Err)
	}
	if p.stages[stage.Script].calls != 0 {
		t.Fatal("skipped stage was invoked")
	}
	res, _ := run.Result(stage.Script)
	if res.Reason != workflow.ReasonSkipFlag || res.Outputs[stage.KindScriptText] != scriptPath {
		t.Fatalf("script result = %+v", res)
	}
	data, err := os.ReadFile(scriptPath)
	if err != nil || string(data) != "hand-written script" {
		t.Fatalf("skipped artifact was modified: %q %v", data, err)
	}
	if path, _ := p.stages[stage.Voiceover].seen.Path(stage.Script, stage.KindScriptText); path != scriptPath {
		t.Fatalf("voiceover read %q, want %q", path, scriptPath)
	}
}

func TestSkipFlagWithoutArtifactFailsConsumer(t *testing.T) {
	p := newPipeline(t)

	run := p.run(t, workflow.Options{Skip: []stage.Name{stage.Script}})

	if run.State != workflow.RunAborted || run.FailedStage != stage.Voiceover {
		t.Fatalf("state = %s failed = %s", run.State, run.FailedStage)
	}
	if p.stages[stage.Script].calls != 0 || p.stages[stage.Voiceover].calls != 0 {
		t.Fatal("no stage should have been invoked")
	}
}

func TestSkippedStageWithDeletedArtifactFailsConsumer(t *testing.T) {
	p := newPipeline(t)
	p.run(t, workflow.Options{})
	p.resetCalls()
	if err := os.Remove(p.store.Path(stage.Voiceover, stage.KindAudio)); err != nil {
		t.Fatalf("remove audio: %v", err)
	}

	run := p.run(t, workflow.Options{Skip: []stage.Name{stage.Voiceover}})

	if run.State != workflow.RunAborted || run.FailedStage != stage.Captions {
		t.Fatalf("state = %s failed = %s, want aborted at captions", run.State, run.FailedStage)
	}
	if !errors.Is(run.Err, services.ErrMissingDependency) {
		t.Fatalf("err = %v, want missing dependency", run.Err)
	}
	var depErr *stage.DependencyError
	if !errors.As(run.Err, &depErr) || depErr.Path != p.store.Path(stage.Voiceover, stage.KindAudio) {
		t.Fatalf("dependency error should name the deleted audio: %v", run.Err)
	}
	for name, n := range p.calls() {
		if n != 0 {
			t.Fatalf("%s invoked %d times", name, n)
		}
	}
	if run.FinalPath != "" || run.StageState(stage.Composite) != workflow.StagePending {
		t.Fatalf("composite must not resolve from stale outputs: final=%q", run.FinalPath)
	}
}

func TestResumeFromRerunsLaterStages(t *testing.T) {
	p := newPipeline(t)
	p.run(t, workflow.Options{})
	p.resetCalls()

	run := p.run(t, workflow.Options{ResumeFrom: stage.Captions})

	if run.State != workflow.RunCompleted {
		t.Fatalf("state = %s (err %v)", run.State, run.Err)
	}
	want := map[stage.Name]int{stage.Script: 0, stage.Voiceover: 0, stage.Captions: 1, stage.Recording: 1, stage.Composite: 1}
	for name, n := range p.calls() {
		if n != want[name] {
			t.Fatalf("%s invoked %d times, want %d", name, n, want[name])
		}
	}
	res, _ := run.Result(stage.Voiceover)
	if res.Reason != workflow.ReasonBeforeStart {
		t.Fatalf("voiceover reason = %q", res.Reason)
	}
}

func TestResumeIsIdempotent(t *testing.T) {
	p := newPipeline(t)
	p.run(t, workflow.Options{})
	first, err := os.ReadFile(p.store.Path(stage.Composite, stage.KindVideoFinal))
	if err != nil {
		t.Fatalf("read final: %v", err)
	}

	for i := 0; i < 2; i++ {
		run := p.run(t, workflow.Options{ResumeFrom: stage.Composite})
		if run.State != workflow.RunCompleted {
			t.Fatalf("resume %d: state = %s", i, run.State)
		}
	}
	again, err := os.ReadFile(p.store.Path(stage.Composite, stage.KindVideoFinal))
	if err != nil {
		t.Fatalf("read final: %v", err)
	}
	if string(first) != string(again) {
		t.Fatalf("final artifact changed across resumes: %q vs %q", first, again)
	}
}

func TestMissingRecordingSuspendsThenResumes(t *testing.T) {
	p := newPipeline(t)
	p.awaitRecording()

	run := p.run(t, workflow.Options{})

	if run.State != workflow.RunSuspended {
		t.Fatalf("state = %s, want suspended (err %v)", run.State, run.Err)
	}
	if run.Awaiting != p.store.Path(stage.Recording, stage.KindVideoRaw) {
		t.Fatalf("awaiting = %q", run.Awaiting)
	}
	if run.BriefPath != p.store.Path(stage.Recording, stage.KindRecordingBrief) {
		t.Fatalf("brief = %q", run.BriefPath)
	}
	if p.stages[stage.Composite].calls != 0 {
		t.Fatal("composite ran without a recording")
	}
	if !p.store.Exists(stage.Captions, stage.KindCaptionSRT) {
		t.Fatal("stages before recording should have produced their artifacts")
	}

	capture := filepath.Join(t.TempDir(), "capture.mov")
	testsupport.WriteFile(t, capture, 4096)
	p.resetCalls()

	resumed := p.run(t, workflow.Options{Recording: capture, ResumeFrom: stage.Composite})

	if resumed.State != workflow.RunCompleted {
		t.Fatalf("resumed state = %s (err %v)", resumed.State, resumed.Err)
	}
	if resumed.ImportedRecording != p.store.Path(stage.Recording, stage.KindVideoRaw) {
		t.Fatalf("imported recording = %q", resumed.ImportedRecording)
	}
	want := map[stage.Name]int{stage.Composite: 1}
	for name, n := range p.calls() {
		if n != want[name] {
			t.Fatalf("%s invoked %d times on resume, want %d", name, n, want[name])
		}
	}
}

func TestStaleOutputsAreRegenerated(t *testing.T) {
	p := newPipeline(t)
	p.run(t, workflow.Options{})
	p.resetCalls()

	old := time.Now().Add(-2 * time.Hour)
	for _, key := range artifact.Catalog() {
		if p.store.Exists(key.Stage, key.Kind) {
			p.setModTime(t, key.Stage, key.Kind, old)
		}
	}
	// An edited script is newer than everything derived from it.
	p.setModTime(t, stage.Script, stage.KindScriptText, old.Add(time.Hour))

	run := p.run(t, workflow.Options{})

	if run.State != workflow.RunCompleted {
		t.Fatalf("state = %s (err %v)", run.State, run.Err)
	}
	if p.stages[stage.Script].calls != 0 {
		t.Fatal("script has no inputs and should stay cached")
	}
	for _, name := range []stage.Name{stage.Voiceover, stage.Captions, stage.Recording, stage.Composite} {
		if p.stages[name].calls != 1 {
			t.Fatalf("%s invoked %d times, want 1", name, p.stages[name].calls)
		}
	}
}

func TestUnwrittenOutputFailsStage(t *testing.T) {
	p := newPipeline(t)
	p.stages[stage.Script].run = func(context.Context, stage.Inputs) stage.Result {
		return stage.Done(nil)
	}

	run := p.run(t, workflow.Options{})

	if run.State != workflow.RunAborted || run.FailedStage != stage.Script {
		t.Fatalf("state = %s failed = %s", run.State, run.FailedStage)
	}
	if !strings.Contains(run.Err.Error(), "missing from the run root") {
		t.Fatalf("err = %v", run.Err)
	}
}

func TestPanicBecomesFailedResult(t *testing.T) {
	p := newPipeline(t)
	p.stages[stage.Voiceover].run = func(context.Context, stage.Inputs) stage.Result {
		panic("synthesizer exploded")
	}

	run := p.run(t, workflow.Options{})

	if run.State != workflow.RunAborted || run.FailedStage != stage.Voiceover {
		t.Fatalf("state = %s failed = %s", run.State, run.FailedStage)
	}
	if !strings.Contains(run.Err.Error(), "synthesizer exploded") {
		t.Fatalf("err = %v", run.Err)
	}
	res, _ := run.Result(stage.Voiceover)
	if res.ErrorKind() != services.KindInternal {
		t.Fatalf("error kind = %s", res.ErrorKind())
	}
}

func TestGeneratorFailureAborts(t *testing.T) {
	p := newPipeline(t)
	p.stages[stage.Script].run = func(context.Context, stage.Inputs) stage.Result {
		return stage.Failed(services.Wrap(services.ErrGeneratorFatal, "script", "generate", "401 unauthorized", nil))
	}

	run := p.run(t, workflow.Options{})

	if run.State != workflow.RunAborted {
		t.Fatalf("state = %s", run.State)
	}
	res, _ := run.Result(stage.Script)
	if res.ErrorKind() != services.KindGeneratorFatal {
		t.Fatalf("error kind = %s", res.ErrorKind())
	}
	if p.stages[stage.Voiceover].calls != 0 {
		t.Fatal("voiceover ran after script failed")
	}
}

func TestCanceledContextAborts(t *testing.T) {
	p := newPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := p.orchestrator(t).Run(ctx, workflow.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.State != workflow.RunAborted {
		t.Fatalf("state = %s", run.State)
	}
	res, _ := run.Result(stage.Script)
	if res.ErrorKind() != services.KindCanceled {
		t.Fatalf("error kind = %s", res.ErrorKind())
	}
	if p.stages[stage.Script].calls != 0 {
		t.Fatal("no stage should run on a canceled context")
	}
}

func TestRunRefusesLockedRoot(t *testing.T) {
	p := newPipeline(t)
	other, err := artifact.Open(p.store.Root())
	if err != nil {
		t.Fatalf("artifact.Open: %v", err)
	}
	if err := other.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer other.Unlock()

	if _, err := p.orchestrator(t).Run(context.Background(), workflow.Options{}); !errors.Is(err, artifact.ErrLocked) {
		t.Fatalf("Run err = %v, want ErrLocked", err)
	}
}

func TestRunRejectsUnknownStageOptions(t *testing.T) {
	p := newPipeline(t)
	o := p.orchestrator(t)
	if _, err := o.Run(context.Background(), workflow.Options{ResumeFrom: "upload"}); err == nil {
		t.Fatal("expected error for unknown resume stage")
	}
	if _, err := o.Run(context.Background(), workflow.Options{Skip: []stage.Name{"render"}}); err == nil {
		t.Fatal("expected error for unknown skip stage")
	}
}

func TestNewValidatesHandlers(t *testing.T) {
	p := newPipeline(t)
	all := p.handlers()

	cases := map[string][]stage.Handler{
		"missing stage": all[:4],
		"duplicate":     append(append([]stage.Handler{}, all...), p.stages[stage.Script]),
		"nil handler":   append(append([]stage.Handler{}, all[:4]...), nil),
	}
	for name, handlers := range cases {
		if _, err := workflow.New(p.store, handlers, logging.NewNop()); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	p.stages[stage.Voiceover].inputs = append(p.stages[stage.Voiceover].inputs, stage.Require(stage.Composite, stage.KindVideoFinal))
	if _, err := workflow.New(p.store, p.handlers(), logging.NewNop()); err == nil {
		t.Fatal("expected error for an input from a later stage")
	}
	if _, err := workflow.New(nil, all, logging.NewNop()); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestPreviewPredictsResolution(t *testing.T) {
	p := newPipeline(t)
	testsupport.PutArtifact(t, p.store, stage.Script, stage.KindScriptText, "script")

	decisions, err := p.orchestrator(t).Preview(workflow.Options{Skip: []stage.Name{stage.Recording}})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(decisions) != len(stage.Order) {
		t.Fatalf("decisions = %d", len(decisions))
	}
	byStage := make(map[stage.Name]workflow.Decision, len(decisions))
	for _, d := range decisions {
		byStage[d.Stage] = d
	}
	if d := byStage[stage.Script]; !d.Skip || d.Reason != workflow.ReasonCached {
		t.Fatalf("script decision = %+v", d)
	}
	if d := byStage[stage.Voiceover]; d.Skip || len(d.Missing) != 0 {
		t.Fatalf("voiceover decision = %+v", d)
	}
	if d := byStage[stage.Recording]; !d.Skip || d.Reason != workflow.ReasonSkipFlag {
		t.Fatalf("recording decision = %+v", d)
	}
	if d := byStage[stage.Composite]; d.Skip || len(d.Missing) != 3 {
		t.Fatalf("composite decision = %+v", d)
	}
	for name, n := range p.calls() {
		if n != 0 {
			t.Fatalf("preview invoked %s", name)
		}
	}
}

func TestHealthCollectsCheckers(t *testing.T) {
	p := newPipeline(t)
	if got := p.orchestrator(t).Health(context.Background()); len(got) != 0 {
		t.Fatalf("fakes do not implement HealthChecker, got %v", got)
	}
}

func TestRunRecordsSpans(t *testing.T) {
	p := newPipeline(t)
	p.run(t, workflow.Options{})
	p.stages[stage.Composite].run = func(context.Context, stage.Inputs) stage.Result {
		return stage.Failed(services.Wrap(services.ErrComposition, "composite", "render", "ffmpeg exited 1", nil))
	}

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	o, err := workflow.New(p.store, p.handlers(), logging.NewNop(),
		workflow.WithProduct("launchpad"),
		workflow.WithTracer(provider.Tracer("test")),
	)
	if err != nil {
		t.Fatalf("workflow.New: %v", err)
	}
	run, err := o.Run(context.Background(), workflow.Options{ResumeFrom: stage.Composite})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.State != workflow.RunAborted {
		t.Fatalf("state = %s", run.State)
	}

	spans := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range recorder.Ended() {
		spans[s.Name()] = s
	}
	if len(spans) != 2 {
		t.Fatalf("spans = %v, want pipeline.run and stage.composite", spans)
	}
	root, ok := spans["pipeline.run"]
	if !ok || root.Status().Code != codes.Error {
		t.Fatalf("run span missing or not failed: %+v", root)
	}
	if got := len(root.Events()); got < 4 {
		t.Fatalf("run span has %d events, want a skip event per earlier stage", got)
	}
	composite, ok := spans["stage.composite"]
	if !ok || composite.Parent().SpanID() != root.SpanContext().SpanID() {
		t.Fatal("stage span is not a child of the run span")
	}
	if composite.Status().Description != run.Err.Error() {
		t.Fatalf("stage span status = %+v", composite.Status())
	}
}
