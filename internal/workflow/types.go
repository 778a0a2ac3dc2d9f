package workflow

import (
	"time"

	"demoforge/internal/stage"
)

// RunState is the terminal or current state of a pipeline invocation.
type RunState string

const (
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunSuspended RunState = "suspended"
	RunAborted   RunState = "aborted"
)

// StageState tracks one stage across a run.
type StageState string

const (
	StagePending StageState = "pending"
	StageSkipped StageState = "skipped"
	StageRunning StageState = "running"
	StageDone    StageState = "done"
	StageFailed  StageState = "failed"
)

// Skip reasons recorded on skipped results.
const (
	ReasonSkipFlag    = "skip flag"
	ReasonBeforeStart = "before resume point"
	ReasonCached      = "outputs cached"
)

// Options are the per-invocation controls.
type Options struct {
	// ResumeFrom runs this stage and everything after it; earlier stages are
	// skipped and must have left their artifacts behind.
	ResumeFrom stage.Name
	Skip       []stage.Name
	// Recording is an externally captured screen recording imported before
	// any stage runs.
	Recording string
}

// Run is one pipeline invocation. It is mutated only by the orchestrator
// while stages resolve and is read-only afterwards.
type Run struct {
	ID         string
	Product    string
	ResumeFrom stage.Name
	Skip       []stage.Name
	State      RunState
	Results    []stage.Result
	StartedAt  time.Time
	FinishedAt time.Time

	// FinalPath is the rendered video when the run completed.
	FinalPath string
	// Awaiting is the artifact path the operator must fill before resuming a
	// suspended run.
	Awaiting string
	// BriefPath points at the recording brief written while suspended.
	BriefPath string
	// ImportedRecording is the store path of a recording supplied at invocation.
	ImportedRecording string

	FailedStage stage.Name
	Err         error

	states map[stage.Name]StageState
}

func newRun(id, product string, opts Options, started time.Time) *Run {
	states := make(map[stage.Name]StageState, len(stage.Order))
	for _, name := range stage.Order {
		states[name] = StagePending
	}
	return &Run{
		ID:         id,
		Product:    product,
		ResumeFrom: opts.ResumeFrom,
		Skip:       orderedNames(opts.Skip),
		State:      RunRunning,
		StartedAt:  started,
		states:     states,
	}
}

// StageState returns the state of the named stage.
func (r *Run) StageState(name stage.Name) StageState {
	if state, ok := r.states[name]; ok {
		return state
	}
	return StagePending
}

// Result returns the recorded result for a stage, if it resolved.
func (r *Run) Result(name stage.Name) (stage.Result, bool) {
	for _, res := range r.Results {
		if res.Stage == name {
			return res, true
		}
	}
	return stage.Result{}, false
}

// Duration is the wall time of the run so far.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Ran lists stages that were invoked, in order.
func (r *Run) Ran() []stage.Name {
	return r.namesWith(func(res stage.Result) bool { return res.Status != stage.StatusSkipped })
}

// Skipped lists stages that resolved as skipped, in order.
func (r *Run) Skipped() []stage.Name {
	return r.namesWith(func(res stage.Result) bool { return res.Status == stage.StatusSkipped })
}

func (r *Run) namesWith(keep func(stage.Result) bool) []stage.Name {
	var out []stage.Name
	for _, res := range r.Results {
		if keep(res) {
			out = append(out, res.Stage)
		}
	}
	return out
}

func (r *Run) record(res stage.Result) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case stage.StatusDone:
		r.states[res.Stage] = StageDone
	case stage.StatusSkipped:
		r.states[res.Stage] = StageSkipped
	default:
		r.states[res.Stage] = StageFailed
	}
}

func (r *Run) skips(name stage.Name) bool {
	for _, s := range r.Skip {
		if s == name {
			return true
		}
	}
	return false
}

func orderedNames(names []stage.Name) []stage.Name {
	set := make(map[stage.Name]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	var out []stage.Name
	for _, n := range stage.Order {
		if set[n] {
			out = append(out, n)
		}
	}
	return out
}
