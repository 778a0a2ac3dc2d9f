// Package report turns a finished pipeline run into the structured summary
// written beside the artifacts and printed by the CLI.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"demoforge/internal/fileutil"
	"demoforge/internal/services"
	"demoforge/internal/stage"
	"demoforge/internal/workflow"
)

// FileName is the report written at the top of a run root.
const FileName = "report.json"

// Report is the outcome of one invocation.
type Report struct {
	RunID       string       `json:"run_id"`
	Product     string       `json:"product,omitempty"`
	State       string       `json:"state"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	DurationMS  int64        `json:"duration_ms"`
	ResumeFrom  string       `json:"resume_from,omitempty"`
	Skip        []string     `json:"skip,omitempty"`
	Stages      []StageEntry `json:"stages"`
	FinalPath   string       `json:"final_path,omitempty"`
	Awaiting    string       `json:"awaiting,omitempty"`
	BriefPath   string       `json:"brief_path,omitempty"`
	Recording   string       `json:"imported_recording,omitempty"`
	FailedStage string       `json:"failed_stage,omitempty"`
	ErrorKind   string       `json:"error_kind,omitempty"`
	Error       string       `json:"error,omitempty"`
	Guidance    string       `json:"guidance,omitempty"`
}

// StageEntry is one stage's line in the report. Stages that never resolved
// because the run stopped earlier are listed as pending.
type StageEntry struct {
	Stage      string            `json:"stage"`
	Label      string            `json:"label"`
	Status     string            `json:"status"`
	Reason     string            `json:"reason,omitempty"`
	DurationMS int64             `json:"duration_ms,omitempty"`
	Outputs    map[string]string `json:"outputs,omitempty"`
	ErrorKind  string            `json:"error_kind,omitempty"`
	Error      string            `json:"error,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
}

var titler = cases.Title(language.English)

// Label renders a stage name for humans.
func Label(name stage.Name) string {
	return titler.String(string(name))
}

// Build summarizes a run.
func Build(run *workflow.Run) Report {
	r := Report{
		RunID:       run.ID,
		Product:     run.Product,
		State:       string(run.State),
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		DurationMS:  run.Duration().Milliseconds(),
		ResumeFrom:  string(run.ResumeFrom),
		FinalPath:   run.FinalPath,
		Awaiting:    run.Awaiting,
		BriefPath:   run.BriefPath,
		Recording:   run.ImportedRecording,
		FailedStage: string(run.FailedStage),
	}
	for _, name := range run.Skip {
		r.Skip = append(r.Skip, string(name))
	}
	if run.Err != nil {
		kind := services.Classify(run.Err)
		r.ErrorKind = string(kind)
		r.Error = run.Err.Error()
		r.Guidance = Guidance(run.State, kind)
	}

	for _, name := range stage.Order {
		entry := StageEntry{Stage: string(name), Label: Label(name), Status: string(run.StageState(name))}
		if res, ok := run.Result(name); ok {
			entry.Status = string(res.Status)
			entry.Reason = res.Reason
			entry.DurationMS = res.Duration.Milliseconds()
			entry.Warnings = res.Warnings
			if len(res.Outputs) > 0 {
				entry.Outputs = make(map[string]string, len(res.Outputs))
				for kind, path := range res.Outputs {
					entry.Outputs[string(kind)] = path
				}
			}
			if res.Err != nil {
				entry.ErrorKind = string(res.ErrorKind())
				entry.Error = res.Err.Error()
			}
		}
		r.Stages = append(r.Stages, entry)
	}
	return r
}

// Guidance tells the operator what has to change before the next invocation.
func Guidance(state workflow.RunState, kind services.ErrorKind) string {
	if state == workflow.RunSuspended {
		return "Record the walkthrough described in the brief, then rerun with --recording <file> --resume-from composite."
	}
	switch kind {
	case services.KindMissingDependency:
		return "An upstream artifact is missing. Rerun without --resume-from or the skip flag so the producing stage runs again."
	case services.KindMissingRecording:
		return "Supply a screen recording with --recording and resume from composite."
	case services.KindGeneratorTransient:
		return "The generation service kept failing after retries. Rerunning later resumes from the cached artifacts."
	case services.KindGeneratorFatal:
		return "Retrying will not help until the credentials, model settings or product spec are fixed."
	case services.KindComposition:
		return "Rendering failed and no final video was written. Check the input media and the ffmpeg build, then resume from composite."
	case services.KindCanceled:
		return "The run was interrupted. Rerun to continue from the cached artifacts."
	case services.KindNone:
		return ""
	default:
		return "Unexpected failure. Check the log file for details."
	}
}

// Warnings flattens stage warnings with their stage prefix.
func (r Report) Warnings() []string {
	var out []string
	for _, s := range r.Stages {
		for _, w := range s.Warnings {
			out = append(out, s.Label+": "+w)
		}
	}
	return out
}

// Summary is a short plain-text outcome for terminals and logs.
func (r Report) Summary() string {
	var b strings.Builder
	subject := r.Product
	if subject == "" {
		subject = "run"
	}
	fmt.Fprintf(&b, "%s %s in %s\n", subject, r.State, (time.Duration(r.DurationMS) * time.Millisecond).Round(time.Millisecond))

	var ran, skipped []string
	for _, s := range r.Stages {
		switch s.Status {
		case string(stage.StatusSkipped):
			skipped = append(skipped, s.Stage)
		case string(stage.StatusDone), string(stage.StatusFailed):
			ran = append(ran, s.Stage)
		}
	}
	fmt.Fprintf(&b, "ran: %s\n", listOrNone(ran))
	fmt.Fprintf(&b, "skipped: %s\n", listOrNone(skipped))

	switch workflow.RunState(r.State) {
	case workflow.RunCompleted:
		fmt.Fprintf(&b, "final video: %s\n", r.FinalPath)
	case workflow.RunSuspended:
		fmt.Fprintf(&b, "awaiting recording at: %s\n", r.Awaiting)
		if r.BriefPath != "" {
			fmt.Fprintf(&b, "recording brief: %s\n", r.BriefPath)
		}
	case workflow.RunAborted:
		fmt.Fprintf(&b, "failed stage: %s (%s)\n", r.FailedStage, r.ErrorKind)
		fmt.Fprintf(&b, "error: %s\n", r.Error)
	}
	for _, w := range r.Warnings() {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	if r.Guidance != "" {
		fmt.Fprintf(&b, "next: %s\n", r.Guidance)
	}
	return b.String()
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// Write stores the report atomically as report.json under root.
func Write(root string, r Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	path := filepath.Join(root, FileName)
	if err := fileutil.WriteAtomic(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Load reads the last report written under root. A run root with no report
// yields os.ErrNotExist.
func Load(root string) (Report, error) {
	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Report{}, err
		}
		return Report{}, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("decode report %s: %w", filepath.Join(root, FileName), err)
	}
	sort.SliceStable(r.Stages, func(i, j int) bool {
		return stage.Name(r.Stages[i].Stage).Index() < stage.Name(r.Stages[j].Stage).Index()
	})
	return r, nil
}
