package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"demoforge/internal/report"
	"demoforge/internal/stage"
)

// Entry is one recorded invocation.
type Entry struct {
	RunID         string
	Product       string
	State         string
	StartedAt     time.Time
	FinishedAt    time.Time
	Duration      time.Duration
	ResumeFrom    string
	StagesRun     []string
	StagesSkipped []string
	FailedStage   string
	ErrorKind     string
	ErrorMessage  string
	FinalPath     string
	Awaiting      string
}

// ListOptions filters List.
type ListOptions struct {
	Product string
	// Limit caps the number of entries; zero means 20.
	Limit int
}

const defaultListLimit = 20

// timeLayout has fixed-width fractions so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record appends a run report to the ledger. Recording the same run twice
// replaces the earlier row.
func (s *Store) Record(ctx context.Context, r report.Report) error {
	if strings.TrimSpace(r.RunID) == "" {
		return errors.New("history: report has no run id")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	var ran, skipped []string
	for _, st := range r.Stages {
		switch st.Status {
		case string(stage.StatusSkipped):
			skipped = append(skipped, st.Stage)
		case string(stage.StatusDone), string(stage.StatusFailed):
			ran = append(ran, st.Stage)
		}
	}

	return withBusyRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO runs (
                run_id, product, state, started_at, finished_at, duration_ms, resume_from,
                stages_run, stages_skipped, failed_stage, error_kind, error_message,
                final_path, awaiting, report_json
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID,
			r.Product,
			r.State,
			r.StartedAt.UTC().Format(timeLayout),
			r.FinishedAt.UTC().Format(timeLayout),
			r.DurationMS,
			nullableString(r.ResumeFrom),
			strings.Join(ran, ","),
			strings.Join(skipped, ","),
			nullableString(r.FailedStage),
			nullableString(r.ErrorKind),
			nullableString(r.Error),
			nullableString(r.FinalPath),
			nullableString(r.Awaiting),
			string(payload),
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		return nil
	})
}

// List returns recent runs, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `SELECT run_id, product, state, started_at, finished_at, duration_ms, resume_from,
        stages_run, stages_skipped, failed_stage, error_kind, error_message, final_path, awaiting
        FROM runs`
	var args []any
	if product := strings.TrimSpace(opts.Product); product != "" {
		query += " WHERE product = ?"
		args = append(args, product)
	}
	query += " ORDER BY started_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Report returns the full stored report for a run. runID may be a unique
// prefix of the full id.
func (s *Store) Report(ctx context.Context, runID string) (report.Report, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return report.Report{}, errors.New("history: run id is required")
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, report_json FROM runs WHERE run_id = ? OR substr(run_id, 1, ?) = ? ORDER BY run_id = ? DESC LIMIT 2",
		runID, len(runID), runID, runID)
	if err != nil {
		return report.Report{}, fmt.Errorf("read run %s: %w", runID, err)
	}
	defer rows.Close()

	var ids, payloads []string
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return report.Report{}, fmt.Errorf("scan run %s: %w", runID, err)
		}
		ids = append(ids, id)
		payloads = append(payloads, payload)
	}
	if err := rows.Err(); err != nil {
		return report.Report{}, fmt.Errorf("read run %s: %w", runID, err)
	}
	switch {
	case len(ids) == 0:
		return report.Report{}, fmt.Errorf("history: run %s not found", runID)
	case len(ids) > 1 && ids[0] != runID:
		return report.Report{}, fmt.Errorf("history: run id %s is ambiguous", runID)
	}

	var r report.Report
	if err := json.Unmarshal([]byte(payloads[0]), &r); err != nil {
		return report.Report{}, fmt.Errorf("decode run %s: %w", ids[0], err)
	}
	return r, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e                                                 Entry
		started, finished                                 string
		durationMS                                        int64
		ran, skipped                                      string
		resume, failed, kind, message, finalPath, awaited sql.NullString
	)
	if err := rows.Scan(&e.RunID, &e.Product, &e.State, &started, &finished, &durationMS, &resume,
		&ran, &skipped, &failed, &kind, &message, &finalPath, &awaited); err != nil {
		return Entry{}, fmt.Errorf("scan run: %w", err)
	}
	e.StartedAt = parseTime(started)
	e.FinishedAt = parseTime(finished)
	e.Duration = time.Duration(durationMS) * time.Millisecond
	e.ResumeFrom = resume.String
	e.StagesRun = splitList(ran)
	e.StagesSkipped = splitList(skipped)
	e.FailedStage = failed.String
	e.ErrorKind = kind.String
	e.ErrorMessage = message.String
	e.FinalPath = finalPath.String
	e.Awaiting = awaited.String
	return e, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
