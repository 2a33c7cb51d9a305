package site

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/pagesmith/internal/bundle"
	"git.home.luguber.info/inful/pagesmith/internal/passthrough"
)

// ReportFile is the build report written to the output root.
const ReportFile = ".pagesmith-report.json"

// Outcome is the final state of a build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// PageCounts tallies pages by what the build did with them.
type PageCounts struct {
	Rendered int `json:"rendered"`
	Reused   int `json:"reused"`
	Skipped  int `json:"skipped"`
}

// Report captures what a build did.
type Report struct {
	SchemaVersion    int                      `json:"schema_version"`
	BuildID          string                   `json:"build_id"`
	Start            time.Time                `json:"start"`
	End              time.Time                `json:"end"`
	Outcome          Outcome                  `json:"outcome"`
	Error            string                   `json:"error,omitempty"`
	Incremental      bool                     `json:"incremental"`
	Pages            PageCounts               `json:"pages"`
	FilesCopied      int                      `json:"files_copied"`
	BytesCopied      int64                    `json:"bytes_copied"`
	Passthrough      []passthrough.RuleResult `json:"passthrough,omitempty"`
	Bundles          []bundle.File            `json:"bundles,omitempty"`
	StageDurationsMS map[string]float64       `json:"stage_durations_ms"`
}

func newReport(buildID string) *Report {
	return &Report{
		SchemaVersion:    1,
		BuildID:          buildID,
		Start:            time.Now(),
		StageDurationsMS: make(map[string]float64),
	}
}

// finish stamps the end time and derives the outcome from err.
func (r *Report) finish(err error) {
	r.End = time.Now()
	switch {
	case err == nil:
		r.Outcome = OutcomeSuccess
	case isCanceled(err):
		r.Outcome = OutcomeCanceled
		r.Error = err.Error()
	default:
		r.Outcome = OutcomeFailed
		r.Error = err.Error()
	}
}

// Duration returns the wall time of the build.
func (r *Report) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("pages=%d reused=%d skipped=%d files=%d bundles=%d duration=%s outcome=%s",
		r.Pages.Rendered, r.Pages.Reused, r.Pages.Skipped, r.FilesCopied, len(r.Bundles),
		r.Duration().Truncate(time.Millisecond), r.Outcome)
}

// Persist writes the report atomically into dir.
func (r *Report) Persist(dir string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	path := filepath.Join(dir, ReportFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename report json: %w", err)
	}
	return nil
}

// LoadReport reads a persisted report from dir.
func LoadReport(dir string) (*Report, error) {
	// #nosec G304 - dir is the configured output directory
	data, err := os.ReadFile(filepath.Join(dir, ReportFile))
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
