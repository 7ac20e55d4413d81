// models/run.go
package models

import "time"

// Run results.
const (
	RunSuccess = "success"
	RunFailure = "failure"
)

// StageOutcome records how one pipeline stage of a run went.
type StageOutcome struct {
	Stage    string        `json:"stage"`
	OK       bool          `json:"ok"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// RunSummary describes a finished run. It is persisted to scrape_runs and
// served by the status API.
type RunSummary struct {
	ID              string         `db:"id" json:"id"`
	StartedAt       time.Time      `db:"started_at" json:"started_at"`
	FinishedAt      time.Time      `db:"finished_at" json:"finished_at"`
	Sites           int            `db:"sites" json:"sites"`
	Records         int            `db:"records" json:"records"`
	LiveRecords     int            `db:"live_records" json:"live_records"`
	FallbackRecords int            `db:"fallback_records" json:"fallback_records"`
	AverageQuality  float64        `db:"average_quality" json:"average_quality"`
	OutputFile      string         `db:"output_file" json:"output_file"`
	Result          string         `db:"result" json:"result"`
	ErrorMessage    string         `db:"error_message" json:"error,omitempty"`
	Stages          []StageOutcome `db:"-" json:"stages"`
}

// Duration is the wall time of the run.
func (s RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
