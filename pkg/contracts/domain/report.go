package domain

import (
	"time"
)

// Row outcomes
const (
	StatusConverted = "converted"
	StatusFailed    = "failed"
)

// RowResult is the outcome of converting a single manifest row: either Record
// is set, or Err is.
type RowResult struct {
	Index     int              `json:"index"`
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	Record    *ConvertedRecord `json:"record,omitempty"`
	Err       error            `json:"-"`
	ErrorType string           `json:"error_type,omitempty"`
	ErrorMsg  string           `json:"error_msg,omitempty"`
}

// Succeeded reports whether the row was converted.
func (r RowResult) Succeeded() bool { return r.Err == nil && r.Record != nil }

// ConversionSummary counts row outcomes.
type ConversionSummary struct {
	Total     int `json:"total"`
	Converted int `json:"converted"`
	Failed    int `json:"failed"`
}

// ConversionReport is the typed outcome of a batch conversion run.
type ConversionReport struct {
	RunID        string    `json:"run_id"`
	ManifestPath string    `json:"manifest_path"`
	OutputDir    string    `json:"output_dir"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`

	Summary ConversionSummary `json:"summary"`
	Results []RowResult       `json:"results"`
}

// Finalize normalizes timestamps to UTC, fills status fields and recomputes the
// summary from the results. Results keep manifest order.
func (r *ConversionReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	var s ConversionSummary
	for i := range r.Results {
		res := &r.Results[i]
		if res.Succeeded() {
			res.Status = StatusConverted
			s.Converted++
		} else {
			res.Status = StatusFailed
			if res.Err != nil && res.ErrorMsg == "" {
				res.ErrorMsg = res.Err.Error()
			}
			s.Failed++
		}
	}
	s.Total = len(r.Results)
	r.Summary = s
}

// Failures returns the failed rows in manifest order.
func (r *ConversionReport) Failures() []RowResult {
	var out []RowResult
	for _, res := range r.Results {
		if !res.Succeeded() {
			out = append(out, res)
		}
	}
	return out
}

// Converted returns the converted records in manifest order.
func (r *ConversionReport) Converted() []ConvertedRecord {
	var out []ConvertedRecord
	for _, res := range r.Results {
		if res.Succeeded() {
			out = append(out, *res.Record)
		}
	}
	return out
}

// Duration is the wall time of the run.
func (r *ConversionReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
