package model

import "time"

// Status values for AnalysisResult.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// UploadedFile is a PDF received in an analyze request. It is held in memory
// for the duration of the request and never persisted.
type UploadedFile struct {
	OriginalName string
	MimeType     string
	Data         []byte
}

// AnalysisResult is the outcome of processing one uploaded file.
//
// A result is in exactly one of four states:
//   - failed:   Status "failed", Error set, Summary nil
//   - schema:   Status "ok", Summary.Kind() == SummarySchema
//   - warning:  Status "ok", Summary.Kind() == SummaryWarning
//   - unparsed: Status "ok", Summary.Kind() == SummaryUnparsed
//
// Pages is nil when the page count is unknown.
type AnalysisResult struct {
	ID           string   `json:"id"`
	OriginalName string   `json:"originalName"`
	Status       string   `json:"status"`
	Pages        *int     `json:"pages"`
	Characters   int      `json:"characters"`
	Summary      *Summary `json:"summary"`
	Error        string   `json:"error,omitempty"`
}

// Failed reports whether the result records a per-file failure.
func (r *AnalysisResult) Failed() bool {
	return r.Status == StatusFailed
}

// Report is the response body of an analyze request.
type Report struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	TotalPapers int              `json:"totalPapers"`
	Results     []AnalysisResult `json:"results"`
}
