package model

import "encoding/json"

// SummaryKind identifies which of the three summary shapes a Summary holds.
type SummaryKind string

const (
	// SummarySchema is a structured summary with the five schema fields.
	SummarySchema SummaryKind = "schema"
	// SummaryWarning is produced when no model credential is configured.
	SummaryWarning SummaryKind = "warning"
	// SummaryUnparsed carries the raw model reply that could not be parsed.
	SummaryUnparsed SummaryKind = "unparsed"
)

// Summary is the per-paper summary. Exactly one shape is populated:
//
//	schema:   concise_summary, key_points, novelty, limitations, next_questions
//	warning:  warning
//	unparsed: unparsed_summary, parsing_note
//
// JSON encoding emits only the fields of the populated shape. Decoding
// accepts any of them, which is how the export endpoints read results back.
type Summary struct {
	ConciseSummary string   `json:"concise_summary"`
	KeyPoints      []string `json:"key_points"`
	Novelty        string   `json:"novelty"`
	Limitations    string   `json:"limitations"`
	NextQuestions  []string `json:"next_questions"`

	Warning string `json:"warning"`

	UnparsedSummary string `json:"unparsed_summary"`
	ParsingNote     string `json:"parsing_note"`
}

// Kind reports which shape s holds.
func (s *Summary) Kind() SummaryKind {
	switch {
	case s.Warning != "":
		return SummaryWarning
	case s.UnparsedSummary != "" || s.ParsingNote != "":
		return SummaryUnparsed
	default:
		return SummarySchema
	}
}

// IsEmpty reports whether no field is populated at all.
func (s *Summary) IsEmpty() bool {
	return s.ConciseSummary == "" && len(s.KeyPoints) == 0 && s.Novelty == "" &&
		s.Limitations == "" && len(s.NextQuestions) == 0 && s.Warning == "" &&
		s.UnparsedSummary == "" && s.ParsingNote == ""
}

type schemaSummaryJSON struct {
	ConciseSummary string   `json:"concise_summary"`
	KeyPoints      []string `json:"key_points"`
	Novelty        string   `json:"novelty"`
	Limitations    string   `json:"limitations"`
	NextQuestions  []string `json:"next_questions"`
}

type warningSummaryJSON struct {
	Warning string `json:"warning"`
}

type unparsedSummaryJSON struct {
	UnparsedSummary string `json:"unparsed_summary"`
	ParsingNote     string `json:"parsing_note"`
}

func (s Summary) MarshalJSON() ([]byte, error) {
	if s.IsEmpty() {
		return []byte("{}"), nil
	}

	switch s.Kind() {
	case SummaryWarning:
		return json.Marshal(warningSummaryJSON{Warning: s.Warning})
	case SummaryUnparsed:
		return json.Marshal(unparsedSummaryJSON{
			UnparsedSummary: s.UnparsedSummary,
			ParsingNote:     s.ParsingNote,
		})
	}

	keyPoints, nextQuestions := s.KeyPoints, s.NextQuestions
	if keyPoints == nil {
		keyPoints = []string{}
	}
	if nextQuestions == nil {
		nextQuestions = []string{}
	}
	return json.Marshal(schemaSummaryJSON{
		ConciseSummary: s.ConciseSummary,
		KeyPoints:      keyPoints,
		Novelty:        s.Novelty,
		Limitations:    s.Limitations,
		NextQuestions:  nextQuestions,
	})
}
