// Package coerce turns a free-form model reply into a model.Summary.
//
// COERCION LADDER:
//  1. stripFences           trim, drop a leading ``` (with optional language
//     tag) and a trailing ```
//  2. normalizeQuotes       typographic quotes become ASCII quotes
//  3. stripLanguagePrefix   drop a leading case-insensitive "json" label
//  4. Candidates            normalized, prefix-stripped, then the first-{ to
//     last-} span of each
//  5. parseCandidate        strict JSON, must be an object, must match the
//     summary schema; the first success wins
//  6. Unparsed              nothing parsed: keep the raw reply and a note
//
// Every step is a total function of its input. Coerce itself never fails:
// it returns nil only for an empty reply and a Summary otherwise.
package coerce

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/sakif/paper-digest/internal/model"
)

// ParsingNote accompanies every unparsed summary.
const ParsingNote = "The model response could not be parsed as structured JSON; the raw output is shown instead."

var (
	leadingFence   = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\r?\n?")
	trailingFence  = regexp.MustCompile("\r?\n?[ \t]*```$")
	languagePrefix = regexp.MustCompile(`(?i)^json\s*`)

	quoteReplacer = strings.NewReplacer(
		"\u201c", `"`, "\u201d", `"`, "\u201e", `"`, "\u201f", `"`,
		"\u2033", `"`, "\u00ab", `"`, "\u00bb", `"`,
		"\u2018", "'", "\u2019", "'", "\u201a", "'", "\u201b", "'",
		"\u2032", "'",
	)
)

// Coerce converts raw into a Summary. It returns nil when raw is empty or
// whitespace; callers decide how to treat that.
func Coerce(raw string) *model.Summary {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	for _, candidate := range Candidates(raw) {
		if summary, ok := parseCandidate(candidate); ok {
			return summary
		}
	}

	return Unparsed(raw)
}

// Unparsed wraps a reply that could not be parsed.
func Unparsed(raw string) *model.Summary {
	return &model.Summary{
		UnparsedSummary: raw,
		ParsingNote:     ParsingNote,
	}
}

// Candidates returns the strings Coerce tries to parse, in order. Empty
// candidates are omitted.
func Candidates(raw string) []string {
	normalized := normalizeQuotes(stripFences(raw))
	stripped := stripLanguagePrefix(normalized)

	all := []string{
		normalized,
		stripped,
		braceSpan(normalized),
		braceSpan(stripped),
	}

	out := make([]string, 0, len(all))
	for _, c := range all {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func normalizeQuotes(s string) string {
	return quoteReplacer.Replace(s)
}

func stripLanguagePrefix(s string) string {
	return strings.TrimSpace(languagePrefix.ReplaceAllString(s, ""))
}

// braceSpan returns s from its first '{' through its last '}', or "" when
// there is no such span.
func braceSpan(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// schemaFields is the decode target for a validated candidate. Keys outside
// the schema are ignored.
type schemaFields struct {
	ConciseSummary string   `json:"concise_summary"`
	KeyPoints      []string `json:"key_points"`
	Novelty        string   `json:"novelty"`
	Limitations    string   `json:"limitations"`
	NextQuestions  []string `json:"next_questions"`
}

func parseCandidate(s string) (*model.Summary, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	if _, isObject := v.(map[string]any); !isObject {
		return nil, false
	}
	if err := validateSummary(v); err != nil {
		return nil, false
	}

	var f schemaFields
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return nil, false
	}

	return &model.Summary{
		ConciseSummary: f.ConciseSummary,
		KeyPoints:      f.KeyPoints,
		Novelty:        f.Novelty,
		Limitations:    f.Limitations,
		NextQuestions:  f.NextQuestions,
	}, true
}
