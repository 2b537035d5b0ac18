// Package report renders analysis results for download: a plain-text report
// and an .xlsx workbook. Both are pure functions of their input and handle
// every result shape (failed, schema, warning, unparsed) without error.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/paper-digest/internal/model"
)

// Placeholders for values a result does not carry.
const (
	PlaceholderEmpty = "—"
	PlaceholderText  = "Not specified."
	PlaceholderPages = "N/A"
)

const (
	reportTitle = "RESEARCH PAPER SUMMARIES"
	rule        = "============================================================"
	subRule     = "------------------------------------------------------------"
)

// DisplaySummary returns the summary to render for s. A nil summary renders
// as an empty one, never as a failure.
func DisplaySummary(s *model.Summary) model.Summary {
	if s == nil {
		return model.Summary{}
	}
	return *s
}

// Text renders r as a plain-text report.
func Text(r *model.Report) string {
	var b strings.Builder

	b.WriteString(reportTitle + "\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Generated: %s\n", r.GeneratedAt.UTC().Format(time.RFC1123))
	fmt.Fprintf(&b, "Total papers: %d\n", len(r.Results))

	for i := range r.Results {
		b.WriteString("\n" + rule + "\n")
		writeResult(&b, i+1, &r.Results[i])
	}

	return b.String()
}

func writeResult(b *strings.Builder, n int, res *model.AnalysisResult) {
	name := res.OriginalName
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("Paper %d", n)
	}
	fmt.Fprintf(b, "%d. %s\n", n, name)
	b.WriteString(subRule + "\n")
	fmt.Fprintf(b, "Status: %s\n", orPlaceholder(res.Status, PlaceholderEmpty))
	fmt.Fprintf(b, "Pages: %s\n", Pages(res.Pages))
	fmt.Fprintf(b, "Characters: %d\n", res.Characters)

	if res.Failed() {
		section(b, "Error", orPlaceholder(res.Error, PlaceholderText))
		return
	}

	s := DisplaySummary(res.Summary)
	switch s.Kind() {
	case model.SummaryWarning:
		section(b, "Warning", s.Warning)
	case model.SummaryUnparsed:
		section(b, "Parsing Note", orPlaceholder(s.ParsingNote, PlaceholderText))
		section(b, "Raw Model Output", orPlaceholder(s.UnparsedSummary, PlaceholderText))
	default:
		section(b, "Concise Summary", orPlaceholder(s.ConciseSummary, PlaceholderText))
		section(b, "Key Points", NumberedList(s.KeyPoints))
		section(b, "Novelty", orPlaceholder(s.Novelty, PlaceholderText))
		section(b, "Limitations", orPlaceholder(s.Limitations, PlaceholderText))
		section(b, "Next Questions", NumberedList(s.NextQuestions))
	}
}

func section(b *strings.Builder, title, body string) {
	fmt.Fprintf(b, "\n%s\n%s\n", title, body)
}

// NumberedList renders items as "1. a\n2. b". Blank items are skipped; an
// empty list renders as PlaceholderEmpty.
func NumberedList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d. %s", len(lines)+1, item))
	}
	if len(lines) == 0 {
		return PlaceholderEmpty
	}
	return strings.Join(lines, "\n")
}

// Pages formats a page count, PlaceholderPages when unknown.
func Pages(p *int) string {
	if p == nil || *p <= 0 {
		return PlaceholderPages
	}
	return strconv.Itoa(*p)
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
