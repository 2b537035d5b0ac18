package report

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/xuri/excelize/v2"

	"github.com/sakif/paper-digest/internal/model"
)

// MaxSheetTitle is the longest sheet name the xlsx format allows, counted
// in UTF-16 code units: an emoji takes two.
const MaxSheetTitle = 31

// sheetTitleReplacer removes characters xlsx forbids in sheet names.
var sheetTitleReplacer = strings.NewReplacer(
	"[", "", "]", "", ":", "", "*", "", "?", "", "/", "", "\\", "",
)

// SanitizeSheetTitle makes name usable as a sheet title. n is the 1-based
// paper number used for the fallback title "Paper n".
func SanitizeSheetTitle(name string, n int) string {
	title := strings.TrimSpace(name)
	if strings.HasSuffix(strings.ToLower(title), ".pdf") {
		title = title[:len(title)-len(".pdf")]
	}
	title = sheetTitleReplacer.Replace(title)
	title = strings.Trim(title, " '")
	title = truncateUTF16(title, MaxSheetTitle)
	// Truncation can expose a trailing space or apostrophe.
	title = strings.TrimRight(title, " '")

	if title == "" {
		return "Paper " + strconv.Itoa(n)
	}
	return title
}

// uniqueTitles assigns one distinct sheet title per result. Sheet names are
// compared case-insensitively, as spreadsheet applications do.
func uniqueTitles(results []model.AnalysisResult) []string {
	titles := make([]string, len(results))
	used := make(map[string]bool, len(results))

	for i := range results {
		base := SanitizeSheetTitle(results[i].OriginalName, i+1)
		title := base
		for k := 2; used[strings.ToLower(title)]; k++ {
			suffix := fmt.Sprintf(" (%d)", k)
			title = truncateUTF16(base, MaxSheetTitle-len(suffix)) + suffix
		}
		used[strings.ToLower(title)] = true
		titles[i] = title
	}
	return titles
}

// Workbook renders one sheet per result as a two-column Field/Value table
// and returns the encoded .xlsx file.
func Workbook(results []model.AnalysisResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	first := f.GetSheetName(0)

	if len(results) == 0 {
		if err := f.SetSheetName(first, "Papers"); err != nil {
			return nil, fmt.Errorf("report: naming sheet: %w", err)
		}
		if err := f.SetCellValue("Papers", "A1", "No papers were analyzed."); err != nil {
			return nil, fmt.Errorf("report: writing cell: %w", err)
		}
		return encode(f)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("report: creating header style: %w", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return nil, fmt.Errorf("report: creating wrap style: %w", err)
	}

	for i, title := range uniqueTitles(results) {
		if i == 0 {
			err = f.SetSheetName(first, title)
		} else {
			_, err = f.NewSheet(title)
		}
		if err != nil {
			return nil, fmt.Errorf("report: creating sheet %q: %w", title, err)
		}

		if err := writeSheet(f, title, &results[i], header, wrap); err != nil {
			return nil, fmt.Errorf("report: writing sheet %q: %w", title, err)
		}
	}

	f.SetActiveSheet(0)
	return encode(f)
}

func writeSheet(f *excelize.File, sheet string, res *model.AnalysisResult, header, wrap int) error {
	rows := sheetRows(res)

	set := func(cell string, v any) error {
		return f.SetCellValue(sheet, cell, v)
	}
	if err := set("A1", "Field"); err != nil {
		return err
	}
	if err := set("B1", "Value"); err != nil {
		return err
	}

	for i, row := range rows {
		r := i + 2
		if err := set("A"+strconv.Itoa(r), row[0]); err != nil {
			return err
		}
		if err := set("B"+strconv.Itoa(r), row[1]); err != nil {
			return err
		}
	}

	last := strconv.Itoa(len(rows) + 1)
	if err := f.SetCellStyle(sheet, "A1", "B1", header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A2", "B"+last, wrap); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "A", 22); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "B", 100)
}

// sheetRows lists the Field/Value pairs for one result.
func sheetRows(res *model.AnalysisResult) [][2]string {
	rows := [][2]string{
		{"File", orPlaceholder(res.OriginalName, PlaceholderEmpty)},
		{"Status", orPlaceholder(res.Status, PlaceholderEmpty)},
		{"Pages", Pages(res.Pages)},
		{"Characters", strconv.Itoa(res.Characters)},
	}

	if res.Failed() {
		return append(rows, [2]string{"Error", orPlaceholder(res.Error, PlaceholderText)})
	}

	s := DisplaySummary(res.Summary)
	switch s.Kind() {
	case model.SummaryWarning:
		return append(rows, [2]string{"Warning", s.Warning})
	case model.SummaryUnparsed:
		return append(rows,
			[2]string{"Parsing Note", orPlaceholder(s.ParsingNote, PlaceholderText)},
			[2]string{"Raw Model Output", orPlaceholder(s.UnparsedSummary, PlaceholderText)},
		)
	}

	return append(rows,
		[2]string{"Concise Summary", orPlaceholder(s.ConciseSummary, PlaceholderText)},
		[2]string{"Key Points", NumberedList(s.KeyPoints)},
		[2]string{"Novelty", orPlaceholder(s.Novelty, PlaceholderText)},
		[2]string{"Limitations", orPlaceholder(s.Limitations, PlaceholderText)},
		[2]string{"Next Questions", NumberedList(s.NextQuestions)},
	)
}

func encode(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("report: xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// truncateUTF16 keeps the longest prefix of s that fits in n UTF-16 code
// units. Runes are never split.
func truncateUTF16(s string, n int) string {
	units := 0
	for i, r := range s {
		size := utf16.RuneLen(r)
		if size < 0 {
			size = 1 // invalid UTF-8 decodes to U+FFFD
		}
		if units+size > n {
			return s[:i]
		}
		units += size
	}
	return s
}
