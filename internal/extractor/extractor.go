// Package extractor turns uploaded PDF bytes into plain text.
//
// The parser is github.com/ledongthuc/pdf, a pure Go reader that works on an
// io.ReaderAt. Uploads are already in memory, so the reader wraps the byte
// slice directly and nothing touches disk. The reader holds no OS resources;
// it is released when Extract returns, on success and on failure alike.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/sakif/paper-digest/internal/apperror"
)

// Extraction is the result of reading one PDF.
type Extraction struct {
	Text  string
	Pages int // <= 0 when unknown
}

// Extractor reads text from a document.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*Extraction, error)
}

// PDFExtractor implements Extractor for PDF files.
type PDFExtractor struct {
	logger *slog.Logger
}

func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	return &PDFExtractor{logger: logger}
}

// IsPDF reports whether data starts with the PDF magic bytes.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// Extract parses data and returns the text of every page joined by
// newlines. Text is otherwise returned as the parser produced it.
//
// Every failure, including a panic inside the parser on a malformed
// stream, is returned as an error wrapping apperror.ErrExtraction.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (result *Extraction, err error) {
	if !IsPDF(data) {
		return nil, apperror.ExtractionFailed("file is not a PDF")
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("extractor: parser panic: %v: %w", r,
				apperror.ExtractionFailed("could not extract text from PDF"))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("extractor: opening PDF: %v: %w", err,
			apperror.ExtractionFailed("could not extract text from PDF"))
	}

	pageCount := reader.NumPage()
	texts := make([]string, 0, pageCount)

	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Image-only or damaged pages are skipped; the rest of the
			// document is still usable.
			e.logger.Debug("skipping unreadable page",
				slog.Int("page", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		texts = append(texts, text)
	}

	return &Extraction{
		Text:  strings.Join(texts, "\n"),
		Pages: pageCount,
	}, nil
}
