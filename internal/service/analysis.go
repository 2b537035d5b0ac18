// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository / clients     → storage, PDF parsing, the language model
//
// Services take their collaborators as interfaces, so tests pass fakes and
// main.go decides which concrete backend is wired in.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/xid"

	"github.com/sakif/paper-digest/internal/apperror"
	"github.com/sakif/paper-digest/internal/extractor"
	"github.com/sakif/paper-digest/internal/model"
)

// Upload limits for one analyze call.
const (
	MaxFilesPerRequest = 5
	MaxFileBytes       = 20 << 20 // 20MB
)

// Per-file failure reasons shown to the user.
const (
	reasonTooLarge      = "file exceeds the 20MB limit"
	reasonExtraction    = "could not extract text from PDF"
	reasonNoText        = "no extractable text found"
	reasonSummarization = "summarization failed"
)

// Summarizer turns paper text into a summary. summarizer.Service satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (*model.Summary, error)
}

// AnalysisService runs the extract → summarize pipeline over a batch of
// uploaded papers.
type AnalysisService struct {
	extractor  extractor.Extractor
	summarizer Summarizer
	logger     *slog.Logger
	now        func() time.Time
}

func NewAnalysisService(ext extractor.Extractor, sum Summarizer, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		extractor:  ext,
		summarizer: sum,
		logger:     logger,
		now:        time.Now,
	}
}

// Analyze processes files one after another and returns one result per
// file, in input order.
//
// Request-level problems (no files, too many files) are returned as a
// ValidationError. Everything that goes wrong with a single file is
// recorded on that file's result and the batch carries on.
func (s *AnalysisService) Analyze(ctx context.Context, files []model.UploadedFile) (*model.Report, error) {
	if len(files) == 0 {
		return nil, apperror.ValidationFailed("papers", "upload at least one PDF")
	}
	if len(files) > MaxFilesPerRequest {
		return nil, apperror.ValidationFailed("papers",
			fmt.Sprintf("upload at most %d PDFs at a time", MaxFilesPerRequest))
	}

	start := s.now()
	results := make([]model.AnalysisResult, 0, len(files))
	failed := 0

	for i := range files {
		result := s.analyzeOne(ctx, &files[i])
		if result.Failed() {
			failed++
		}
		results = append(results, result)
	}

	s.logger.Info("analysis complete",
		slog.Int("files", len(files)),
		slog.Int("failed", failed),
		slog.Duration("duration", time.Since(start)),
	)

	return &model.Report{
		GeneratedAt: s.now().UTC(),
		TotalPapers: len(results),
		Results:     results,
	}, nil
}

func (s *AnalysisService) analyzeOne(ctx context.Context, file *model.UploadedFile) model.AnalysisResult {
	result := model.AnalysisResult{
		ID:           xid.New().String(),
		OriginalName: file.OriginalName,
	}
	log := s.logger.With(
		slog.String("resultID", result.ID),
		slog.String("file", file.OriginalName),
	)

	if len(file.Data) > MaxFileBytes {
		log.Warn("file rejected", slog.Int("bytes", len(file.Data)))
		return fail(result, reasonTooLarge)
	}

	extraction, err := s.extractor.Extract(ctx, file.Data)
	if err != nil {
		log.Warn("extraction failed", slog.String("error", err.Error()))
		return fail(result, clientMessage(err, reasonExtraction))
	}

	if extraction.Pages > 0 {
		pages := extraction.Pages
		result.Pages = &pages
	}
	result.Characters = utf8.RuneCountInString(extraction.Text)

	if strings.TrimSpace(extraction.Text) == "" {
		log.Warn("no text extracted", slog.Int("pages", extraction.Pages))
		return fail(result, reasonNoText)
	}

	summary, err := s.summarizer.Summarize(ctx, extraction.Text)
	if err != nil {
		log.Warn("summarization failed", slog.String("error", err.Error()))
		return fail(result, clientMessage(err, reasonSummarization))
	}

	result.Status = model.StatusOK
	result.Summary = summary
	log.Info("paper analyzed",
		slog.String("summaryKind", string(summary.Kind())),
		slog.Int("characters", result.Characters),
	)
	return result
}

func fail(result model.AnalysisResult, reason string) model.AnalysisResult {
	result.Status = model.StatusFailed
	result.Summary = nil
	result.Error = reason
	return result
}

// clientMessage returns the message of the AppError inside err, or fallback
// when err carries none. Internal detail never reaches the client.
func clientMessage(err error, fallback string) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
