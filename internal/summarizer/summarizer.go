// Package summarizer asks a language model for a structured summary of a
// paper's text and coerces the reply into a model.Summary.
//
// The model itself sits behind the Generator interface; the production
// implementation is summarizer/openai. With no Generator configured the
// service answers every request with a warning summary and makes no call.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/paper-digest/internal/apperror"
	"github.com/sakif/paper-digest/internal/coerce"
	"github.com/sakif/paper-digest/internal/model"
)

// MaxInputChars caps the paper text sent to the model, counted in characters.
const MaxInputChars = 20000

// NotConfiguredWarning is returned in place of a summary when no model
// credential is configured.
const NotConfiguredWarning = "Summarization is not configured. Set SUMMARIZER_API_KEY to enable AI summaries."

// promptInstructions is sent ahead of every paper.
const promptInstructions = `You are summarizing an academic research paper for a busy researcher.

Respond with STRICT JSON only. Do not use markdown, code fences, or any text outside the JSON object. Do not refer to yourself.

The JSON object must have exactly these keys:
{
  "concise_summary": "2-4 sentence plain-language summary of the paper",
  "key_points": ["3-6 short bullet points with the main findings or contributions"],
  "novelty": "what is new compared to prior work",
  "limitations": "main weaknesses, assumptions, or threats to validity",
  "next_questions": ["2-4 open questions a reader should investigate next"]
}

Paper text:
`

// Generator sends a prompt to a language model and returns its raw reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service produces summaries. A nil generator means "not configured".
type Service struct {
	generator Generator
	logger    *slog.Logger
}

func New(generator Generator, logger *slog.Logger) *Service {
	return &Service{generator: generator, logger: logger}
}

// Configured reports whether a model is wired in.
func (s *Service) Configured() bool {
	return s.generator != nil
}

// Summarize returns a summary of text.
//
// RESULTS:
//   - no generator:        warning summary, nil error, no network call
//   - generator error:     error wrapping apperror.ErrSummarization
//   - empty reply:         error wrapping apperror.ErrSummarization
//   - any other reply:     the coerced summary (structured or unparsed)
//
// There are no retries.
func (s *Service) Summarize(ctx context.Context, text string) (*model.Summary, error) {
	if s.generator == nil {
		return &model.Summary{Warning: NotConfiguredWarning}, nil
	}

	prepared := PrepareText(text)
	start := time.Now()

	raw, err := s.generator.Generate(ctx, BuildPrompt(prepared))
	if err != nil {
		s.logger.Error("summarization request failed",
			slog.Int("inputChars", len([]rune(prepared))),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("summarizer: %w", asSummarizationError(err))
	}

	summary := coerce.Coerce(raw)
	if summary == nil {
		return nil, apperror.SummarizationFailed("the model returned an empty response")
	}

	s.logger.Info("summary generated",
		slog.String("kind", string(summary.Kind())),
		slog.Int("inputChars", len([]rune(prepared))),
		slog.Duration("duration", time.Since(start)),
	)
	return summary, nil
}

// asSummarizationError keeps an AppError the generator already classified
// and wraps anything else in a generic one.
func asSummarizationError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("%v: %w", err, apperror.SummarizationFailed("the summarization request failed"))
}

// PrepareText collapses every whitespace run to one space, trims the ends
// and truncates to MaxInputChars characters.
func PrepareText(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")

	runes := []rune(collapsed)
	if len(runes) > MaxInputChars {
		return string(runes[:MaxInputChars])
	}
	return collapsed
}

// BuildPrompt appends the prepared paper text to the fixed instructions.
func BuildPrompt(preparedText string) string {
	return promptInstructions + preparedText
}
