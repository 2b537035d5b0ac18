package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/sakif/paper-digest/internal/apperror"
	"github.com/sakif/paper-digest/internal/model"
	"github.com/sakif/paper-digest/internal/report"
	"github.com/sakif/paper-digest/internal/service"
)

// PapersField is the multipart field that carries uploaded PDFs.
const PapersField = "papers"

const (
	// multipartMemory is how much of an upload ParseMultipartForm keeps in
	// memory; the rest spills to temporary files.
	multipartMemory = 32 << 20

	maxUploadBody = service.MaxFilesPerRequest*service.MaxFileBytes + 1<<20
	maxExportBody = 16 << 20

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Analyzer runs the analysis pipeline. service.AnalysisService satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, files []model.UploadedFile) (*model.Report, error)
}

// AnalyzeHandler serves upload analysis and the two download formats.
type AnalyzeHandler struct {
	analyzer Analyzer
	logger   *slog.Logger
	now      func() time.Time
}

func NewAnalyzeHandler(analyzer Analyzer, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer, logger: logger, now: time.Now}
}

// HandleAnalyze accepts up to five PDFs and returns one result per file.
//
// HTTP: POST /api/analyze (multipart/form-data, field "papers")
// Auth: Required
//
// The whole request is rejected with 400 when a part is not a PDF, is larger
// than 20MB, or there are no parts or more than five. Once the files are
// accepted, problems with an individual file become a failed result.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, apperror.ValidationFailed(PapersField, "upload is too large"))
			return
		}
		h.logger.Warn("invalid multipart body", slog.String("error", err.Error()))
		writeError(w, r, apperror.ValidationFailed(PapersField, "request must be multipart/form-data with PDF files"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files, err := readUploads(r.MultipartForm.File[PapersField])
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), files)
	if err != nil {
		h.logger.Error("analysis failed", slog.String("error", err.Error()))
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// readUploads validates the uploaded parts and reads them into memory.
func readUploads(headers []*multipart.FileHeader) ([]model.UploadedFile, error) {
	switch {
	case len(headers) == 0:
		return nil, apperror.ValidationFailed(PapersField, "upload at least one PDF")
	case len(headers) > service.MaxFilesPerRequest:
		return nil, apperror.ValidationFailed(PapersField,
			fmt.Sprintf("upload at most %d PDFs at a time", service.MaxFilesPerRequest))
	}

	files := make([]model.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > service.MaxFileBytes {
			return nil, apperror.ValidationFailed(PapersField,
				fmt.Sprintf("%s exceeds the 20MB limit", fh.Filename))
		}

		mimeType := fh.Header.Get("Content-Type")
		if !isPDFUpload(fh.Filename, mimeType) {
			return nil, apperror.ValidationFailed(PapersField,
				fmt.Sprintf("%s is not a PDF; only PDF files are accepted", fh.Filename))
		}

		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("handler: reading upload %q: %w", fh.Filename, err)
		}

		files = append(files, model.UploadedFile{
			OriginalName: filepath.Base(fh.Filename),
			MimeType:     mimeType,
			Data:         data,
		})
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// isPDFUpload accepts a part declared as application/pdf, or one with a
// .pdf name when the client sent a generic type.
func isPDFUpload(name, mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "application/pdf" {
		return true
	}
	generic := mimeType == "" || mimeType == "application/octet-stream"
	return generic && strings.EqualFold(filepath.Ext(name), ".pdf")
}

// exportRequest is the body of both download endpoints.
type exportRequest struct {
	GeneratedAt *time.Time             `json:"generatedAt"`
	Results     []model.AnalysisResult `json:"results"`
}

func (h *AnalyzeHandler) decodeExport(w http.ResponseWriter, r *http.Request) (*exportRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxExportBody)

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid export body", slog.String("error", err.Error()))
		writeError(w, r, apperror.ValidationFailed("results", "request body must be a JSON object with results"))
		return nil, false
	}
	if len(req.Results) == 0 {
		writeError(w, r, apperror.ValidationFailed("results", "results are required"))
		return nil, false
	}
	return &req, true
}

// HandleExport returns the results as an .xlsx workbook, one sheet per paper.
//
// HTTP: POST /api/export
// Body: {"results": [AnalysisResult, ...]}
// Auth: Required
func (h *AnalyzeHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeExport(w, r)
	if !ok {
		return
	}

	data, err := report.Workbook(req.Results)
	if err != nil {
		h.logger.Error("building workbook failed", slog.String("error", err.Error()))
		writeError(w, r, err)
		return
	}

	h.writeAttachment(w, xlsxContentType, "xlsx", data)
}

// HandleReport returns the results as a plain-text report.
//
// HTTP: POST /api/report
// Body: {"generatedAt": "...", "results": [AnalysisResult, ...]}
// Auth: Required
func (h *AnalyzeHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeExport(w, r)
	if !ok {
		return
	}

	generated := h.now().UTC()
	if req.GeneratedAt != nil {
		generated = *req.GeneratedAt
	}

	text := report.Text(&model.Report{
		GeneratedAt: generated,
		TotalPapers: len(req.Results),
		Results:     req.Results,
	})

	h.writeAttachment(w, "text/plain; charset=utf-8", "txt", []byte(text))
}

func (h *AnalyzeHandler) writeAttachment(w http.ResponseWriter, contentType, ext string, data []byte) {
	name := fmt.Sprintf("paper-summaries-%s.%s", h.now().UTC().Format("2006-01-02"), ext)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("writing attachment failed", slog.String("error", err.Error()))
	}
}
