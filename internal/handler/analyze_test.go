package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sakif/paper-digest/internal/handler"
	"github.com/sakif/paper-digest/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

type fakeAnalyzer struct {
	got []model.UploadedFile
	err error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, files []model.UploadedFile) (*model.Report, error) {
	f.got = files
	if f.err != nil {
		return nil, f.err
	}
	results := make([]model.AnalysisResult, len(files))
	for i, file := range files {
		results[i] = model.AnalysisResult{
			ID:           "r" + file.OriginalName,
			OriginalName: file.OriginalName,
			Status:       model.StatusOK,
			Characters:   len(file.Data),
			Summary:      &model.Summary{ConciseSummary: "ok"},
		}
	}
	return &model.Report{GeneratedAt: time.Now().UTC(), TotalPapers: len(results), Results: results}, nil
}

type part struct {
	name        string
	contentType string
	data        string
}

func multipartRequest(t *testing.T, parts ...part) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="papers"; filename="`+p.name+`"`)
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.data))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pdfPart(name string) part {
	return part{name: name, contentType: "application/pdf", data: "%PDF-1.4 " + name}
}

// =========================================================================
// ANALYZE
// =========================================================================

func TestAnalyzeHandler_HandleAnalyze(t *testing.T) {
	t.Run("passes files through in order", func(t *testing.T) {
		fa := &fakeAnalyzer{}
		h := handler.NewAnalyzeHandler(fa, quietLogger())

		rr := httptest.NewRecorder()
		h.HandleAnalyze(rr, multipartRequest(t,
			pdfPart("a.pdf"),
			part{name: "b.PDF", contentType: "application/octet-stream", data: "%PDF-b"},
			pdfPart("c.pdf"),
		))

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		require.Len(t, fa.got, 3)
		assert.Equal(t, "a.pdf", fa.got[0].OriginalName)
		assert.Equal(t, "b.PDF", fa.got[1].OriginalName)
		assert.Equal(t, []byte("%PDF-1.4 c.pdf"), fa.got[2].Data)

		var report map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&report))
		assert.Equal(t, float64(3), report["totalPapers"])
		assert.Len(t, report["results"], 3)
	})

	tests := []struct {
		name  string
		parts []part
	}{
		{"no files", nil},
		{"too many files", []part{pdfPart("1.pdf"), pdfPart("2.pdf"), pdfPart("3.pdf"), pdfPart("4.pdf"), pdfPart("5.pdf"), pdfPart("6.pdf")}},
		{"non-pdf type", []part{pdfPart("ok.pdf"), {name: "notes.txt", contentType: "text/plain", data: "hi"}}},
		{"generic type without pdf name", []part{{name: "data.bin", contentType: "application/octet-stream", data: "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := &fakeAnalyzer{}
			h := handler.NewAnalyzeHandler(fa, quietLogger())

			rr := httptest.NewRecorder()
			h.HandleAnalyze(rr, multipartRequest(t, tt.parts...))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Nil(t, fa.got, "analyzer must not run for a rejected request")
		})
	}

	t.Run("not multipart", func(t *testing.T) {
		h := handler.NewAnalyzeHandler(&fakeAnalyzer{}, quietLogger())

		rr := httptest.NewRecorder()
		h.HandleAnalyze(rr, postJSON("/api/analyze", `{}`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unexpected error is a generic 500", func(t *testing.T) {
		h := handler.NewAnalyzeHandler(&fakeAnalyzer{err: errors.New("disk full at /tmp/x")}, quietLogger())

		rr := httptest.NewRecorder()
		h.HandleAnalyze(rr, multipartRequest(t, pdfPart("a.pdf")))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "disk full")
	})
}

// =========================================================================
// EXPORT / REPORT
// =========================================================================

const exportBody = `{"results":[
	{"id":"1","originalName":"attention.pdf","status":"ok","pages":11,"characters":100,
	 "summary":{"concise_summary":"Short.","key_points":["a"],"novelty":"n","limitations":"l","next_questions":["q"]}},
	{"id":"2","originalName":"broken.pdf","status":"failed","pages":null,"characters":0,"summary":null,
	 "error":"could not extract text from PDF"}
]}`

func TestAnalyzeHandler_HandleExport(t *testing.T) {
	h := handler.NewAnalyzeHandler(&fakeAnalyzer{}, quietLogger())

	rr := httptest.NewRecorder()
	h.HandleExport(rr, postJSON("/api/export", exportBody))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `attachment; filename="paper-summaries-`)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `.xlsx"`)

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"attention", "broken"}, f.GetSheetList())
}

func TestAnalyzeHandler_HandleExportRejectsEmpty(t *testing.T) {
	h := handler.NewAnalyzeHandler(&fakeAnalyzer{}, quietLogger())

	for _, body := range []string{`{}`, `{"results":[]}`, `not json`} {
		rr := httptest.NewRecorder()
		h.HandleExport(rr, postJSON("/api/export", body))
		assert.Equal(t, http.StatusBadRequest, rr.Code, "body %s", body)
	}
}

func TestAnalyzeHandler_HandleReport(t *testing.T) {
	h := handler.NewAnalyzeHandler(&fakeAnalyzer{}, quietLogger())

	rr := httptest.NewRecorder()
	h.HandleReport(rr, postJSON("/api/report", exportBody))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	body := rr.Body.String()
	assert.True(t, strings.HasPrefix(body, "RESEARCH PAPER SUMMARIES"))
	assert.Contains(t, body, "Total papers: 2")
	assert.Contains(t, body, "could not extract text from PDF")
}

// =========================================================================
// HEALTH / ERRORS
// =========================================================================

type pinger struct{ err error }

func (p pinger) Ping(ctx context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := handler.NewHealthHandler(map[string]handler.Pinger{"users": pinger{}, "sessions": pinger{}},
			func() bool { return true }, quietLogger())

		rr := httptest.NewRecorder()
		h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var body map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, true, body["ready"])
		assert.NotEmpty(t, body["timestamp"])
	})

	t.Run("store down", func(t *testing.T) {
		h := handler.NewHealthHandler(map[string]handler.Pinger{"users": pinger{err: errors.New("down")}},
			func() bool { return false }, quietLogger())

		rr := httptest.NewRecorder()
		h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		var body map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "degraded", body["status"])
		assert.Equal(t, false, body["ready"])
	})
}

func TestHandleNotFound(t *testing.T) {
	t.Run("api callers get json", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.HandleNotFound(rr, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.JSONEq(t, `{"error":"not_found","message":"no page at /api/nope"}`, rr.Body.String())
	})

	t.Run("browsers are redirected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard/missing", nil)
		req.Header.Set("Accept", "text/html")
		rr := httptest.NewRecorder()
		handler.HandleNotFound(rr, req)

		require.Equal(t, http.StatusSeeOther, rr.Code)
		loc, err := url.Parse(rr.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, handler.ErrorPagePath, loc.Path)
		assert.Equal(t, "not_found", loc.Query().Get("type"))
		assert.Equal(t, "404", loc.Query().Get("code"))
		assert.Equal(t, "no page at /dashboard/missing", loc.Query().Get("message"))
	})
}

func TestErrorPage_Fallback(t *testing.T) {
	page := handler.ErrorPage("")

	rr := httptest.NewRecorder()
	page(rr, httptest.NewRequest(http.MethodGet, "/error?type=not_found&code=404&message=gone", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Error 404: gone\n", rr.Body.String())

	rr = httptest.NewRecorder()
	page(rr, httptest.NewRequest(http.MethodGet, "/error?code=abc", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
