package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryKind(t *testing.T) {
	tests := []struct {
		name    string
		summary Summary
		want    SummaryKind
	}{
		{"schema", Summary{ConciseSummary: "x", KeyPoints: []string{"a"}}, SummarySchema},
		{"warning", Summary{Warning: "model not configured"}, SummaryWarning},
		{"unparsed", Summary{UnparsedSummary: "raw", ParsingNote: "note"}, SummaryUnparsed},
		{"empty counts as schema", Summary{}, SummarySchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.summary.Kind())
		})
	}
}

func TestSummaryMarshalJSON_EmitsOnlyItsShape(t *testing.T) {
	t.Run("warning", func(t *testing.T) {
		b, err := json.Marshal(Summary{Warning: "no key"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"warning":"no key"}`, string(b))
	})

	t.Run("unparsed", func(t *testing.T) {
		b, err := json.Marshal(Summary{UnparsedSummary: "raw text", ParsingNote: "note"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"unparsed_summary":"raw text","parsing_note":"note"}`, string(b))
	})

	t.Run("schema with nil lists", func(t *testing.T) {
		b, err := json.Marshal(Summary{ConciseSummary: "short"})
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"concise_summary": "short",
			"key_points": [],
			"novelty": "",
			"limitations": "",
			"next_questions": []
		}`, string(b))
	})

	t.Run("empty", func(t *testing.T) {
		b, err := json.Marshal(Summary{})
		require.NoError(t, err)
		assert.Equal(t, "{}", string(b))
	})
}

func TestAnalysisResult_DecodesAnySummaryShape(t *testing.T) {
	body := `[
		{"id":"1","originalName":"a.pdf","status":"ok","pages":3,"characters":10,
		 "summary":{"concise_summary":"c","key_points":["k"],"novelty":"n","limitations":"l","next_questions":["q"]}},
		{"id":"2","originalName":"b.pdf","status":"ok","pages":null,"characters":5,
		 "summary":{"warning":"w"}},
		{"id":"3","originalName":"c.pdf","status":"failed","pages":null,"characters":0,
		 "summary":null,"error":"no extractable text found"}
	]`

	var results []AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(body), &results))
	require.Len(t, results, 3)

	assert.Equal(t, SummarySchema, results[0].Summary.Kind())
	require.NotNil(t, results[0].Pages)
	assert.Equal(t, 3, *results[0].Pages)

	assert.Equal(t, SummaryWarning, results[1].Summary.Kind())
	assert.Nil(t, results[1].Pages)

	assert.True(t, results[2].Failed())
	assert.Nil(t, results[2].Summary)
}
