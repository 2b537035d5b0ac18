package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/paper-digest/internal/apperror"
)

// fakeAPI serves /chat/completions and records the last request body.
func fakeAPI(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const okReply = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"model": "gpt-4o-mini",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"concise_summary\": \"hi\"}"}, "finish_reason": "stop"}]
}`

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultMaxTokens, c.maxTokens)
}

func TestGenerate_ReturnsFirstChoice(t *testing.T) {
	var seen map[string]any
	srv := fakeAPI(t, http.StatusOK, okReply, &seen)

	c, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, JSONMode: true})
	require.NoError(t, err)

	got, err := c.Generate(context.Background(), "summarize this")

	require.NoError(t, err)
	assert.Equal(t, `{"concise_summary": "hi"}`, got)
	assert.Equal(t, DefaultModel, seen["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, seen["response_format"])

	messages, ok := seen["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "summarize this", messages[1].(map[string]any)["content"])
}

func TestGenerate_NoChoices(t *testing.T) {
	srv := fakeAPI(t, http.StatusOK, `{"id": "x", "choices": []}`, nil)
	c, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "p")
	require.Error(t, err)
}

func TestGenerate_QuotaExceeded(t *testing.T) {
	srv := fakeAPI(t, http.StatusTooManyRequests,
		`{"error": {"message": "You exceeded your current quota", "type": "insufficient_quota", "code": "insufficient_quota"}}`, nil)
	c, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "p")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrSummarization))
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "quota")
}

func TestGenerate_ServerError(t *testing.T) {
	srv := fakeAPI(t, http.StatusInternalServerError, `{"error": {"message": "boom", "type": "server_error"}}`, nil)
	c, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "p")

	require.Error(t, err)
	assert.False(t, errors.Is(err, apperror.ErrSummarization))
}

func TestBuildRequest_TokenField(t *testing.T) {
	tests := []struct {
		model          string
		wantCompletion bool
	}{
		{"gpt-4o-mini", false},
		{"gpt-4.1", false},
		{"o3-mini", true},
		{"o1", true},
		{"gpt-5-nano", true},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			c, err := NewClient(Config{APIKey: "k", Model: tt.model, MaxTokens: 512})
			require.NoError(t, err)

			req := c.buildRequest("p")

			if tt.wantCompletion {
				assert.Equal(t, 512, req.MaxCompletionTokens)
				assert.Zero(t, req.MaxTokens)
			} else {
				assert.Equal(t, 512, req.MaxTokens)
				assert.Zero(t, req.MaxCompletionTokens)
			}
			assert.Nil(t, req.ResponseFormat)
		})
	}
}
