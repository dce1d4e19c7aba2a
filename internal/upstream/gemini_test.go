package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/n0madic/go-tongue/internal/config"
	"github.com/n0madic/go-tongue/internal/prompt"
)

func testCall() Call {
	return Call{
		SystemInstruction: prompt.SystemInstruction(),
		UserText:          prompt.UserText,
		Image:             []byte{0xFF, 0xD8, 0xFF},
		MIMEType:          "image/jpeg",
		Schema:            prompt.ResponseSchema(),
	}
}

func TestGeminiGenerateRequestShape(t *testing.T) {
	var gotPath, gotKey string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	c := NewGeminiClient(srv.URL+"/", "gemini-1.5-flash", srv.Client(), false)
	out, err := c.Generate(context.Background(), "key-123", testCall())
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(out))

	assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", gotPath)
	assert.Equal(t, "key-123", gotKey)

	body := gjson.ParseBytes(gotBody)
	assert.Contains(t, body.Get("systemInstruction.parts.0.text").String(), "舌诊")
	assert.Equal(t, "user", body.Get("contents.0.role").String())
	assert.Equal(t, "image/jpeg", body.Get("contents.0.parts.0.inlineData.mimeType").String())
	assert.Equal(t, "/9j/", body.Get("contents.0.parts.0.inlineData.data").String())
	assert.Equal(t, prompt.UserText, body.Get("contents.0.parts.1.text").String())
	assert.Equal(t, "application/json", body.Get("generationConfig.responseMimeType").String())
	assert.Equal(t, "OBJECT", body.Get("generationConfig.responseSchema.type").String())
	assert.Len(t, body.Get("generationConfig.responseSchema.required").Array(), 8)
}

func TestGeminiGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error":{"code":503,"message":"The model is overloaded. Please try again later.","status":"UNAVAILABLE"}}`)
	}))
	defer srv.Close()

	c := NewGeminiClient(srv.URL, "", srv.Client(), false)
	assert.Equal(t, config.DefaultModel, c.Model)

	_, err := c.Generate(context.Background(), "k", testCall())
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusServiceUnavailable, upErr.StatusCode)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, strings.ToLower(err.Error()), "overloaded")
}

func TestGeminiGenerateNoCandidateText(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{"blocked prompt", `{"promptFeedback":{"blockReason":"SAFETY"}}`, "SAFETY"},
		{"empty candidates", `{"candidates":[]}`, "no candidate text"},
		{"finish reason only", `{"candidates":[{"finishReason":"RECITATION"}]}`, "RECITATION"},
		{"not json", `<html>oops</html>`, "not JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewGeminiClient(srv.URL, "m", srv.Client(), false)
			_, err := c.Generate(context.Background(), "k", testCall())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNoCandidateText), err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestGeminiGenerateHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewGeminiClient(srv.URL, "m", srv.Client(), false)
	_, err := c.Generate(ctx, "k", testCall())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGeminiRequestOmitsEmptySystemInstruction(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{}"}]}}]}`)
	}))
	defer srv.Close()

	call := testCall()
	call.SystemInstruction = ""
	_, err := NewGeminiClient(srv.URL, "m", srv.Client(), false).Generate(context.Background(), "k", call)
	require.NoError(t, err)
	_, has := got["systemInstruction"]
	assert.False(t, has)
}
