package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0madic/go-tongue/internal/config"
)

func TestNewBackendSelectsImplementation(t *testing.T) {
	cfg := &config.ServerConfig{
		Backend:         config.BackendGemini,
		Model:           "gemini-2.0-flash",
		BaseURL:         config.DefaultBaseURL,
		UpstreamTimeout: 30 * time.Second,
	}

	b, err := NewBackend(cfg)
	require.NoError(t, err)
	gemini, ok := b.(*GeminiClient)
	require.True(t, ok)
	assert.Equal(t, "gemini", b.Name())
	assert.Equal(t, "gemini-2.0-flash", gemini.Model)
	assert.Equal(t, 30*time.Second, gemini.HTTPClient.Timeout)

	cfg.Backend = config.BackendOpenAI
	b, err = NewBackend(cfg)
	require.NoError(t, err)
	oai, ok := b.(*OpenAIClient)
	require.True(t, ok)
	assert.Equal(t, config.DefaultBaseURL+"/v1beta/openai/", oai.BaseURL)

	cfg.Backend = "claude"
	_, err = NewBackend(cfg)
	assert.Error(t, err)
}

func TestNewHTTPClientDebugWrapsTransport(t *testing.T) {
	plain := newHTTPClient(time.Second, false)
	assert.Equal(t, http.DefaultTransport, plain.Transport)

	debug := newHTTPClient(time.Second, true)
	_, ok := debug.Transport.(*debugTransport)
	assert.True(t, ok)
}

func TestDebugTransportPassesCredentialsThrough(t *testing.T) {
	var gotKey, gotAgent string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotAgent = r.Header.Get("User-Agent")
		gotBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &debugTransport{base: srv.Client().Transport}}
	c := NewGeminiClient(srv.URL, "m", client, false)
	out, err := c.Generate(context.Background(), "secret-key-9999", testCall())
	require.NoError(t, err)

	assert.Equal(t, "ok", string(out))
	assert.Equal(t, "secret-key-9999", gotKey, "masking must only affect the dump")
	assert.True(t, strings.HasPrefix(gotAgent, "go-tongue/"))
	assert.NotEmpty(t, gotBody)
}

func TestTruncateBody(t *testing.T) {
	short := []byte(`{"a":1}`)
	assert.Equal(t, short, truncateBody(short))

	long := []byte(strings.Repeat("x", maxDebugBodyBytes*2))
	assert.Len(t, truncateBody(long), maxDebugBodyBytes)
}

func TestUpstreamErrorMessage(t *testing.T) {
	err := &UpstreamError{
		StatusCode: http.StatusServiceUnavailable,
		Body:       []byte(`{"error":{"code":503,"message":"The model is overloaded."}}`),
	}
	assert.Equal(t, "Upstream returned HTTP 503 Service Unavailable: The model is overloaded.", err.Error())
}
