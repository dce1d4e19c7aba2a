package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/n0madic/go-tongue/internal/codec"
	"github.com/n0madic/go-tongue/internal/config"
)

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 32 << 20

// ErrNoCandidateText is returned when the upstream answered 2xx without any text.
var ErrNoCandidateText = errors.New("upstream returned no candidate text")

// Call is one analysis request as sent to a backend.
type Call struct {
	SystemInstruction string
	UserText          string
	Image             []byte
	MIMEType          string
	// Schema is a JSON Schema document; backends convert it as needed.
	Schema map[string]any
}

// Backend issues one generation call with a single credential.
// Implementations must be safe for concurrent use.
type Backend interface {
	Name() string
	Generate(ctx context.Context, credential string, call Call) ([]byte, error)
}

// UpstreamError represents a failed upstream request with error details.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

func (e *UpstreamError) Error() string {
	return codec.FormatUpstreamErrorWithHeaders(e.StatusCode, e.Body, e.Headers)
}

// NewBackend builds the backend selected in cfg.
func NewBackend(cfg *config.ServerConfig) (Backend, error) {
	httpClient := newHTTPClient(cfg.UpstreamTimeout, cfg.Debug)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", config.BackendGemini:
		return NewGeminiClient(cfg.BaseURL, cfg.Model, httpClient, cfg.Verbose), nil
	case config.BackendOpenAI:
		return NewOpenAIClient(openAIBaseURL(cfg.BaseURL), cfg.Model, httpClient, cfg.Verbose), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", cfg.Backend, config.BackendGemini, config.BackendOpenAI)
	}
}

func newHTTPClient(timeout time.Duration, debug bool) *http.Client {
	var transport http.RoundTripper = http.DefaultTransport
	if debug {
		transport = &debugTransport{base: transport}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// openAIBaseURL maps the Gemini API root to its OpenAI-compatible prefix.
// A base URL that already points at an OpenAI-style API is kept.
func openAIBaseURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = config.DefaultBaseURL
	}
	if strings.Contains(base, "generativelanguage.googleapis.com") && !strings.Contains(base, "/openai") {
		return base + "/v1beta/openai/"
	}
	return base + "/"
}
