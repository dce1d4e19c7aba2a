package upstream

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/n0madic/go-tongue/internal/codec"
	"github.com/n0madic/go-tongue/internal/config"
	"github.com/n0madic/go-tongue/internal/prompt"
)

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Verbose    bool
}

// NewGeminiClient creates a Gemini backend.
func NewGeminiClient(baseURL, model string, httpClient *http.Client, verbose bool) *GeminiClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if strings.TrimSpace(model) == "" {
		model = config.DefaultModel
	}
	return &GeminiClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Model:      model,
		HTTPClient: httpClient,
		Verbose:    verbose,
	}
}

func (c *GeminiClient) Name() string { return "gemini" }

func (c *GeminiClient) endpoint() string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.BaseURL, url.PathEscape(c.Model))
}

// Generate sends the image and instruction and returns the first candidate's text.
func (c *GeminiClient) Generate(ctx context.Context, credential string, call Call) ([]byte, error) {
	payload := geminiRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{
					MimeType: call.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(call.Image),
				}},
				{Text: call.UserText},
			},
		}},
		GenerationConfig: generationConfig{
			ResponseMimeType: prompt.ResponseMIMEType,
			ResponseSchema:   prompt.GeminiSchema(call.Schema),
		},
	}
	if call.SystemInstruction != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: call.SystemInstruction}}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", credential)
	httpReq.Header.Set("User-Agent", config.UserAgent())

	if c.Verbose {
		slog.Info("upstream.request",
			"backend", c.Name(),
			"model", c.Model,
			"mime_type", call.MIMEType,
			"image_bytes", len(call.Image),
			"instructions_chars", len(call.SystemInstruction),
		)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream Gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}
	if c.Verbose {
		attrs := []any{"backend", c.Name(), "status", resp.StatusCode}
		if requestID := codec.UpstreamRequestID(resp.Header); requestID != "" {
			attrs = append(attrs, "request_id", requestID)
		}
		slog.Info("upstream.response", attrs...)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: raw, Headers: resp.Header}
	}
	return candidateText(raw)
}

// candidateText joins the text parts of the first candidate.
func candidateText(raw []byte) ([]byte, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: body is not JSON: %s", ErrNoCandidateText, codec.CompactBodyPreview(raw, 120))
	}
	if reason := gjson.GetBytes(raw, "promptFeedback.blockReason").String(); reason != "" {
		return nil, fmt.Errorf("%w: prompt blocked (%s)", ErrNoCandidateText, reason)
	}

	var sb strings.Builder
	for _, t := range gjson.GetBytes(raw, "candidates.0.content.parts.#.text").Array() {
		sb.WriteString(t.String())
	}
	if sb.Len() == 0 {
		if finish := gjson.GetBytes(raw, "candidates.0.finishReason").String(); finish != "" {
			return nil, fmt.Errorf("%w: finishReason=%s", ErrNoCandidateText, finish)
		}
		return nil, ErrNoCandidateText
	}
	return []byte(sb.String()), nil
}
