package upstream

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"golang.org/x/oauth2"

	"github.com/n0madic/go-tongue/internal/config"
	"github.com/n0madic/go-tongue/internal/prompt"
)

// OpenAIClient talks to an OpenAI-compatible chat completions API. Gemini
// serves one under /v1beta/openai/.
type OpenAIClient struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Verbose    bool
}

// NewOpenAIClient creates an OpenAI-compatible backend.
func NewOpenAIClient(baseURL, model string, httpClient *http.Client, verbose bool) *OpenAIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if strings.TrimSpace(model) == "" {
		model = config.DefaultModel
	}
	return &OpenAIClient{BaseURL: baseURL, Model: model, HTTPClient: httpClient, Verbose: verbose}
}

func (c *OpenAIClient) Name() string { return "openai" }

// authorizedClient returns an HTTP client that sends credential as a bearer
// token, layered over the configured transport.
func (c *OpenAIClient) authorizedClient(credential string) *http.Client {
	base := c.HTTPClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout: c.HTTPClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential, TokenType: "Bearer"}),
			Base:   base,
		},
	}
}

// Generate sends one chat completion with the image as a data URL and
// returns the assistant message content.
func (c *OpenAIClient) Generate(ctx context.Context, credential string, call Call) ([]byte, error) {
	client := openai.NewClient(
		option.WithBaseURL(c.BaseURL),
		option.WithHTTPClient(c.authorizedClient(credential)),
		option.WithMaxRetries(0),
		option.WithHeader("User-Agent", config.UserAgent()),
	)

	dataURL := "data:" + call.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(call.Image)
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(call.SystemInstruction),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
				openai.TextContentPart(call.UserText),
			}),
		},
	}
	if call.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   prompt.SchemaName,
					Schema: call.Schema,
					Strict: openai.Bool(false),
				},
			},
		}
	}

	if c.Verbose {
		slog.Info("upstream.request",
			"backend", c.Name(),
			"model", c.Model,
			"mime_type", call.MIMEType,
			"image_bytes", len(call.Image),
		)
	}

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			upErr := &UpstreamError{StatusCode: apiErr.StatusCode, Body: []byte(apiErr.RawJSON())}
			if apiErr.Response != nil {
				upErr.Headers = apiErr.Response.Header
			}
			return nil, upErr
		}
		return nil, fmt.Errorf("upstream OpenAI-compatible request failed: %w", err)
	}
	if c.Verbose {
		slog.Info("upstream.response", "backend", c.Name(), "id", completion.ID, "choices", len(completion.Choices))
	}

	if len(completion.Choices) == 0 {
		return nil, ErrNoCandidateText
	}
	text := completion.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		if reason := completion.Choices[0].FinishReason; reason != "" {
			return nil, fmt.Errorf("%w: finish_reason=%s", ErrNoCandidateText, reason)
		}
		return nil, ErrNoCandidateText
	}
	return []byte(text), nil
}
