package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultImageMIMEType is assumed when the uploaded bytes cannot be sniffed.
const DefaultImageMIMEType = "image/jpeg"

// ErrEmptyImage is returned when an analysis request carries no image bytes.
var ErrEmptyImage = errors.New("image is required")

// AnalyzePayload is the inbound JSON body of POST /api/analyze.
type AnalyzePayload struct {
	Image string `json:"image"`
}

// AnalysisRequest is one decoded image ready for the upstream model.
// The instruction and response schema are fixed and live in the prompt package.
type AnalysisRequest struct {
	Image    []byte
	MIMEType string
}

// NewAnalysisRequest copies data into a new request. An empty mimeType
// falls back to DefaultImageMIMEType.
func NewAnalysisRequest(data []byte, mimeType string) (AnalysisRequest, error) {
	if len(data) == 0 {
		return AnalysisRequest{}, ErrEmptyImage
	}
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = DefaultImageMIMEType
	}
	img := make([]byte, len(data))
	copy(img, data)
	return AnalysisRequest{Image: img, MIMEType: mimeType}, nil
}

// AnalysisResult is the structured tongue diagnosis returned by the model.
// All text is opaque natural language and is passed through untouched.
type AnalysisResult struct {
	TongueColor       string            `json:"tongueColor"`
	TongueShape       string            `json:"tongueShape"`
	CoatingColor      string            `json:"coatingColor"`
	CoatingTexture    string            `json:"coatingTexture"`
	OverallCondition  string            `json:"overallCondition"`
	TCMAnalysis       string            `json:"tcmAnalysis"`
	HealthSuggestions HealthSuggestions `json:"healthSuggestions"`
	Warnings          []string          `json:"warnings"`
}

// HealthSuggestions groups the lifestyle advice of a result.
type HealthSuggestions struct {
	Diet      []string `json:"diet"`
	Lifestyle []string `json:"lifestyle"`
	// HerbalReference is optional; nil means the model did not send one.
	HerbalReference *string `json:"herbalReference,omitempty"`
}

var (
	requiredResultFields = []string{
		"tongueColor",
		"tongueShape",
		"coatingColor",
		"coatingTexture",
		"overallCondition",
		"tcmAnalysis",
		"healthSuggestions",
		"warnings",
	}
	requiredSuggestionFields = []string{"diet", "lifestyle"}
)

// SchemaError reports a response body that does not match the result schema.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return "response does not match schema: " + e.Reason
	}
	return fmt.Sprintf("response does not match schema: field %q %s", e.Field, e.Reason)
}

// ParseAnalysisResult decodes a model response into an AnalysisResult.
// Every required field must be present and non-null; nothing is defaulted.
func ParseAnalysisResult(text []byte) (*AnalysisResult, error) {
	trimmed := bytes.TrimSpace(text)
	if len(trimmed) == 0 {
		return nil, &SchemaError{Reason: "empty body"}
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return nil, &SchemaError{Reason: "invalid JSON object: " + err.Error()}
	}
	if err := requireFields(top, "", requiredResultFields); err != nil {
		return nil, err
	}

	var suggestions map[string]json.RawMessage
	if err := json.Unmarshal(top["healthSuggestions"], &suggestions); err != nil {
		return nil, &SchemaError{Field: "healthSuggestions", Reason: "is not an object"}
	}
	if err := requireFields(suggestions, "healthSuggestions.", requiredSuggestionFields); err != nil {
		return nil, err
	}

	var result AnalysisResult
	if err := json.Unmarshal(trimmed, &result); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &SchemaError{Field: typeErr.Field, Reason: "has type " + typeErr.Value + ", want " + typeErr.Type.String()}
		}
		return nil, &SchemaError{Reason: err.Error()}
	}
	return &result, nil
}

func requireFields(obj map[string]json.RawMessage, prefix string, fields []string) error {
	for _, name := range fields {
		raw, ok := obj[name]
		if !ok {
			return &SchemaError{Field: prefix + name, Reason: "is missing"}
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return &SchemaError{Field: prefix + name, Reason: "is null"}
		}
	}
	return nil
}
