// Package imagedata decodes uploaded images from their base64 transport form.
package imagedata

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/n0madic/go-tongue/internal/types"
)

var (
	ErrMissingImage = errors.New("image is required")
	ErrInvalidImage = errors.New("image must be base64-encoded")
)

var encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// Decode turns a base64 string, optionally wrapped as a data URL, into an
// AnalysisRequest. The MIME type is sniffed from the bytes, then taken from
// the data URL header, then defaults to JPEG.
func Decode(encoded string) (types.AnalysisRequest, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return types.AnalysisRequest{}, ErrMissingImage
	}

	declared := ""
	if strings.HasPrefix(encoded, "data:") {
		header, payload, ok := strings.Cut(encoded, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return types.AnalysisRequest{}, ErrInvalidImage
		}
		declared = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		encoded = payload
	}
	encoded = stripWhitespace(encoded)
	if encoded == "" {
		return types.AnalysisRequest{}, ErrMissingImage
	}

	data, err := decodeAny(encoded)
	if err != nil {
		return types.AnalysisRequest{}, ErrInvalidImage
	}
	return types.NewAnalysisRequest(data, DetectMIMEType(data, declared))
}

// DetectMIMEType picks the MIME type sent upstream for data.
func DetectMIMEType(data []byte, declared string) string {
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	if declared = strings.ToLower(strings.TrimSpace(declared)); strings.HasPrefix(declared, "image/") {
		return declared
	}
	return types.DefaultImageMIMEType
}

func decodeAny(s string) ([]byte, error) {
	var lastErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func stripWhitespace(s string) string {
	if !strings.ContainsAny(s, " \t\r\n") {
		return s
	}
	return strings.Join(strings.Fields(s), "")
}
