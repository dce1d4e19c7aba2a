package upstream

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"

	"github.com/n0madic/go-tongue/internal/codec"
	"github.com/n0madic/go-tongue/internal/keypool"
)

// maxDebugBodyBytes bounds body dumps; requests carry a whole base64 image.
const maxDebugBodyBytes = 2048

var credentialHeaders = []string{"x-goog-api-key", "Authorization"}

// debugTransport dumps upstream requests and responses to stderr with
// credentials masked and bodies truncated.
type debugTransport struct {
	base http.RoundTripper
}

func (t *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.dumpRequest(req)
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		slog.Error("upstream.roundtrip.failed", "url", redactURL(req), "error", err)
		return nil, err
	}
	t.dumpResponse(resp)
	return resp, nil
}

func (t *debugTransport) dumpRequest(req *http.Request) {
	clone := req.Clone(req.Context())
	for _, h := range credentialHeaders {
		if v := clone.Header.Get(h); v != "" {
			clone.Header.Set(h, keypool.Mask(v))
		}
	}
	var body []byte
	if req.GetBody != nil {
		if rc, err := req.GetBody(); err == nil {
			body, _ = io.ReadAll(rc)
			rc.Close()
		}
	}
	clone.Body = nil
	head, err := httputil.DumpRequestOut(clone, false)
	if err != nil {
		slog.Error("upstream.request.dump.failed", "error", err)
		return
	}
	codec.WriteDebugDumpBlock("UPSTREAM REQUEST", append(head, truncateBody(body)...))
}

func (t *debugTransport) dumpResponse(resp *http.Response) {
	head, err := httputil.DumpResponse(resp, false)
	if err != nil {
		slog.Error("upstream.response.dump.failed", "error", err)
		return
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		slog.Error("upstream.response.read.failed", "error", err)
	}
	codec.WriteDebugDumpBlock("UPSTREAM RESPONSE", append(head, truncateBody(body)...))
}

func truncateBody(body []byte) []byte {
	if len(body) <= maxDebugBodyBytes {
		return body
	}
	return []byte(codec.CompactBodyPreview(body[:maxDebugBodyBytes], maxDebugBodyBytes))
}

func redactURL(req *http.Request) string {
	if req == nil || req.URL == nil {
		return ""
	}
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}
