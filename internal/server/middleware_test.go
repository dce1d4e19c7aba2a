package server

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0madic/go-tongue/internal/codec"
	"github.com/n0madic/go-tongue/internal/config"
)

func TestAuthMiddlewareAccessTokenValidation(t *testing.T) {
	const okStatus = http.StatusTeapot

	cases := []struct {
		name           string
		method         string
		path           string
		accessToken    string
		headers        map[string]string
		wantStatusCode int
	}{
		{
			name:           "no configured access token bypasses middleware",
			method:         http.MethodPost,
			path:           "/api/analyze",
			wantStatusCode: okStatus,
		},
		{
			name:           "non api path bypasses middleware",
			method:         http.MethodGet,
			path:           "/favicon.ico",
			accessToken:    "secret-token",
			wantStatusCode: okStatus,
		},
		{
			name:           "options requests bypass middleware",
			method:         http.MethodOptions,
			path:           "/api/analyze",
			accessToken:    "secret-token",
			wantStatusCode: okStatus,
		},
		{
			name:           "missing auth header returns unauthorized",
			method:         http.MethodPost,
			path:           "/api/analyze",
			accessToken:    "secret-token",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "api key header is not accepted",
			method:         http.MethodPost,
			path:           "/api/analyze",
			accessToken:    "secret-token",
			headers:        map[string]string{"x-goog-api-key": "secret-token"},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "valid bearer passes",
			method:         http.MethodPost,
			path:           "/api/analyze",
			accessToken:    "secret-token",
			headers:        map[string]string{"Authorization": "Bearer secret-token"},
			wantStatusCode: okStatus,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.ServerConfig{AccessToken: tc.accessToken}
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(okStatus)
			})

			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}"))
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			authMiddleware(cfg, next).ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatusCode, rec.Code)
		})
	}
}

func TestVerboseMiddlewareRecordsStatus(t *testing.T) {
	cfg := &config.ServerConfig{Verbose: true}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	verboseMiddleware(cfg, next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestMiddlewareDisabledWithoutFlags(t *testing.T) {
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	cfg := &config.ServerConfig{}

	assert.NotNil(t, verboseMiddleware(cfg, next))
	assert.NotNil(t, debugMiddleware(nil, next))
}

type countingReader struct {
	n    int
	read int
}

func (c *countingReader) Read(p []byte) (int, error) {
	if c.read >= c.n {
		return 0, io.EOF
	}
	k := min(len(p), c.n-c.read)
	for i := range p[:k] {
		p[i] = 'x'
	}
	c.read += k
	return k, nil
}

func TestDebugMiddlewareReadsBoundedPrefix(t *testing.T) {
	var dump bytes.Buffer
	codec.DumpOutput = &dump
	t.Cleanup(func() { codec.DumpOutput = os.Stderr })

	tests := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"small", 100},
		{"exactly dump limit", maxDumpBytes},
		{"large", 1 << 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dump.Reset()
			body := &countingReader{n: tt.size}
			var readBeforeHandler int
			var got []byte
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				readBeforeHandler = body.read
				var err error
				got, err = io.ReadAll(r.Body)
				require.NoError(t, err)
				require.NoError(t, r.Body.Close())
			})

			req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
			debugMiddleware(&config.ServerConfig{Debug: true}, next).ServeHTTP(httptest.NewRecorder(), req)

			assert.LessOrEqual(t, readBeforeHandler, maxDumpBytes+1)
			assert.Len(t, got, tt.size)
			assert.LessOrEqual(t, dump.Len(), maxDumpBytes+200)
			assert.Contains(t, dump.String(), "INBOUND REQUEST")
		})
	}
}
