package dispatch

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/n0madic/go-tongue/internal/keypool"
	"github.com/n0madic/go-tongue/internal/types"
)

var (
	ErrEmptyPool  = keypool.ErrEmptyPool
	ErrEmptyImage = types.ErrEmptyImage
)

// exhaustedMessage is used when retries ran out without a recorded cause.
const exhaustedMessage = "all retry attempts failed"

// FatalUpstreamError is a non-retryable upstream failure.
type FatalUpstreamError struct {
	Err error
}

func (e *FatalUpstreamError) Error() string {
	if e.Err == nil {
		return "upstream request failed"
	}
	return e.Err.Error()
}

func (e *FatalUpstreamError) Unwrap() error { return e.Err }

// MalformedResponseError means the upstream answered but the body does not
// match the analysis result schema.
type MalformedResponseError struct {
	Err  error
	Body []byte
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// RetryExhaustedError reports that every attempt failed transiently.
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	if e.Last == nil {
		return exhaustedMessage
	}
	return e.Last.Error()
}

func (e *RetryExhaustedError) Unwrap() error { return e.Last }

// HTTPStatus maps an Analyze error to the status code reported to clients.
func HTTPStatus(err error) int {
	var (
		exhausted *RetryExhaustedError
		malformed *MalformedResponseError
		fatal     *FatalUpstreamError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrEmptyImage):
		return http.StatusBadRequest
	case errors.As(err, &exhausted):
		return http.StatusServiceUnavailable
	case errors.As(err, &malformed), errors.As(err, &fatal), errors.Is(err, ErrEmptyPool):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
