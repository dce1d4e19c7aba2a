package dispatch

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/n0madic/go-tongue/internal/codec"
	"github.com/n0madic/go-tongue/internal/upstream"
)

// Class tells the retry loop whether another credential may succeed.
type Class int

const (
	Fatal Class = iota
	Transient
)

func (c Class) String() string {
	if c == Transient {
		return "transient"
	}
	return "fatal"
}

// transientMarkers are matched case-insensitively against error messages
// that carry no structured status.
var transientMarkers = []string{"503", "overloaded", "429", "rate limit", "unavailable"}

// Classify decides whether err is worth retrying with the next key.
func Classify(err error) Class {
	if err == nil {
		return Fatal
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Fatal
	}

	msg := err.Error()
	var upErr *upstream.UpstreamError
	if errors.As(err, &upErr) {
		switch upErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return Transient
		}
		// Headers such as request ids are not part of the failure.
		msg = codec.FormatUpstreamError(upErr.StatusCode, upErr.Body)
	}

	msg = strings.ToLower(msg)
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return Transient
		}
	}
	return Fatal
}
