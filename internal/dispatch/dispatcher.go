package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/n0madic/go-tongue/internal/codec"
	"github.com/n0madic/go-tongue/internal/keypool"
	"github.com/n0madic/go-tongue/internal/metrics"
	"github.com/n0madic/go-tongue/internal/prompt"
	"github.com/n0madic/go-tongue/internal/types"
	"github.com/n0madic/go-tongue/internal/upstream"
)

const (
	// DefaultBackoffBase is the delay after the first transient failure.
	DefaultBackoffBase = time.Second

	minAttempts       = 3
	bodyPreviewLength = 240
)

// Dispatcher sends one analysis to the backend, rotating credentials on
// transient failures with linear backoff.
type Dispatcher struct {
	pool    *keypool.Pool
	backend upstream.Backend

	BackoffBase time.Duration
	// Sleep waits between attempts; it must return early with ctx's error.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New builds a dispatcher over a shared pool. The pool may be empty; Analyze
// then fails with ErrEmptyPool without contacting the backend.
func New(pool *keypool.Pool, backend upstream.Backend) *Dispatcher {
	metrics.PoolSize.Set(float64(pool.Len()))
	return &Dispatcher{
		pool:        pool,
		backend:     backend,
		BackoffBase: DefaultBackoffBase,
		Sleep:       sleepContext,
	}
}

// Pool returns the credential pool the dispatcher rotates through.
func (d *Dispatcher) Pool() *keypool.Pool { return d.pool }

// MaxAttempts is the attempt budget for a pool of n keys.
func MaxAttempts(n int) int {
	return max(n*2, minAttempts)
}

// Analyze runs one tongue analysis. No partial result is ever returned.
func (d *Dispatcher) Analyze(ctx context.Context, req types.AnalysisRequest) (result *types.AnalysisResult, err error) {
	start := time.Now()
	defer func() {
		metrics.AnalyzeDurationSeconds.WithLabelValues(resultLabel(err)).Observe(time.Since(start).Seconds())
	}()

	if len(req.Image) == 0 {
		return nil, ErrEmptyImage
	}
	if d.pool.Len() == 0 {
		return nil, ErrEmptyPool
	}

	call := upstream.Call{
		SystemInstruction: prompt.SystemInstruction(),
		UserText:          prompt.UserText,
		Image:             req.Image,
		MIMEType:          req.MIMEType,
		Schema:            prompt.ResponseSchema(),
	}

	traceID := uuid.NewString()
	maxAttempts := MaxAttempts(d.pool.Len())
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		credential, err := d.pool.Current()
		if err != nil {
			return nil, err
		}
		keyIndex := d.pool.Cursor()

		text, err := d.backend.Generate(ctx, credential, call)
		if err == nil {
			parsed, parseErr := types.ParseAnalysisResult(text)
			if parseErr != nil {
				metrics.AttemptsTotal.WithLabelValues("malformed").Inc()
				slog.Error("dispatch.malformed",
					"trace_id", traceID,
					"attempt", attempt+1,
					"error", parseErr,
					"body_preview", codec.CompactBodyPreview(text, bodyPreviewLength),
				)
				return nil, &MalformedResponseError{Err: parseErr, Body: text}
			}
			metrics.AttemptsTotal.WithLabelValues("success").Inc()
			if attempt > 0 {
				slog.Info("dispatch.recovered", "trace_id", traceID, "attempt", attempt+1, "key_index", keyIndex)
			}
			return parsed, nil
		}

		if errors.Is(err, upstream.ErrNoCandidateText) {
			metrics.AttemptsTotal.WithLabelValues("malformed").Inc()
			slog.Error("dispatch.malformed", "trace_id", traceID, "attempt", attempt+1, "error", err)
			return nil, &MalformedResponseError{Err: err}
		}

		if Classify(err) == Fatal {
			metrics.AttemptsTotal.WithLabelValues("fatal").Inc()
			slog.Error("dispatch.fatal",
				"trace_id", traceID,
				"backend", d.backend.Name(),
				"attempt", attempt+1,
				"key_index", keyIndex,
				"error", err,
			)
			return nil, &FatalUpstreamError{Err: err}
		}

		lastErr = err
		metrics.AttemptsTotal.WithLabelValues("transient").Inc()
		d.pool.Rotate()
		metrics.RotationsTotal.Inc()
		slog.Warn("dispatch.transient",
			"trace_id", traceID,
			"backend", d.backend.Name(),
			"attempt", attempt+1,
			"max_attempts", maxAttempts,
			"key_index", keyIndex,
			"key", keypool.Mask(credential),
			"next_key_index", d.pool.Cursor(),
			"error", err,
		)

		if attempt == maxAttempts-1 {
			break
		}
		if err := d.sleep(ctx, linearBackoff(d.backoffBase(), attempt)); err != nil {
			return nil, fmt.Errorf("analysis cancelled during backoff: %w", err)
		}
	}

	slog.Error("dispatch.exhausted", "trace_id", traceID, "attempts", maxAttempts, "error", lastErr)
	return nil, &RetryExhaustedError{Attempts: maxAttempts, Last: lastErr}
}

func (d *Dispatcher) backoffBase() time.Duration {
	if d.BackoffBase <= 0 {
		return DefaultBackoffBase
	}
	return d.BackoffBase
}

func (d *Dispatcher) sleep(ctx context.Context, delay time.Duration) error {
	if d.Sleep == nil {
		return sleepContext(ctx, delay)
	}
	return d.Sleep(ctx, delay)
}

// linearBackoff returns base*(attempt+1) for a zero-based attempt.
func linearBackoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt+1)
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func resultLabel(err error) string {
	var (
		exhausted *RetryExhaustedError
		malformed *MalformedResponseError
		fatal     *FatalUpstreamError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &exhausted):
		return "exhausted"
	case errors.As(err, &malformed):
		return "malformed"
	case errors.As(err, &fatal):
		return "fatal"
	default:
		return "rejected"
	}
}
