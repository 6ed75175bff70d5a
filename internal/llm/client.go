// Package llm is the effect boundary for external model calls. Everything
// above it (prompt generation, trials, judging, security analysis) talks to
// the narrow Client interface, implemented once against the real API and
// once as a deterministic fake for tests.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kalybratex/skillrank/internal/models"
)

// Purpose identifies why a call is being made. It selects the configured
// model and labels metrics; it never changes call semantics.
type Purpose string

// Purpose constants
const (
	PurposeExecution  Purpose = "execution"
	PurposeGeneration Purpose = "generation"
	PurposeJudge      Purpose = "judge"
	PurposeSecurity   Purpose = "security"
)

// Request is a single completion request.
type Request struct {
	Purpose Purpose
	Model   string

	// System is injected ahead of the prompt as system-level context
	// (the skill content for skill-augmented completions). Empty for
	// baseline completions.
	System string

	Prompt    string
	MaxTokens int
}

// Completion is the model's response with token usage taken from the
// response metadata, never recomputed from text.
type Completion struct {
	Text  string
	Model string
	Usage models.TokenUsage
}

// Client issues completion requests against a model endpoint.
type Client interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// RateLimitError reports a throttled call. It is always retried with
// backoff and is never terminal by itself.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// IsRateLimit reports whether err is (or wraps) a RateLimitError.
func IsRateLimit(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// IsRetryable reports whether a call failure is transient: rate limits,
// call deadline expiry, and server-side errors. Context cancellation from
// the caller is not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsRateLimit(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te *TransientError
	return errors.As(err, &te)
}

// TransientError marks a server-side or transport failure worth retrying.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }
