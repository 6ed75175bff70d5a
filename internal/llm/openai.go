package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/kalybratex/skillrank/internal/config"
	"github.com/kalybratex/skillrank/internal/limiter"
	"github.com/kalybratex/skillrank/internal/metrics"
	"github.com/kalybratex/skillrank/internal/models"
)

const defaultMaxTokens = 4096

// OpenAIClient implements Client against any OpenAI-compatible endpoint.
// Every call passes through the shared gate, a circuit breaker, and a
// capped exponential-backoff retry loop.
type OpenAIClient struct {
	api     *openai.Client
	gate    *limiter.Gate
	breaker *gobreaker.CircuitBreaker
	retry   config.RetryConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewOpenAI creates a client for the given endpoint. The gate is shared
// process-wide and passed in by the caller; it is never created here.
func NewOpenAI(apiKey, baseURL string, retry config.RetryConfig, gate *limiter.Gate, m *metrics.Metrics, logger *slog.Logger) *OpenAIClient {
	apiCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		apiCfg.BaseURL = baseURL
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "model-endpoint",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Rate limiting is endpoint pushback, not endpoint failure.
			return err == nil || IsRateLimit(err)
		},
	})

	return &OpenAIClient{
		api:     openai.NewClientWithConfig(apiCfg),
		gate:    gate,
		breaker: breaker,
		retry:   retry,
		metrics: m,
		logger:  logger,
	}
}

// Complete implements Client. Transient failures are retried with
// exponential backoff up to the configured attempt cap; the last error is
// returned after the cap.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("llm: request has no model")
	}

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		comp, err := c.completeOnce(ctx, req)
		if err == nil {
			return comp, nil
		}
		lastErr = err

		if !IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt == c.retry.MaxAttempts {
			break
		}

		cause := "transient"
		if IsRateLimit(err) {
			cause = "rate_limit"
		} else if errors.Is(err, context.DeadlineExceeded) {
			cause = "timeout"
		}
		c.metrics.RetriesTotal.WithLabelValues(string(req.Purpose), cause).Inc()

		delay := c.backoff(attempt, err)
		c.logger.Debug("retrying model call",
			"purpose", req.Purpose, "model", req.Model,
			"attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("model call failed after %d attempts: %w", c.retry.MaxAttempts, lastErr)
}

func (c *OpenAIClient) completeOnce(ctx context.Context, req Request) (*Completion, error) {
	waitStart := time.Now()
	release, err := c.gate.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	c.metrics.GateWaitSeconds.Observe(time.Since(waitStart).Seconds())

	callCtx, cancel := context.WithTimeout(ctx, c.retry.Timeout())
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	callStart := time.Now()
	result, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:     req.Model,
			Messages:  msgs,
			MaxTokens: maxTokens,
		})
		if err != nil {
			return nil, classifyAPIError(err)
		}
		return &resp, nil
	})
	c.metrics.ModelCallSeconds.WithLabelValues(string(req.Purpose), req.Model).
		Observe(time.Since(callStart).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &TransientError{Err: err}
		}
		c.metrics.ModelCallsTotal.WithLabelValues(string(req.Purpose), req.Model, "error").Inc()
		return nil, err
	}

	resp := result.(*openai.ChatCompletionResponse)
	if len(resp.Choices) == 0 {
		c.metrics.ModelCallsTotal.WithLabelValues(string(req.Purpose), req.Model, "error").Inc()
		return nil, fmt.Errorf("model returned no choices")
	}

	c.metrics.ModelCallsTotal.WithLabelValues(string(req.Purpose), req.Model, "ok").Inc()
	c.metrics.TokensTotal.WithLabelValues(req.Model, "input").Add(float64(resp.Usage.PromptTokens))
	c.metrics.TokensTotal.WithLabelValues(req.Model, "output").Add(float64(resp.Usage.CompletionTokens))

	return &Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: models.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// backoff returns the delay before the next attempt: exponential from the
// configured initial value, capped, with up to 25% jitter. A server-sent
// retry-after hint wins when it is longer.
func (c *OpenAIClient) backoff(attempt int, err error) time.Duration {
	d := c.retry.InitialBackoff() << (attempt - 1)
	if ceiling := c.retry.MaxBackoff(); d > ceiling {
		d = ceiling
	}
	d += time.Duration(rand.Int63n(int64(d)/4 + 1))

	var rle *RateLimitError
	if errors.As(err, &rle) && rle.RetryAfter > d {
		d = rle.RetryAfter
	}
	return d
}

func classifyAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return &RateLimitError{}
		case apiErr.HTTPStatusCode >= 500:
			return &TransientError{Err: err}
		default:
			return err
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransientError{Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return context.DeadlineExceeded
	}
	return err
}
