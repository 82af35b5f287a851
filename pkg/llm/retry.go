package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/rag"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig bounds how often and how fast a failed call is repeated.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryConfig matches the production defaults: three attempts on a
// short exponential curve.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     4 * time.Second,
		Multiplier:      2,
	}
}

// RetryingProvider wraps a provider with bounded retries. When every attempt
// fails the error wraps rag.ErrUpstreamUnavailable.
type RetryingProvider struct {
	next   LLMProvider
	cfg    RetryConfig
	logger logger.ILogger
}

var _ LLMProvider = (*RetryingProvider)(nil)

func NewRetryingProvider(next LLMProvider, cfg RetryConfig, log logger.ILogger) *RetryingProvider {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	return &RetryingProvider{next: next, cfg: cfg, logger: log}
}

func (p *RetryingProvider) Chat(ctx context.Context, history []Message, opts ...Option) (string, error) {
	return p.do(ctx, "chat", func() (string, error) {
		return p.next.Chat(ctx, history, opts...)
	})
}

func (p *RetryingProvider) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	return p.do(ctx, "generate", func() (string, error) {
		return p.next.Generate(ctx, prompt, opts...)
	})
}

func (p *RetryingProvider) do(ctx context.Context, call string, fn func() (string, error)) (string, error) {
	curve := backoff.NewExponentialBackOff()
	curve.InitialInterval = p.cfg.InitialInterval
	curve.MaxInterval = p.cfg.MaxInterval
	curve.Multiplier = p.cfg.Multiplier

	attempt := 0
	op := func() (string, error) {
		attempt++
		out, err := fn()
		if err == nil {
			return out, nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return "", backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(curve),
		backoff.WithMaxTries(uint(p.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			p.logger.Warn("LLM", "Call failed, retrying", map[string]interface{}{
				"call":    call,
				"attempt": attempt,
				"wait":    wait.String(),
				"error":   err.Error(),
			})
		}),
	)
	if err != nil {
		p.logger.Error("LLM", "Upstream unavailable", map[string]interface{}{
			"call":     call,
			"attempts": attempt,
			"error":    err.Error(),
		})
		return "", fmt.Errorf("%s after %d attempt(s): %v: %w", call, attempt, err, rag.ErrUpstreamUnavailable)
	}
	return out, nil
}
