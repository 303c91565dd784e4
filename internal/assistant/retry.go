package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/reinhart/sqlagent/internal/logger"
)

// RetryingProvider wraps a provider with a per-attempt timeout and
// exponential backoff between failed attempts
type RetryingProvider struct {
	Provider   LLMProvider
	Timeout    time.Duration
	MaxRetries int

	// NewBackOff overrides the backoff policy, mainly for tests
	NewBackOff func() backoff.BackOff
}

// NewRetryingProvider wraps p; a zero timeout disables the per-attempt deadline
func NewRetryingProvider(p LLMProvider, timeout time.Duration, maxRetries int) *RetryingProvider {
	return &RetryingProvider{Provider: p, Timeout: timeout, MaxRetries: maxRetries}
}

// Unwrap returns the wrapped provider
func (r *RetryingProvider) Unwrap() LLMProvider {
	return r.Provider
}

func (r *RetryingProvider) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff
	if r.NewBackOff != nil {
		b = r.NewBackOff()
	} else {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = time.Second
		eb.MaxElapsedTime = 0
		b = eb
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.MaxRetries)), ctx)
}

// Chat calls the wrapped provider until it succeeds, retries run out, or
// ctx is done
func (r *RetryingProvider) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, opts ...ChatOption) (*Message, error) {
	attempt := 0
	op := func() (*Message, error) {
		attempt++
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if r.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		}
		defer cancel()

		msg, err := r.Provider.Chat(callCtx, messages, tools, opts...)
		if err != nil {
			// If context canceled or deadline exceeded, stop retrying immediately
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			logger.Info("LLM attempt %d failed: %v", attempt, err)
			return nil, err
		}
		return msg, nil
	}

	msg, err := backoff.RetryWithData(op, r.backOff(ctx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("llm completion error (context): %w", err)
		}
		return nil, fmt.Errorf("llm completion failed after %d attempts: %w", attempt, err)
	}
	return msg, nil
}

// EmbedderOf returns the embedder behind p, if any
func EmbedderOf(p LLMProvider) (Embedder, bool) {
	for {
		if e, ok := p.(Embedder); ok {
			return e, true
		}
		w, ok := p.(interface{ Unwrap() LLMProvider })
		if !ok {
			return nil, false
		}
		p = w.Unwrap()
	}
}
