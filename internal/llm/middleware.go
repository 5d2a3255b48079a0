package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"meetdistill/internal/llmclient"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns
// (rate limiting, retries, timeouts, logging, hooks).
type Middleware func(llmclient.LLMClient) llmclient.LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		out = mws[i](out)
	}
	return out
}

// ErrCallTimeout marks a single call that ran past its per-call deadline
// while the caller's own context was still live.
var ErrCallTimeout = errors.New("llm call timed out")

// Timeout bounds every call with its own deadline. Put it innermost so each
// transport retry gets a fresh budget. A zero duration disables it.
func Timeout(d time.Duration) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		if d <= 0 {
			return next
		}
		return &timeout{next: next, d: d}
	}
}

type timeout struct {
	next llmclient.LLMClient
	d    time.Duration
}

func (t *timeout) Name() string { return t.next.Name() }
func (t *timeout) Close() error { return t.next.Close() }

func (t *timeout) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	raw, err := t.next.GenerateJSON(callCtx, prompt, input)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s: %v", ErrCallTimeout, t.d, err)
	}
	return raw, err
}
