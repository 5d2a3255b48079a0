package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sethvargo/go-retry"

	"meetdistill/internal/llmclient"
)

// Retry retries transient transport failures with exponential backoff
// starting at baseDelay. maxAttempts counts the first call. PermanentError
// and caller cancellation are returned immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next llmclient.LLMClient
	max  int
	base time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	backoff := retry.WithMaxRetries(uint64(r.max-1), retry.NewExponential(r.base))
	var out json.RawMessage
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		raw, err := r.next.GenerateJSON(ctx, prompt, input)
		if err == nil {
			out = raw
			return nil
		}
		if llmclient.IsPermanent(err) || ctx.Err() != nil {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
