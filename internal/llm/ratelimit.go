package llm

import (
	"context"
	"encoding/json"
	"math"

	"golang.org/x/time/rate"

	"meetdistill/internal/llmclient"
)

// RateLimit throttles calls shared by every concurrent extraction and
// generation branch of a run to rps requests per second. A burst of 0 is
// derived from rps; rps <= 0 disables limiting.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		if rps <= 0 {
			return next
		}
		return &rateLimited{next: next, rl: rate.NewLimiter(rate.Limit(rps), computeBurst(rps, burst))}
	}
}

func computeBurst(rps float64, configured int) int {
	if configured > 0 {
		return configured
	}
	return max(1, int(math.Ceil(rps)))
}

type rateLimited struct {
	next llmclient.LLMClient
	rl   *rate.Limiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error { return c.next.Close() }

// GenerateJSON waits for a token; a context that ends first, or whose
// deadline is too close to ever get one, fails the call without sending it.
func (c *rateLimited) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.GenerateJSON(ctx, prompt, input)
}
