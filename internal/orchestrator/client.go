package orchestrator

import (
	"context"
	"time"

	"meetdistill/internal/llm"
	"meetdistill/internal/llmclient"
	"meetdistill/internal/logger"
)

// ClientOptions configures the middleware stack around the provider client.
type ClientOptions struct {
	Provider llmclient.ProviderConfig
	// CallTimeout bounds a single backend call; 0 disables it.
	CallTimeout time.Duration
	// TransportRetries counts the first call.
	TransportRetries int
	RetryBaseDelay   time.Duration
	// RPS throttles calls across all branches; 0 disables it.
	RPS   float64
	Burst int
}

// NewClient builds the provider client from reg and wraps it as
// logging -> hooks -> rate limit -> retry -> timeout -> provider.
func NewClient(ctx context.Context, reg *llmclient.Registry, opts ClientOptions, log logger.Logger) (llmclient.LLMClient, error) {
	base, err := reg.New(ctx, opts.Provider)
	if err != nil {
		return nil, err
	}
	return llm.Wrap(base,
		llm.WithLogging(log),
		llm.WithHooks(),
		llm.RateLimit(opts.RPS, opts.Burst),
		llm.Retry(opts.TransportRetries, opts.RetryBaseDelay),
		llm.Timeout(opts.CallTimeout),
	), nil
}
