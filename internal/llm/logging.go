package llm

import (
	"context"
	"encoding/json"
	"time"

	"meetdistill/internal/llmclient"
	"meetdistill/internal/logger"
)

// WithLogging logs request size, latency and errors per call, tagged with the
// worker name. A nil logger uses the one carried in the call context.
func WithLogging(l logger.Logger) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logging{next: next, log: l}
	}
}

type logging struct {
	next llmclient.LLMClient
	log  logger.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	log := l.log
	if log == nil {
		log = logger.FromContext(ctx)
	}
	in, _ := json.Marshal(input)
	worker := WorkerFrom(ctx)
	log.Debug("llm request", "worker", worker, "client", l.next.Name(), "bytes", len(prompt)+len(in))
	start := time.Now()
	raw, err := l.next.GenerateJSON(ctx, prompt, input)
	if err != nil {
		log.Warn("llm error", "worker", worker, "elapsed", time.Since(start), "error", err)
		return raw, err
	}
	log.Debug("llm response", "worker", worker, "elapsed", time.Since(start), "bytes", len(raw))
	return raw, nil
}
