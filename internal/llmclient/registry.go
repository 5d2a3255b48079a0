package llmclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ClientFactory builds a client for one provider.
type ClientFactory func(ctx context.Context, cfg ProviderConfig) (LLMClient, error)

var ErrProviderNotRegistered = errors.New("llm provider is not registered")

// Registry maps provider names to factories. Registration happens once at
// startup; lookups may run concurrently afterwards.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ClientFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]ClientFactory{}}
}

// NewDefaultRegistry has every built-in network backend registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register("gemini", func(ctx context.Context, cfg ProviderConfig) (LLMClient, error) {
		return NewGeminiClient(ctx, cfg)
	})
	_ = r.Register("openai", func(_ context.Context, cfg ProviderConfig) (LLMClient, error) {
		return NewOpenAIClient(cfg)
	})
	_ = r.Register("groq", func(_ context.Context, cfg ProviderConfig) (LLMClient, error) {
		return NewGroqClient(cfg)
	})
	_ = r.Register("ollama", func(_ context.Context, cfg ProviderConfig) (LLMClient, error) {
		return NewOllamaClient(cfg)
	})
	return r
}

func (r *Registry) Register(provider string, f ClientFactory) error {
	key := strings.ToLower(strings.TrimSpace(provider))
	if key == "" || f == nil {
		return fmt.Errorf("register provider %q: name and factory are required", provider)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[key]; dup {
		return fmt.Errorf("register provider %q: already registered", key)
	}
	r.factories[key] = f
	return nil
}

// New builds the client selected by cfg.Provider.
func (r *Registry) New(ctx context.Context, cfg ProviderConfig) (LLMClient, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Provider))
	r.mu.RLock()
	f, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrProviderNotRegistered, cfg.Provider, strings.Join(r.Providers(), ", "))
	}
	cli, err := f(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", key, err)
	}
	return cli, nil
}

// Providers lists registered names, sorted.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
