package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	groqBaseURL        = "https://api.groq.com/openai/v1"
	defaultOpenAIModel = "gpt-4o-mini"
	defaultGroqModel   = "llama-3.3-70b-versatile"
	defaultOllamaModel = "llama3.1"
)

var errMissingAPIKey = errors.New("api key is required")

// LangChainClient adapts any langchaingo llms.Model to LLMClient.
// OpenAI, Groq (OpenAI-compatible) and Ollama are built on it.
type LangChainClient struct {
	name        string
	model       llms.Model
	temperature float64
}

// NewLangChainClient wraps an already constructed model. name is used for logs only.
func NewLangChainClient(name string, model llms.Model, temperature float64) *LangChainClient {
	return &LangChainClient{name: name, model: model, temperature: temperature}
}

func NewOpenAIClient(cfg ProviderConfig) (*LangChainClient, error) {
	if cfg.APIKey == "" {
		return nil, NewPermanentError(errMissingAPIKey)
	}
	model := firstNonEmpty(cfg.Model, defaultOpenAIModel)
	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, NewPermanentError(err)
	}
	return NewLangChainClient("OpenAI:"+model, m, cfg.Temperature), nil
}

func NewGroqClient(cfg ProviderConfig) (*LangChainClient, error) {
	if cfg.APIKey == "" {
		return nil, NewPermanentError(errMissingAPIKey)
	}
	model := firstNonEmpty(cfg.Model, defaultGroqModel)
	m, err := openai.New(
		openai.WithModel(model),
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(firstNonEmpty(cfg.BaseURL, groqBaseURL)),
	)
	if err != nil {
		return nil, NewPermanentError(err)
	}
	return NewLangChainClient("Groq:"+model, m, cfg.Temperature), nil
}

func NewOllamaClient(cfg ProviderConfig) (*LangChainClient, error) {
	model := firstNonEmpty(cfg.Model, defaultOllamaModel)
	opts := []ollama.Option{
		ollama.WithModel(model),
		ollama.WithFormat("json"),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	m, err := ollama.New(opts...)
	if err != nil {
		return nil, NewPermanentError(err)
	}
	return NewLangChainClient("Ollama:"+model, m, cfg.Temperature), nil
}

func (c *LangChainClient) Name() string { return c.name }
func (c *LangChainClient) Close() error { return nil }

func (c *LangChainClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	full, err := marshalInput(prompt, input)
	if err != nil {
		return nil, err
	}
	resp, err := c.model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, full)},
		llms.WithJSONMode(),
		llms.WithTemperature(c.temperature),
	)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return nil, ErrEmptyResponse
	}
	return json.RawMessage(resp.Choices[0].Content), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
