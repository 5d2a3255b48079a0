// Package config loads the run configuration from a YAML file, .env and the
// environment, in that order, and validates it once.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"meetdistill/internal/llmclient"
	"meetdistill/internal/logger"
	"meetdistill/internal/orchestrator"
	"meetdistill/internal/validation"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	envProvider    = "MEETDISTILL_PROVIDER"
	envModel       = "MEETDISTILL_MODEL"
	envAPIKey      = "MEETDISTILL_API_KEY"
	envBaseURL     = "MEETDISTILL_BASE_URL"
	envCallTimeout = "MEETDISTILL_CALL_TIMEOUT"
	envRetryBudget = "MEETDISTILL_RETRY_BUDGET"
	envStrictness  = "MEETDISTILL_STRICTNESS"
	envLogLevel    = "MEETDISTILL_LOG_LEVEL"
)

// providerKeyEnv is consulted when no explicit API key is configured.
var providerKeyEnv = map[string]string{
	"openai": "OPENAI_API_KEY",
	"gemini": "GEMINI_API_KEY",
	"groq":   "GROQ_API_KEY",
}

type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Validation ValidationConfig `yaml:"validation"`
	Compliance ComplianceConfig `yaml:"compliance"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type LLMConfig struct {
	Provider         string        `yaml:"provider" validate:"required,oneof=openai gemini groq ollama fake"`
	Model            string        `yaml:"model"`
	APIKey           string        `yaml:"api_key"`
	BaseURL          string        `yaml:"base_url" validate:"omitempty,url"`
	Temperature      float64       `yaml:"temperature" validate:"gte=0,lte=2"`
	CallTimeout      time.Duration `yaml:"call_timeout" validate:"gte=0"`
	TransportRetries int           `yaml:"transport_retries" validate:"gte=1,lte=10"`
	RetryBaseDelay   time.Duration `yaml:"retry_base_delay" validate:"gte=0"`
	RPS              float64       `yaml:"rps" validate:"gte=0"`
	Burst            int           `yaml:"burst" validate:"gte=0"`
}

type PipelineConfig struct {
	// RetryBudget is the total number of drafts per artifact.
	RetryBudget    int      `yaml:"retry_budget" validate:"gte=1,lte=10"`
	MaxConcurrency int      `yaml:"max_concurrency" validate:"gte=0"`
	Fillers        []string `yaml:"fillers"`
}

type ValidationConfig struct {
	Strictness validation.Strictness `yaml:"strictness" validate:"oneof=strict balanced lenient"`
	Lexicon    validation.Lexicon    `yaml:"lexicon"`
	Bounds     validation.Bounds     `yaml:"bounds"`
}

type ComplianceConfig struct {
	Policy orchestrator.CompliancePolicy `yaml:"policy" validate:"oneof=advisory fail_closed"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// Default is the configuration used when no file sets a value.
func Default() Config {
	opts := orchestrator.DefaultOptions()
	return Config{
		LLM: LLMConfig{
			Provider:         "gemini",
			Temperature:      0.2,
			CallTimeout:      60 * time.Second,
			TransportRetries: 3,
			RetryBaseDelay:   500 * time.Millisecond,
		},
		Pipeline:   PipelineConfig{RetryBudget: opts.RetryBudget, MaxConcurrency: 4},
		Validation: ValidationConfig{Strictness: opts.Strictness, Bounds: opts.Bounds},
		Compliance: ComplianceConfig{Policy: opts.Compliance},
		Logging:    LoggingConfig{Level: "info"},
	}
}

// Load reads path (optional) over the defaults, applies .env and
// MEETDISTILL_* overrides, and validates the result.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decode(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode overlays YAML onto cfg. Unknown keys are rejected so typos surface.
func decode(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(k string) (string, bool) {
		v, ok := lookup(k)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get(envProvider); ok {
		c.LLM.Provider = strings.ToLower(v)
	}
	if v, ok := get(envModel); ok {
		c.LLM.Model = v
	}
	if v, ok := get(envAPIKey); ok {
		c.LLM.APIKey = v
	}
	if v, ok := get(envBaseURL); ok {
		c.LLM.BaseURL = v
	}
	if v, ok := get(envCallTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, envCallTimeout, err)
		}
		c.LLM.CallTimeout = d
	}
	if v, ok := get(envRetryBudget); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, envRetryBudget, err)
		}
		c.Pipeline.RetryBudget = n
	}
	if v, ok := get(envStrictness); ok {
		c.Validation.Strictness = validation.Strictness(strings.ToLower(v))
	}
	if v, ok := get(envLogLevel); ok {
		c.Logging.Level = strings.ToLower(v)
	}

	if c.LLM.APIKey == "" {
		if k, ok := providerKeyEnv[c.LLM.Provider]; ok {
			c.LLM.APIKey, _ = get(k)
		}
	}
	if c.LLM.BaseURL == "" && c.LLM.Provider == "ollama" {
		c.LLM.BaseURL, _ = get("OLLAMA_BASE_URL")
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every struct tag, including the nested bounds.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Options maps the pipeline sections onto orchestrator options.
func (c Config) Options() orchestrator.Options {
	return orchestrator.Options{
		RetryBudget:    c.Pipeline.RetryBudget,
		MaxConcurrency: c.Pipeline.MaxConcurrency,
		Strictness:     c.Validation.Strictness,
		Lexicon:        c.Validation.Lexicon,
		Bounds:         c.Validation.Bounds,
		Fillers:        c.Pipeline.Fillers,
		Compliance:     c.Compliance.Policy,
	}
}

func (c Config) ClientOptions() orchestrator.ClientOptions {
	return orchestrator.ClientOptions{
		Provider: llmclient.ProviderConfig{
			Provider:    c.LLM.Provider,
			Model:       c.LLM.Model,
			APIKey:      c.LLM.APIKey,
			BaseURL:     c.LLM.BaseURL,
			Temperature: c.LLM.Temperature,
			Timeout:     c.LLM.CallTimeout,
		},
		CallTimeout:      c.LLM.CallTimeout,
		TransportRetries: c.LLM.TransportRetries,
		RetryBaseDelay:   c.LLM.RetryBaseDelay,
		RPS:              c.LLM.RPS,
		Burst:            c.LLM.Burst,
	}
}

func (c Config) Logger() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = logger.ParseLevel(c.Logging.Level)
	lc.JSON = c.Logging.JSON
	return lc
}
