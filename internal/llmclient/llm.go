package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// LLMClient is the single text-generation capability the pipeline consumes:
// instructions plus an input payload in, a JSON document out.
// Implementations return the model text as-is; callers decide how tolerant to be.
type LLMClient interface {
	Name() string
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
	Close() error
}

var ErrInvalidJSON = errors.New("invalid json from LLM")

// ErrEmptyResponse is returned when a backend answers with no candidates.
var ErrEmptyResponse = errors.New("empty response from LLM")

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err, or anything it wraps, is a PermanentError.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// ProviderConfig selects and parameterizes one backend.
type ProviderConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
}

// marshalInput renders the request payload the same way for every backend.
func marshalInput(prompt string, input any) (string, error) {
	if input == nil {
		return prompt, nil
	}
	in, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", NewPermanentError(err)
	}
	return prompt + "\n\n[INPUT JSON]\n" + string(in), nil
}
