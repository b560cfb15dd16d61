// Package llm talks to the remote language model used when no local intent
// answers a message.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cipherbot/apps/backend/internal/config"
)

type Request struct {
	Message   string
	Reasoning bool
}

type Response struct {
	Text  string
	Model string
}

// Client is implemented by every provider.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
	// Name is the human-readable provider name used in user-facing messages.
	Name() string
}

var (
	ErrMissingAPIKey      = errors.New("llm api key is not configured")
	ErrModelNotFound      = errors.New("llm model not found")
	ErrBadRequest         = errors.New("llm rejected the request")
	ErrUpstream           = errors.New("llm upstream error")
	ErrTransport          = errors.New("llm transport error")
	ErrUnexpectedResponse = errors.New("llm returned an unexpected response")
)

// StatusError is a non-2xx reply from a provider. It unwraps to the sentinel
// that matches its status code.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded with HTTP %d: %s", e.Provider, e.StatusCode, truncateForLog(e.Body, 400))
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusBadRequest:
		return ErrBadRequest
	default:
		return ErrUpstream
	}
}

// FallbackMessage converts a generation error into the apology shown to the
// user. It never returns an empty string.
func FallbackMessage(provider string, err error) string {
	switch {
	case errors.Is(err, ErrMissingAPIKey):
		return fmt.Sprintf("API key for %s is not configured. Please check your .env file.", provider)
	case errors.Is(err, ErrModelNotFound):
		return "Error: The AI model was not found. Please verify the model name and API version."
	case errors.Is(err, ErrBadRequest):
		return "Error: Bad request. Please check your API key and prompt structure."
	case errors.Is(err, ErrUnexpectedResponse):
		return "I received an unexpected response. Please try again."
	case errors.Is(err, ErrTransport):
		return "I'm experiencing connectivity issues. Please try again shortly."
	default:
		return "I'm having trouble connecting right now. Please try again in a moment."
	}
}

// New builds the client selected by LLM_PROVIDER.
func New(ctx context.Context, cfg config.Config) (Client, error) {
	timeout := time.Duration(cfg.AITimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case config.ProviderGemini, "":
		return NewGeminiClient(GeminiOptions{
			APIKey:        cfg.GeminiAPIKey,
			BaseURL:       cfg.GeminiBaseURL,
			Model:         cfg.GeminiModel,
			SearchEnabled: cfg.GeminiSearchEnabled,
			Timeout:       timeout,
		}), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: timeout,
		}), nil
	case config.ProviderArk:
		client, err := NewArkClient(ctx, ArkOptions{
			APIKey:  cfg.ArkAPIKey,
			BaseURL: cfg.ArkBaseURL,
			Model:   cfg.ArkModel,
			Timeout: timeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderMock:
		return MockClient{Model: "mock"}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}

func transportError(err error) error {
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

func truncateForLog(value string, limit int) string {
	trimmed := strings.TrimSpace(value)
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "...(truncated)"
}
