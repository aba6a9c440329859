package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Exchange is one few-shot example sent ahead of the live prompt.
type Exchange struct {
	User      string
	Assistant string
}

// CompletionRequest carries everything a provider needs for one turn.
type CompletionRequest struct {
	TurnID      string
	PersonaName string
	System      string
	Prompt      string
	FewShot     []Exchange
}

// Usage reports real token counts when the upstream API supplies them.
// Nil usage means the caller should estimate.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// CompletionResponse is the final text after any streaming deltas.
type CompletionResponse struct {
	Text  string
	Usage *Usage
}

// DeltaHandler receives streaming text fragments.
type DeltaHandler func(delta string) error

// Client produces at most one completion per turn.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest, onDelta DeltaHandler) (CompletionResponse, error)
}

// Config controls client construction.
type Config struct {
	Mode            string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	HTTPURL         string
	MaxTokens       int
	Temperature     float64
}

// NewClient builds a completion client for the configured mode. Mode
// "auto" picks the first provider with credentials, falling back to the
// deterministic mock so the service always starts.
func NewClient(cfg Config) (Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		return newAutoClient(cfg), nil
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, errors.New("OpenAI API key is required for openai mode")
		}
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.MaxTokens, cfg.Temperature), nil
	case "anthropic":
		if strings.TrimSpace(cfg.AnthropicAPIKey) == "" {
			return nil, errors.New("Anthropic API key is required for anthropic mode")
		}
		return NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.MaxTokens, cfg.Temperature), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("completion HTTP url is required for http mode")
		}
		return NewHTTPClient(cfg.HTTPURL), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported completion client mode %q", cfg.Mode)
	}
}

func newAutoClient(cfg Config) Client {
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		log.Info().Str("provider", "openai").Str("model", cfg.OpenAIModel).Msg("completion provider selected")
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.MaxTokens, cfg.Temperature)
	}
	if strings.TrimSpace(cfg.AnthropicAPIKey) != "" {
		log.Info().Str("provider", "anthropic").Str("model", cfg.AnthropicModel).Msg("completion provider selected")
		return NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.MaxTokens, cfg.Temperature)
	}
	if strings.TrimSpace(cfg.HTTPURL) != "" {
		log.Info().Str("provider", "http").Str("url", cfg.HTTPURL).Msg("completion provider selected")
		return NewHTTPClient(cfg.HTTPURL)
	}
	log.Info().Str("provider", "mock").Msg("no completion credentials configured, using mock")
	return NewMockClient()
}
