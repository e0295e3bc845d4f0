// Package agent provides the language-model collaborator a session talks
// to. Every implementation keeps its own transcript so consecutive calls
// continue one conversation.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable wraps every failure to obtain a reply.
var ErrUnavailable = errors.New("agent unavailable")

// Agent answers prompts within a single conversation.
type Agent interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Backend names accepted by New.
const (
	BackendGemini     = "gemini"
	BackendOpenRouter = "openrouter"
	BackendOllama     = "ollama"
)

// Default models per backend.
const (
	DefaultGeminiModel     = "gemini-2.5-flash"
	DefaultOpenRouterModel = "google/gemini-2.5-flash"
	DefaultOllamaModel     = "llama3.2"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Model   string
	// System is the instruction sent ahead of the conversation.
	System string

	GeminiAPIKey     string
	OpenRouterAPIKey string
	OllamaBaseURL    string
}

// New builds the agent named by cfg.Backend. An empty backend selects
// Gemini and an empty model selects the backend's default.
func New(ctx context.Context, cfg Config) (Agent, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("%w: gemini API key is not set (run `finplan config set-secret agent.gemini_api_key <key>` or set FINPLAN_GEMINI_API_KEY)", ErrUnavailable)
		}
		return NewGemini(ctx, cfg.GeminiAPIKey, orDefault(cfg.Model, DefaultGeminiModel), cfg.System)
	case BackendOpenRouter:
		if cfg.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("%w: openrouter API key is not set (run `finplan config set-secret agent.openrouter_api_key <key>` or set FINPLAN_OPENROUTER_API_KEY)", ErrUnavailable)
		}
		return NewOpenRouter(cfg.OpenRouterAPIKey, orDefault(cfg.Model, DefaultOpenRouterModel), cfg.System), nil
	case BackendOllama:
		return NewOllama(cfg.OllamaBaseURL, orDefault(cfg.Model, DefaultOllamaModel), cfg.System), nil
	default:
		return nil, fmt.Errorf("unknown agent backend %q", cfg.Backend)
	}
}

// ModelFor returns the model New would use for cfg.
func ModelFor(cfg Config) string {
	switch strings.ToLower(cfg.Backend) {
	case BackendOpenRouter:
		return orDefault(cfg.Model, DefaultOpenRouterModel)
	case BackendOllama:
		return orDefault(cfg.Model, DefaultOllamaModel)
	default:
		return orDefault(cfg.Model, DefaultGeminiModel)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func unavailable(backend string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, backend, err)
}

var errEmptyReply = errors.New("empty reply")
