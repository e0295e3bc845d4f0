package agent

import (
	"context"
	"sync"

	"github.com/kalambet/finplan/internal/ollama"
)

type chatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, opts *ollama.Options) (ollama.Message, error)
}

// Ollama runs the conversation against a local Ollama model.
type Ollama struct {
	client chatter
	model  string

	mu      sync.Mutex
	history []ollama.Message
}

func NewOllama(baseURL, model, system string) *Ollama {
	return newOllama(ollama.New(baseURL), model, system)
}

func newOllama(c chatter, model, system string) *Ollama {
	a := &Ollama{client: c, model: model}
	if system != "" {
		a.history = []ollama.Message{{Role: "system", Content: system}}
	}
	return a
}

func (a *Ollama) Ask(ctx context.Context, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	msgs := append(a.history[:len(a.history):len(a.history)], ollama.Message{Role: "user", Content: prompt})

	reply, err := a.client.Chat(ctx, a.model, msgs, nil)
	if err != nil {
		return "", unavailable(BackendOllama, err)
	}
	if reply.Content == "" {
		return "", unavailable(BackendOllama, errEmptyReply)
	}
	if reply.Role == "" {
		reply.Role = "assistant"
	}

	a.history = append(msgs, reply)
	return reply.Content, nil
}
