package agent

import (
	"context"
	"sync"

	"github.com/kalambet/finplan/internal/proxy"
)

type completer interface {
	Complete(ctx context.Context, req proxy.ChatRequest) (proxy.ChatResponse, error)
}

// OpenRouter routes the conversation through OpenRouter's chat completions.
type OpenRouter struct {
	client completer
	model  string

	mu      sync.Mutex
	history []proxy.Message
}

func NewOpenRouter(apiKey, model, system string) *OpenRouter {
	return newOpenRouter(proxy.NewClient(apiKey), model, system)
}

func newOpenRouter(c completer, model, system string) *OpenRouter {
	a := &OpenRouter{client: c, model: model}
	if system != "" {
		a.history = []proxy.Message{{Role: "system", Content: system}}
	}
	return a
}

func (a *OpenRouter) Ask(ctx context.Context, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	msgs := append(a.history[:len(a.history):len(a.history)], proxy.Message{Role: "user", Content: prompt})

	resp, err := a.client.Complete(ctx, proxy.ChatRequest{Model: a.model, Messages: msgs})
	if err != nil {
		return "", unavailable(BackendOpenRouter, err)
	}
	text := resp.Text()
	if text == "" {
		return "", unavailable(BackendOpenRouter, errEmptyReply)
	}

	a.history = append(msgs, proxy.Message{Role: "assistant", Content: text})
	return text, nil
}
