package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// contentGenerator is the subset of *genai.Models used by Gemini.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini talks to the Gemini API through google.golang.org/genai.
type Gemini struct {
	models contentGenerator
	model  string
	config *genai.GenerateContentConfig

	mu      sync.Mutex
	history []*genai.Content
}

// NewGemini creates a Gemini agent using the given API key.
func NewGemini(ctx context.Context, apiKey, model, system string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating genai client: %v", ErrUnavailable, err)
	}
	return newGemini(client.Models, model, system), nil
}

func newGemini(models contentGenerator, model, system string) *Gemini {
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return &Gemini{models: models, model: model, config: cfg}
}

func (g *Gemini) Ask(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	contents := append(g.history[:len(g.history):len(g.history)], genai.NewContentFromText(prompt, genai.RoleUser))

	resp, err := g.models.GenerateContent(ctx, g.model, contents, g.config)
	if err != nil {
		return "", unavailable(BackendGemini, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", unavailable(BackendGemini, errEmptyReply)
	}

	reply := resp.Candidates[0].Content
	text := contentText(reply)
	if text == "" {
		return "", unavailable(BackendGemini, errEmptyReply)
	}
	if reply.Role == "" {
		reply.Role = genai.RoleModel
	}

	g.history = append(contents, reply)
	return text, nil
}

func contentText(c *genai.Content) string {
	var b strings.Builder
	for _, p := range c.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
