package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const DefaultTimeout = 5 * time.Minute

// Generator produces a completion for a prompt using the named model.
type Generator interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// OllamaGenerator talks to a local Ollama server. One client is kept per
// model name since the model is fixed at construction time.
type OllamaGenerator struct {
	serverURL string
	timeout   time.Duration

	mu      sync.Mutex
	clients map[string]*ollama.LLM
}

func NewOllamaGenerator(serverURL string, timeout time.Duration) *OllamaGenerator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OllamaGenerator{
		serverURL: strings.TrimSpace(serverURL),
		timeout:   timeout,
		clients:   make(map[string]*ollama.LLM),
	}
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt, model string) (string, error) {
	client, err := g.client(model)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := llms.GenerateFromSinglePrompt(ctx, client, prompt)
	if err != nil {
		return "", fmt.Errorf("ollama generate (%s): %w", model, err)
	}
	return strings.TrimSpace(out), nil
}

func (g *OllamaGenerator) client(model string) (*ollama.LLM, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[model]; ok {
		return c, nil
	}

	opts := []ollama.Option{ollama.WithModel(model)}
	if g.serverURL != "" {
		opts = append(opts, ollama.WithServerURL(g.serverURL))
	}
	c, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("ollama client (%s): %w", model, err)
	}
	g.clients[model] = c
	return c, nil
}
