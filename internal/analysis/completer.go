package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Completer sends a prompt to a language model and returns its reply text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Name() string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func messages(system, prompt string) []chatMessage {
	var msgs []chatMessage
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	return append(msgs, chatMessage{Role: "user", Content: prompt})
}

// --- Ollama Provider ---

// OllamaCompleter uses a local Ollama instance.
type OllamaCompleter struct {
	baseURL string
	model   string
	client  *http.Client
}

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
}

type ollamaResponse struct {
	Message chatMessage `json:"message"`
}

// NewOllamaCompleter creates a completer using Ollama's chat API.
func NewOllamaCompleter(baseURL, model string, timeout time.Duration) *OllamaCompleter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1"
	}
	return &OllamaCompleter{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *OllamaCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	body, _ := json.Marshal(ollamaRequest{
		Model:    c.model,
		Messages: messages(system, prompt),
		Format:   "json",
	})
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama error %d: %s", resp.StatusCode, string(b))
	}

	var result ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Message.Content, nil
}

func (c *OllamaCompleter) Name() string { return "ollama/" + c.model }

// --- OpenAI-compatible Provider ---

// OpenAICompleter uses any OpenAI-compatible chat completions API, such as
// OpenRouter. Models are tried in order until one answers.
type OpenAICompleter struct {
	baseURL string
	apiKey  string
	models  []string
	client  *http.Client
}

type openaiChatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	MaxTokens      int               `json:"max_tokens"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewOpenAICompleter creates a completer using an OpenAI-compatible API.
func NewOpenAICompleter(baseURL, apiKey string, models []string, timeout time.Duration) *OpenAICompleter {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if len(models) == 0 {
		models = []string{"meta-llama/llama-3.1-8b-instruct:free"}
	}
	return &OpenAICompleter{
		baseURL: baseURL,
		apiKey:  apiKey,
		models:  models,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	var lastErr error
	for _, model := range c.models {
		out, err := c.complete(ctx, model, system, prompt)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

func (c *OpenAICompleter) complete(ctx context.Context, model, system, prompt string) (string, error) {
	body, _ := json.Marshal(openaiChatRequest{
		Model:          model,
		Messages:       messages(system, prompt),
		MaxTokens:      800,
		Temperature:    0.3,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai error %d (%s): %s", resp.StatusCode, model, string(b))
	}

	var result openaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no completion returned by %s", model)
	}
	return result.Choices[0].Message.Content, nil
}

func (c *OpenAICompleter) Name() string { return "openai/" + c.models[0] }

// --- Factory ---

// Options selects and configures a provider.
type Options struct {
	Provider string // "ollama" | "openai" | "" (disabled)
	BaseURL  string
	APIKey   string
	Models   []string
	Timeout  time.Duration
}

// NewCompleter builds the configured completer, or nil when disabled.
func NewCompleter(o Options) Completer {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	switch o.Provider {
	case "ollama":
		model := ""
		if len(o.Models) > 0 {
			model = o.Models[0]
		}
		return NewOllamaCompleter(o.BaseURL, model, o.Timeout)
	case "openai":
		return NewOpenAICompleter(o.BaseURL, o.APIKey, o.Models, o.Timeout)
	default:
		return nil // analysis disabled
	}
}
