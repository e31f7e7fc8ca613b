// Package ollama provides an Ollama-backed llm.Chatter.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/medgraph/medgraph/pkg/llm"
)

// DefaultURL is the local Ollama endpoint.
const DefaultURL = "http://localhost:11434"

// DefaultModel is used when no model is given.
const DefaultModel = "llama3.1:8b"

// ChatClient implements llm.Chatter using Ollama's /api/chat.
type ChatClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewChatClient creates an Ollama chat client.
func NewChatClient(baseURL, model string) *ChatClient {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &ChatClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

type ollamaChatReq struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
}

type ollamaChatResp struct {
	Message llm.Message `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// Model returns the model id sent with every request.
func (c *ChatClient) Model() string { return c.model }

// Chat implements llm.Chatter.
func (c *ChatClient) Chat(ctx context.Context, msgs []llm.Message) (string, error) {
	body, err := json.Marshal(ollamaChatReq{Model: c.model, Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("ollama: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama chat: status %d", resp.StatusCode)
	}

	var result ollamaChatResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("ollama chat decode: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("ollama chat: %s", result.Error)
	}
	if strings.TrimSpace(result.Message.Content) == "" {
		return "", llm.ErrEmptyReply
	}
	return result.Message.Content, nil
}
