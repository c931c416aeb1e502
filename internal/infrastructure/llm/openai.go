// Package llm adapts an OpenAI-compatible chat-completions endpoint to the
// text-generation port. Local inference servers exposing the same API work
// unchanged via the base URL setting.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/config"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/domain"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/ports"
)

const requestTimeout = 60 * time.Second

// Client implements ports.TextGenerator using the official openai-go SDK.
type Client struct {
	model  string
	client openai.Client
}

var _ ports.TextGenerator = (*Client)(nil)

// NewClient builds a client from configuration. The underlying SDK client is
// constructed once and reused across requests.
func NewClient(cfg config.TextGenConfig) (*Client, error) {
	if cfg.Model == "" {
		return nil, errors.New("textgen model is required")
	}
	opts := []option.RequestOption{option.WithRequestTimeout(requestTimeout)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{model: cfg.Model, client: openai.NewClient(opts...)}, nil
}

// Ping verifies the backend is reachable before a run begins.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	return nil
}

// Complete sends one system+user exchange and returns the generated text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
