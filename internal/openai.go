package internal

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIClient generates text through an OpenAI-compatible chat completion API
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient creates a new client. An empty baseURL targets api.openai.com.
func NewOpenAIClient(apiKey, baseURL, model string, opts ...option.RequestOption) *OpenAIClient {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIClient{
		client: openai.NewClient(reqOpts...),
		model:  model,
	}
}

// NewTextGenerator returns the configured generator, or nil when no API key
// is set so that metadata falls back to file names
func NewTextGenerator(config *Config) TextGenerator {
	if config.OpenAIAPIKey == "" {
		return nil
	}
	return NewOpenAIClient(config.OpenAIAPIKey, config.BaseURL, config.Model)
}

// Generate implements TextGenerator
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from model %s", c.model)
	}
	return resp.Choices[0].Message.Content, nil
}
