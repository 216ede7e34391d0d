// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/answerit/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Client implements ai.ModelClient using OpenAI-compatible chat APIs.
type Client struct {
	client llms.Model
	model  string
	logger *slog.Logger
}

// newClient is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newClient(host, token, model string) (*Client, error) {
	// Use "none" as token for local OpenAI-compatible services that don't
	// require authentication
	client, err := openai.New(
		openai.WithBaseURL(host),
		openai.WithToken(token),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		client: client,
		model:  model,
		logger: slog.Default().With("component", "openai-client", "model", model),
	}, nil
}

// NewClient creates a model client for one OpenAI-compatible model.
//
// Returns ai.ModelClient interface to enforce abstraction.
func NewClient(config *ai.Config) (ai.ModelClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newClient(config.Host, config.Token, config.Model)
}

// Complete sends one prompt to the model and returns its completion.
func (c *Client) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	content := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		content = append(content, llms.MessageContent{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(req.System),
			},
		})
	}
	content = append(content, llms.MessageContent{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.TextPart(req.Prompt),
		},
	})

	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.JSONMode {
		opts = append(opts, llms.WithJSONMode())
	}

	response, err := c.client.GenerateContent(ctx, content, opts...)
	if err != nil {
		c.logger.Error("failed to generate content", "err", err)
		return nil, fmt.Errorf("%w: %v", ai.ErrProvider, err)
	}

	if len(response.Choices) < 1 {
		c.logger.Debug("no choices returned from model")
		return nil, ai.ErrNoChoices
	}

	choice := response.Choices[0]
	return &ai.Completion{
		Text:       choice.Content,
		TokensUsed: totalTokens(choice.GenerationInfo),
	}, nil
}

// totalTokens pulls the total token count out of langchaingo's generation
// info map. Providers that don't report usage yield zero.
func totalTokens(info map[string]any) int {
	if info == nil {
		return 0
	}
	if v, ok := info["TotalTokens"]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}
