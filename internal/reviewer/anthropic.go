// Package reviewer implements the AI review capability: a client that sends a
// rendered diff prompt to the model, and the decoders that turn the model's
// output back into a structured review result.
package reviewer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/forgesmith/revpilot/internal/core"
)

const defaultMaxTokens = 8192

// anthropicReviewer implements core.Reviewer against the Anthropic API.
// It is injected into the orchestrator explicitly; there is no process-wide
// default client.
type anthropicReviewer struct {
	api    *anthropic.Client
	model  anthropic.Model
	logger *slog.Logger
}

// NewAnthropicReviewer creates the default Reviewer implementation.
func NewAnthropicReviewer(apiKey, model string, logger *slog.Logger) core.Reviewer {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &anthropicReviewer{
		api:    &client,
		model:  anthropic.Model(model),
		logger: logger,
	}
}

// Review renders the prompt for the request and returns the model's raw text
// output. Decoding is the caller's concern.
func (r *anthropicReviewer) Review(ctx context.Context, req *core.ReviewRequest) (string, error) {
	userPrompt, err := renderPrompt(req)
	if err != nil {
		return "", fmt.Errorf("failed to render review prompt: %w", err)
	}

	msg, err := r.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: defaultMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in model response")
}
