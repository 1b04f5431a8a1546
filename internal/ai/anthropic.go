package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/musekit/curator/internal/types"
)

// AnthropicVision implements Vision using the Anthropic Messages API
type AnthropicVision struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	caller    *caller
}

// NewAnthropicVision creates an Anthropic-backed vision client
func NewAnthropicVision(cfg Config) *AnthropicVision {
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	return &AnthropicVision{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
		caller:    newCaller(cfg.Retry),
	}
}

// Classify implements ImageClassifier
func (a *AnthropicVision) Classify(ctx context.Context, imageURL string) (*types.SafetyClassification, error) {
	text, err := a.complete(ctx, "classify", imageURL, safetySystemPrompt, safetyPrompt)
	if err != nil {
		return nil, err
	}

	response, err := ParseJSON[classifyResponse](text, classifyContext(imageURL))
	if err != nil {
		return nil, err
	}
	return response.toClassification(imageURL), nil
}

// Analyze implements TraitAnalyzer
func (a *AnthropicVision) Analyze(ctx context.Context, imageURL string) (*types.TraitAnalysis, error) {
	text, err := a.complete(ctx, "analyze", imageURL, traitSystemPrompt, traitPrompt)
	if err != nil {
		return nil, err
	}

	traits, err := ParseJSON[types.TraitAnalysis](text, traitContext(imageURL))
	if err != nil {
		return nil, err
	}
	return &traits, nil
}

// complete sends one image-plus-prompt message and returns the text
// content of the response
func (a *AnthropicVision) complete(ctx context.Context, operation, imageURL, system, prompt string) (string, error) {
	var response *anthropic.Message
	err := a.caller.call(ctx, operation, func(attemptCtx context.Context) error {
		resp, apiErr := a.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(a.model),
			MaxTokens: a.maxTokens,
			System: []anthropic.TextBlockParam{
				{Text: system},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: imageURL}),
					anthropic.NewTextBlock(prompt),
				),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic %s call: %w", operation, err)
	}

	var sb strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic %s call: empty response", operation)
	}
	return sb.String(), nil
}
