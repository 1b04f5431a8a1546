package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/musekit/curator/internal/types"
)

// OpenAIVision implements Vision using the OpenAI chat completions API
type OpenAIVision struct {
	client    *openai.Client
	model     string
	maxTokens int64
	caller    *caller
}

// NewOpenAIVision creates an OpenAI-backed vision client
func NewOpenAIVision(cfg Config) *OpenAIVision {
	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	return &OpenAIVision{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
		caller:    newCaller(cfg.Retry),
	}
}

// Classify implements ImageClassifier
func (o *OpenAIVision) Classify(ctx context.Context, imageURL string) (*types.SafetyClassification, error) {
	text, err := o.complete(ctx, "classify", imageURL, safetySystemPrompt, safetyPrompt)
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
func (o *OpenAIVision) Analyze(ctx context.Context, imageURL string) (*types.TraitAnalysis, error) {
	text, err := o.complete(ctx, "analyze", imageURL, traitSystemPrompt, traitPrompt)
	if err != nil {
		return nil, err
	}

	traits, err := ParseJSON[types.TraitAnalysis](text, traitContext(imageURL))
	if err != nil {
		return nil, err
	}
	return &traits, nil
}

// complete sends one image-plus-prompt chat completion and returns the
// message content
func (o *OpenAIVision) complete(ctx context.Context, operation, imageURL, system, prompt string) (string, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: imageURL,
		}),
		openai.TextContentPart(prompt),
	}

	var content string
	err := o.caller.call(ctx, operation, func(attemptCtx context.Context) error {
		resp, apiErr := o.client.Chat.Completions.New(attemptCtx, openai.ChatCompletionNewParams{
			Model: o.model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(system),
				openai.UserMessage(parts),
			},
			MaxCompletionTokens: openai.Int(o.maxTokens),
		})
		if apiErr != nil {
			return apiErr
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no choices returned")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("openai %s call: %w", operation, err)
	}
	if content == "" {
		return "", fmt.Errorf("openai %s call: empty response", operation)
	}
	return content, nil
}
