package llm

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// anthropicMessages is the slice of the SDK client the adapter uses,
// satisfied by *sdk.MessageService and by mocks in tests.
type anthropicMessages interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicClient generates completions through the Claude Messages API.
type AnthropicClient struct {
	msg         anthropicMessages
	model       string
	maxTokens   int64
	temperature float64
}

func NewAnthropicClient(apiKey, model string, maxTokens int, temperature float64) *AnthropicClient {
	if model == "" {
		model = defaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = 350
	}
	if temperature <= 0 {
		temperature = 0.7
	}
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{
		msg:         &client.Messages,
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: temperature,
	}
}

func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest, onDelta DeltaHandler) (CompletionResponse, error) {
	conversation := make([]sdk.MessageParam, 0, 1+2*len(req.FewShot))
	for _, ex := range req.FewShot {
		conversation = append(conversation,
			sdk.NewUserMessage(sdk.NewTextBlock(ex.User)),
			sdk.NewAssistantMessage(sdk.NewTextBlock(ex.Assistant)),
		)
	}
	conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)))

	params := sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   c.maxTokens,
		Messages:    conversation,
		Temperature: sdk.Float(c.temperature),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("anthropic messages.new: %w", err)
	}

	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}

	text := out.String()
	if onDelta != nil && text != "" {
		if err := onDelta(text); err != nil {
			return CompletionResponse{}, err
		}
	}

	return CompletionResponse{
		Text: text,
		Usage: &Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}
