package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Compile-time interface check
var _ Summarizer = (*OpenAI)(nil)

// systemPrompt fixes the output language and forbids commentary.
const systemPrompt = "당신은 웹소설 편집자입니다. 요청된 형식의 본문만 한국어로 작성하고, 설명이나 인사말은 쓰지 마십시오."

// CompletionsService defines the interface for making chat completion calls.
// This abstraction enables testing without calling the real OpenAI API.
type CompletionsService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI implements Summarizer using OpenAI's chat completions API.
type OpenAI struct {
	completions CompletionsService
	model       openai.ChatModel
}

// NewOpenAI creates a new OpenAI summarizer. An empty baseURL uses the
// public endpoint.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAI{
		completions: client.Chat.Completions,
		model:       openai.ChatModel(model),
	}
}

// Complete sends prompt as a single user message.
func (o *OpenAI) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		}),
		Model: openai.F(o.model),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.F(opts.MaxTokens)
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.F(opts.Temperature)
	}

	resp, err := o.completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// ModelName returns the chat model name
func (o *OpenAI) ModelName() string {
	return string(o.model)
}
