package backend

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"parley/internal/memory"
	"parley/internal/prompt"
)

// OpenAIGenerator talks to OpenAI or any OpenAI-compatible host.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (g *OpenAIGenerator) Name() string { return "openai" }

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	system := prompt.SystemPrompt
	if req.Context != "" {
		system = system + "\n\nPersonalization context: " + req.Context
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Turns)+3)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, m := range req.Turns {
		if m.Role == memory.RoleSystem {
			continue
		}
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	if req.Guidance != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Conversation guidance: " + req.Guidance,
		})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:     g.model,
		Messages:  msgs,
		MaxTokens:        150,
		Temperature:      0.9,
		FrequencyPenalty: 0.8,
		PresencePenalty:  0.6,
	}
	if req.Diversify {
		chatReq.Messages = append(chatReq.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: diversifyInstruction,
		})
		chatReq.Temperature = 1.0
		chatReq.FrequencyPenalty = 1.0
		chatReq.PresencePenalty = 0.8
	}

	resp, err := g.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return Response{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("chat completion returned no choices")
	}

	return Response{
		Text:        resp.Choices[0].Message.Content,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}
