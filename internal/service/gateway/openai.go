package gateway

import (
	"context"
	"errors"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/zhouzirui/relaychat/backend/internal/config"
)

// OpenAIGenerator 调用 OpenAI 兼容的 chat completion 接口。
type OpenAIGenerator struct {
	client       *openai.Client
	model        string
	systemPrompt string
}

func NewOpenAIGenerator(cfg config.OpenAIConfig, systemPrompt string) (*OpenAIGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is required for the openai provider")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIGenerator{
		client:       openai.NewClientWithConfig(clientConfig),
		model:        cfg.Model,
		systemPrompt: systemPrompt,
	}, nil
}

func (g *OpenAIGenerator) Name() string { return "openai" }

func (g *OpenAIGenerator) Generate(ctx context.Context, question, history string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if g.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: g.systemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: buildQuery(question, history)})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		return "", pkgerrors.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
