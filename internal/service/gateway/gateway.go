package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zhouzirui/relaychat/backend/internal/config"
)

var (
	ErrUnknownProvider = errors.New("unknown gateway provider")
	ErrEmptyReply      = errors.New("provider returned no text")
)

// Generator 根据问题与上下文生成一段回复。
type Generator interface {
	Name() string
	Generate(ctx context.Context, question, history string) (string, error)
}

// New 按 cfg.Provider 选择并创建生成器。
func New(ctx context.Context, cfg config.GatewayConfig) (Generator, error) {
	switch cfg.Provider {
	case "ark":
		chatModel, err := cfg.Ark.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		gen, err := NewArkGenerator(ctx, chatModel, cfg.SystemPrompt)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case "openai":
		gen, err := NewOpenAIGenerator(cfg.OpenAI, cfg.SystemPrompt)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case "gemini":
		gen, err := NewGeminiGenerator(ctx, cfg.Gemini, cfg.SystemPrompt)
		if err != nil {
			return nil, err
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// buildQuery 把上下文并入用户问题。上下文只是问题本身时直接返回问题。
func buildQuery(question, history string) string {
	history = strings.TrimSpace(history)
	if history == "" || history == strings.TrimSpace(question) {
		return question
	}

	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	b.WriteString(history)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
