package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/relaychat/backend/pkg/logger"
)

// ArkGenerator 通过 eino 链调用 Ark 模型。
type ArkGenerator struct {
	systemPrompt string
	chain        compose.Runnable[map[string]any, *schema.Message]
}

// NewArkGenerator 编译 "模板 -> 模型" 链。
func NewArkGenerator(ctx context.Context, chatModel model.BaseChatModel, systemPrompt string) (*ArkGenerator, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ArkGenerator{systemPrompt: systemPrompt, chain: runnable}, nil
}

func (g *ArkGenerator) Name() string { return "ark" }

// Generate 运行链并返回模型输出。
func (g *ArkGenerator) Generate(ctx context.Context, question, history string) (string, error) {
	response, err := g.chain.Invoke(ctx, map[string]any{
		"system": g.systemPrompt,
		"query":  buildQuery(question, history),
	})
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	text := strings.TrimSpace(response.Content)
	if text == "" {
		return "", ErrEmptyReply
	}
	logger.Debugf("[gateway] ark generated %d bytes", len(text))
	return text, nil
}
