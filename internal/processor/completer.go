package processor

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatCompleter 将 eino 聊天模型适配为 TextCompleter
type ChatCompleter struct {
	model model.BaseChatModel
}

// NewChatCompleter 包装任意 eino 聊天模型（OpenAI兼容接口、Gemini等）
func NewChatCompleter(m model.BaseChatModel) *ChatCompleter {
	return &ChatCompleter{model: m}
}

// Complete 发送系统消息和用户消息，返回助手回复的文本
func (c *ChatCompleter) Complete(ctx context.Context, prompt Prompt, opts CompletionOptions) (string, error) {
	if c.model == nil {
		return "", errors.New("聊天模型未初始化")
	}

	messages := make([]*schema.Message, 0, 2)
	if prompt.System != "" {
		messages = append(messages, schema.SystemMessage(prompt.System))
	}
	messages = append(messages, schema.UserMessage(prompt.User))

	var modelOpts []model.Option
	if opts.Temperature > 0 {
		modelOpts = append(modelOpts, model.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		modelOpts = append(modelOpts, model.WithMaxTokens(opts.MaxTokens))
	}

	resp, err := c.model.Generate(ctx, messages, modelOpts...)
	if err != nil {
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", errors.New("模型返回了空回复")
	}
	return resp.Content, nil
}
