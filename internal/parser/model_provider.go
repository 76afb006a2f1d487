package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	geminiModel "github.com/cloudwego/eino-ext/components/model/gemini"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"resume-autofill/internal/config"
)

// NewChatModel 按 llm.provider 创建聊天模型
// openai: 任意 OpenAI 兼容接口（默认 DashScope）；gemini: Google Gemini
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (model.BaseChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm.api_key 未配置 (provider=%s)", cfg.Provider)
	}
	timeout := config.GetDuration(cfg.Timeout, 60*time.Second)

	switch cfg.Provider {
	case "", "openai":
		m, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("创建OpenAI兼容聊天模型失败: %w", err)
		}
		return m, nil
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("创建Gemini客户端失败: %w", err)
		}
		m, err := geminiModel.NewChatModel(ctx, &geminiModel.Config{
			Client: client,
			Model:  cfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("创建Gemini聊天模型失败: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("不支持的 llm.provider: %q", cfg.Provider)
	}
}

// NewEmbedder 按 embedding.provider 创建向量模型
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (einoEmbedding.Embedder, error) {
	timeout := config.GetDuration(cfg.Timeout, 30*time.Second)

	switch cfg.Provider {
	case "", "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, fmt.Errorf("embedding.api_key 未配置")
		}
		embCfg := &openaiEmbed.EmbeddingConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: timeout,
		}
		if cfg.Dimensions > 0 {
			dims := cfg.Dimensions
			embCfg.Dimensions = &dims
		}
		e, err := openaiEmbed.NewEmbedder(ctx, embCfg)
		if err != nil {
			return nil, fmt.Errorf("创建OpenAI兼容向量模型失败: %w", err)
		}
		return e, nil
	case "ollama":
		return NewOllamaEmbedder(cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("不支持的 embedding.provider: %q", cfg.Provider)
	}
}
