package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"

	"resume-autofill/internal/config"
	"resume-autofill/internal/logger"
	"resume-autofill/internal/parser"
)

// Services 由配置创建的全部业务组件
type Services struct {
	Processor   *AutofillProcessor
	Advisor     *CareerAdvisor // advisor.enabled 为 false 时为 nil
	Recommender *Recommender   // recommender.enabled 为 false 时为 nil
}

// CreatePDFParser 创建按页解析的PDF解析器
func CreatePDFParser(ctx context.Context, cfg *config.Config) (DocumentParser, error) {
	p, err := parser.NewEinoPDFPageParser(ctx,
		parser.WithEinoLogger(logger.Named("pdf_parser")),
		parser.WithParseTimeout(config.GetDuration(cfg.Server.RequestTimeout, 30*time.Second)),
	)
	if err != nil {
		return nil, NewConfigurationError("init", fmt.Sprintf("创建PDF解析器失败: %v", err))
	}
	return p, nil
}

// CreateEmbeddingIndex 按 embedding 配置创建向量索引
func CreateEmbeddingIndex(ctx context.Context, cfg *config.Config) (*EmbeddingIndex, error) {
	embedder, err := parser.NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return nil, NewConfigurationError("init", fmt.Sprintf("创建向量模型失败: %v", err))
	}
	return NewEmbeddingIndex(embedder,
		WithBatchSize(cfg.Autofill.EmbedBatchSize),
		WithConcurrency(cfg.Autofill.EmbedConcurrency),
		WithIndexLogger(logger.Named("embedding_index")),
	)
}

// CreateRecommender 创建学习报告课程推荐器，重试策略与自动填充一致
func CreateRecommender(cfg *config.Config, chat model.BaseChatModel) (*Recommender, error) {
	r := cfg.Recommender
	retry := cfg.Autofill.Retry
	return NewRecommender(parser.NewHTMLReportParser(logger.Named("report_parser")), NewChatCompleter(chat),
		WithRetryPolicy(NewRetryPolicy(retry.MaxAttempts, config.GetDuration(retry.Wait, time.Second))),
		WithCompletionOptions(CompletionOptions{Temperature: r.Temperature, MaxTokens: r.MaxTokens}),
	)
}

// CreateAutofillProcessor 创建完整的自动填充流水线
func CreateAutofillProcessor(ctx context.Context, cfg *config.Config, chat model.BaseChatModel) (*AutofillProcessor, error) {
	pdfParser, err := CreatePDFParser(ctx, cfg)
	if err != nil {
		return nil, err
	}
	index, err := CreateEmbeddingIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := cfg.Autofill
	extractor, err := NewStructuredExtractor(NewChatCompleter(chat), ResumeTemplate(),
		WithRetryPolicy(NewRetryPolicy(a.Retry.MaxAttempts, config.GetDuration(a.Retry.Wait, time.Second))),
		WithCompletionOptions(CompletionOptions{Temperature: a.Temperature, MaxTokens: a.MaxTokens}),
		WithExtractorLogger(logger.Named("structured_extractor")),
	)
	if err != nil {
		return nil, err
	}

	return NewAutofillProcessor(&Components{
		Parser:    pdfParser,
		Index:     index,
		Extractor: extractor,
	},
		WithChunking(a.ChunkSize, a.ChunkOverlap),
		WithTopK(a.TopK),
		WithQuery(a.Query),
		WithLogger(logger.Named("autofill")),
	)
}

// CreateServices 创建服务端使用的全部组件，聊天模型在流水线和职业顾问之间共用
func CreateServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	chat, err := parser.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		return nil, NewConfigurationError("init", fmt.Sprintf("创建聊天模型失败: %v", err))
	}

	proc, err := CreateAutofillProcessor(ctx, cfg, chat)
	if err != nil {
		return nil, err
	}
	services := &Services{Processor: proc}

	if cfg.Advisor.Enabled {
		advisor, err := NewCareerAdvisor(NewChatCompleter(chat), CompletionOptions{
			Temperature: cfg.Advisor.Temperature,
			MaxTokens:   cfg.Advisor.MaxTokens,
		}, logger.Named("career_advisor"))
		if err != nil {
			return nil, err
		}
		services.Advisor = advisor
	}

	if cfg.Recommender.Enabled {
		recommender, err := CreateRecommender(cfg, chat)
		if err != nil {
			return nil, err
		}
		services.Recommender = recommender
	}
	return services, nil
}
