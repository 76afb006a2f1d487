package processor // 简历自动填充流水线：文本提取、分块、向量检索、结构化提取

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-autofill/internal/tracing"
	"resume-autofill/internal/types"
)

const tracerName = "resume-autofill/processor"

// Components 聚合流水线的外部能力，便于集中管理和测试替换
type Components struct {
	Parser    DocumentParser       // PDF 逐页文本
	Index     *EmbeddingIndex      // 分块向量化与检索
	Extractor *StructuredExtractor // 生成并校验结构化记录
}

// Settings 纯配置项，不包含任何业务组件
type Settings struct {
	ChunkSize    int    // 每个分块的词数
	ChunkOverlap int    // 相邻分块重叠的词数
	TopK         int    // 检索返回的分块数
	Query        string // 检索使用的固定查询
	Logger       *zerolog.Logger
	Tracer       trace.Tracer
}

// AutofillProcessor 按顺序执行四个阶段，任一阶段失败立即返回
// 所有中间结果只在单次调用内存在
type AutofillProcessor struct {
	parser    DocumentParser
	index     *EmbeddingIndex
	extractor *StructuredExtractor
	settings  Settings
}

// NewAutofillProcessor 校验组件与参数后创建流水线
func NewAutofillProcessor(components *Components, opts ...SettingOpt) (*AutofillProcessor, error) {
	if components == nil || components.Parser == nil || components.Index == nil || components.Extractor == nil {
		return nil, NewConfigurationError("init", "流水线组件不完整")
	}
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &AutofillProcessor{
		parser:    components.Parser,
		index:     components.Index,
		extractor: components.Extractor,
		settings:  settings,
	}, nil
}

// Settings 返回流水线当前的配置副本
func (p *AutofillProcessor) Settings() Settings {
	return p.settings
}

// AutoFillFromResume 从PDF字节得到结构化简历记录
func (p *AutofillProcessor) AutoFillFromResume(ctx context.Context, data []byte) (types.Record, error) {
	ctx, span := p.settings.Tracer.Start(ctx, "autofill.pipeline",
		trace.WithAttributes(attribute.Int("document.bytes", len(data))))
	defer span.End()
	log := p.settings.Logger
	begin := time.Now()

	text, err := p.ExtractText(ctx, data)
	if err != nil {
		return nil, p.fail(span, err)
	}

	chunks, err := p.Chunk(ctx, text)
	if err != nil {
		return nil, p.fail(span, err)
	}

	results, err := p.Retrieve(ctx, chunks)
	if err != nil {
		return nil, p.fail(span, err)
	}

	record, err := p.Fill(ctx, JoinContext(results))
	if err != nil {
		return nil, p.fail(span, err)
	}

	log.Info().
		Int("text_length", len(text)).
		Int("chunks", len(chunks)).
		Int("retrieved", len(results)).
		Dur("elapsed", time.Since(begin)).
		Msg("简历自动填充完成")
	return record, nil
}

// ExtractText 文本提取阶段
func (p *AutofillProcessor) ExtractText(ctx context.Context, data []byte) (string, error) {
	if err := ctxCheck(ctx, "extract"); err != nil {
		return "", err
	}
	ctx, span := p.settings.Tracer.Start(ctx, "autofill.extract")
	defer span.End()

	text, err := ExtractText(ctx, p.parser, data)
	if err != nil {
		return "", markSpan(span, err)
	}
	span.SetAttributes(attribute.Int("text.length", len(text)))
	p.settings.Logger.Debug().Int("text_length", len(text)).Msg("简历文本提取完成")
	return text, nil
}

// Chunk 分块阶段
func (p *AutofillProcessor) Chunk(ctx context.Context, text string) ([]types.Chunk, error) {
	if err := ctxCheck(ctx, "chunk"); err != nil {
		return nil, err
	}
	chunks, err := ChunkWords(text, p.settings.ChunkSize, p.settings.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	p.settings.Logger.Debug().
		Int("chunks", len(chunks)).
		Int("chunk_size", p.settings.ChunkSize).
		Int("overlap", p.settings.ChunkOverlap).
		Msg("简历分块完成")
	return chunks, nil
}

// Retrieve 向量化并检索阶段，返回与固定查询最相关的分块
func (p *AutofillProcessor) Retrieve(ctx context.Context, chunks []types.Chunk) ([]types.ScoredChunk, error) {
	return p.RetrieveFor(ctx, p.settings.Query, chunks)
}

// RetrieveFor 使用指定查询进行检索
func (p *AutofillProcessor) RetrieveFor(ctx context.Context, query string, chunks []types.Chunk) ([]types.ScoredChunk, error) {
	if err := ctxCheck(ctx, "embed"); err != nil {
		return nil, err
	}
	embedCtx, span := p.settings.Tracer.Start(ctx, "autofill.embed",
		trace.WithAttributes(attribute.Int("chunks", len(chunks))))
	embeddings, err := p.index.Embed(embedCtx, chunks)
	if err != nil {
		markSpan(span, err)
		span.End()
		return nil, err
	}
	span.End()

	if err := ctxCheck(ctx, "retrieve"); err != nil {
		return nil, err
	}
	ctx, span = p.settings.Tracer.Start(ctx, "autofill.retrieve",
		trace.WithAttributes(attribute.Int("top_k", p.settings.TopK)))
	defer span.End()
	results, err := p.index.Retrieve(ctx, query, chunks, embeddings, p.settings.TopK)
	if err != nil {
		return nil, markSpan(span, err)
	}
	if len(results) > 0 {
		span.SetAttributes(attribute.Float64("top_score", results[0].Score))
	}
	return results, nil
}

// Fill 结构化提取阶段
func (p *AutofillProcessor) Fill(ctx context.Context, retrievedContext string) (types.Record, error) {
	if err := ctxCheck(ctx, "generate"); err != nil {
		return nil, err
	}
	ctx, span := p.settings.Tracer.Start(ctx, "autofill.generate")
	defer span.End()

	record, err := p.extractor.Extract(ctx, retrievedContext)
	if err != nil {
		return nil, markSpan(span, err)
	}
	p.settings.Logger.Debug().Interface("record", tracing.MaskRecord(map[string]any(record))).Msg("结构化提取完成")
	return record, nil
}

// markSpan 在span上记录错误并原样返回
func markSpan(span trace.Span, err error) error {
	kind := KindOf(err)
	tracing.RecordError(span, err, traceErrorType(kind), attribute.String("autofill.error_kind", string(kind)))
	return err
}

// fail 记录流水线级别的错误
func (p *AutofillProcessor) fail(span trace.Span, err error) error {
	if kind := KindOf(err); kind != KindCanceled {
		p.settings.Logger.Warn().Err(err).Str("kind", string(kind)).Msg("简历自动填充失败")
	}
	return markSpan(span, err)
}

// defaultTracer 使用全局 TracerProvider，未初始化时为 noop
func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
