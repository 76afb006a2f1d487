package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/rs/zerolog"

	"resume-autofill/internal/logger"
)

// ErrNoPages 文档中没有解析出任何页面
var ErrNoPages = errors.New("PDF中没有页面")

// EinoPDFPageParser 使用 Eino PDF Parser 按页提取文本
type EinoPDFPageParser struct {
	parser  *pdf.PDFParser
	logger  *zerolog.Logger
	timeout time.Duration
}

// EinoPDFOption PDF解析器的配置选项
type EinoPDFOption func(*EinoPDFPageParser)

// WithEinoLogger 配置日志记录器
func WithEinoLogger(l *zerolog.Logger) EinoPDFOption {
	return func(e *EinoPDFPageParser) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithParseTimeout 单个文档的解析超时，<=0 表示只受调用方上下文限制
func WithParseTimeout(d time.Duration) EinoPDFOption {
	return func(e *EinoPDFPageParser) { e.timeout = d }
}

// NewEinoPDFPageParser 初始化按页解析的 Eino PDF 解析器
func NewEinoPDFPageParser(ctx context.Context, options ...EinoPDFOption) (*EinoPDFPageParser, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: true, // 每页一个文档，由调用方决定如何拼接
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Eino PDF parser: %w", err)
	}

	extractor := &EinoPDFPageParser{
		parser:  p,
		logger:  logger.Named("pdf_parser"),
		timeout: 30 * time.Second,
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor, nil
}

// ParsePages 从内存中的PDF字节提取逐页文本，不落盘
func (e *EinoPDFPageParser) ParsePages(ctx context.Context, data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, errors.New("PDF内容为空")
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	startTime := time.Now()
	docs, err := e.parser.Parse(ctx, bytes.NewReader(data),
		einoParser.WithURI("upload.pdf"),
		einoParser.WithExtraMeta(map[string]any{"size_bytes": len(data)}),
	)
	if err != nil {
		e.logger.Warn().Err(err).Dur("elapsed", time.Since(startTime)).Msg("PDF解析失败")
		return nil, fmt.Errorf("eino PDF parser failed: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNoPages
	}

	pages := make([]string, 0, len(docs))
	chars := 0
	for _, doc := range docs {
		if doc == nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, doc.Content)
		chars += len(doc.Content)
	}
	e.logger.Debug().
		Int("pages", len(pages)).
		Int("chars", chars).
		Dur("elapsed", time.Since(startTime)).
		Msg("PDF解析完成")
	return pages, nil
}
