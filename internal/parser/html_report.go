package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"resume-autofill/internal/logger"
	"resume-autofill/internal/types"
)

var (
	// ErrEmptyReport 报告中没有可读的文字
	ErrEmptyReport = errors.New("报告中没有可读的文字")
	// ErrReportEncoding 报告不是合法的UTF-8文本
	ErrReportEncoding = errors.New("报告不是UTF-8编码")
)

// HTMLReportParser 解析学生上传的HTML学习报告
type HTMLReportParser struct {
	converter *md.Converter
	logger    *zerolog.Logger
}

// NewHTMLReportParser 创建HTML报告解析器，l 为nil时使用全局日志
func NewHTMLReportParser(l *zerolog.Logger) *HTMLReportParser {
	if l == nil {
		l = logger.Named("report_parser")
	}
	return &HTMLReportParser{
		converter: md.NewConverter("", true, nil),
		logger:    l,
	}
}

// ParseReport 去掉脚本和样式后提取正文，同时生成纯文本和 Markdown 两种形式
func (p *HTMLReportParser) ParseReport(ctx context.Context, data []byte) (types.Report, error) {
	if err := ctx.Err(); err != nil {
		return types.Report{}, err
	}
	if !utf8.Valid(data) {
		return types.Report{}, ErrReportEncoding
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return types.Report{}, fmt.Errorf("解析HTML失败: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()

	body := doc.Find("body")
	text := strings.Join(strings.Fields(body.Text()), " ")
	if text == "" {
		return types.Report{}, ErrEmptyReport
	}

	markdown := strings.TrimSpace(p.converter.Convert(body))
	p.logger.Debug().
		Int("html_bytes", len(data)).
		Int("text_chars", len(text)).
		Int("markdown_chars", len(markdown)).
		Msg("HTML报告解析完成")
	return types.Report{Text: text, Markdown: markdown}, nil
}
