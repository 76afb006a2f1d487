package processor

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-autofill/internal/logger"
	"resume-autofill/internal/types"
)

const recommenderSystemPrompt = "You are a learning advisor that recommends online courses. " +
	"Respond with a single raw JSON object and nothing else."

const recommenderUserPromptTemplate = `Analyze this student report and generate personalized course recommendations.

Report Content:
%s

Performance Score: %s%%

Return the recommendations in JSON format exactly as shown in the template below.

Template:
%s

Rules:
1. Focus on areas where the student needs improvement.
2. Recommend real, available courses from known platforms (Coursera, edX, Udemy).
3. Include 2-3 topics with 2-3 courses each.
4. Ensure valid JSON format without any markdown.
5. Return ONLY the JSON object.`

// DefaultRecommendationOptions 课程推荐的生成参数，比结构化提取更发散
var DefaultRecommendationOptions = CompletionOptions{Temperature: 0.7, MaxTokens: 2048}

var performancePattern = regexp.MustCompile(`(?i)Overall performance\s*:\s*([\d.]+)%`)

// ParsePerformance 从报告文本中读取总体成绩百分比，找不到或无法解析时为0
func ParsePerformance(text string) float64 {
	m := performancePattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

// Recommender 解析学习报告并让生成模型给出符合推荐模板的课程列表
type Recommender struct {
	reports   ReportParser
	extractor *StructuredExtractor
	tracer    trace.Tracer
	logger    *zerolog.Logger
}

// NewRecommender 创建课程推荐器，opts 作用于内部的结构化生成
func NewRecommender(reports ReportParser, completer TextCompleter, opts ...ExtractorOption) (*Recommender, error) {
	if reports == nil {
		return nil, NewConfigurationError("recommend", "报告解析器不能为空")
	}
	l := logger.Named("recommender")
	opts = append([]ExtractorOption{
		WithCompletionOptions(DefaultRecommendationOptions),
		WithExtractorLogger(l),
	}, opts...)
	extractor, err := NewStructuredExtractor(completer, RecommendationTemplate(), opts...)
	if err != nil {
		return nil, err
	}
	return &Recommender{
		reports:   reports,
		extractor: extractor,
		tracer:    defaultTracer(),
		logger:    l,
	}, nil
}

// BuildPrompt 报告优先以 Markdown 写入，保留标题和表格结构
func (r *Recommender) BuildPrompt(report types.Report, performance float64) Prompt {
	content := report.Markdown
	if content == "" {
		content = report.Text
	}
	return Prompt{
		System: recommenderSystemPrompt,
		User: fmt.Sprintf(recommenderUserPromptTemplate,
			content,
			strconv.FormatFloat(performance, 'f', -1, 64),
			r.extractor.Template().Example()),
	}
}

// Recommend 解析报告、读取成绩并生成课程推荐
func (r *Recommender) Recommend(ctx context.Context, data []byte) (types.Record, error) {
	ctx, span := r.tracer.Start(ctx, "recommend",
		trace.WithAttributes(attribute.Int("document.bytes", len(data))))
	defer span.End()

	if err := ctxCheck(ctx, "extract"); err != nil {
		return nil, markSpan(span, err)
	}
	report, err := r.reports.ParseReport(ctx, data)
	if err != nil {
		if cerr := ctxCheck(ctx, "extract"); cerr != nil {
			return nil, markSpan(span, cerr)
		}
		return nil, markSpan(span, NewExtractionError("extract", "解析学习报告失败", err))
	}

	performance := ParsePerformance(report.Text)
	span.SetAttributes(attribute.Float64("report.performance", performance))
	r.logger.Debug().
		Float64("performance", performance).
		Int("text_chars", len(report.Text)).
		Msg("学习报告解析完成")

	record, err := r.extractor.Generate(ctx, r.BuildPrompt(report, performance))
	if err != nil {
		if kind := KindOf(err); kind != KindCanceled {
			r.logger.Warn().Err(err).Str("kind", string(kind)).Msg("课程推荐失败")
		}
		return nil, markSpan(span, err)
	}
	return record, nil
}
