package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"resume-autofill/internal/logger"
	"resume-autofill/internal/tracing"
	"resume-autofill/internal/types"
)

const extractorSystemPrompt = "You are an assistant that extracts resume details and outputs them in a strict JSON format. " +
	"Return only the raw JSON object that follows the provided template exactly, with no surrounding prose or markdown fencing."

const extractorUserPromptTemplate = `Extract the following information from the resume excerpts provided and return it in JSON format exactly as shown in the template below.
Ensure the JSON structure matches the template. If a field is not found, leave it as an empty string; if a list has no entries, leave it as an empty list.
Do not include any markdown formatting, triple backticks, or extra commentary. Return only the JSON object.

Template:
%s

Retrieved resume context:
%s`

// DefaultCompletionOptions 结构化提取使用的生成参数
var DefaultCompletionOptions = CompletionOptions{Temperature: 0.2, MaxTokens: 700}

// StructuredExtractor 将检索到的简历片段交给生成模型，解析并校验为模板结构
type StructuredExtractor struct {
	completer TextCompleter
	template  *Template
	retry     RetryPolicy
	options   CompletionOptions
	logger    *zerolog.Logger
}

// ExtractorOption 配置 StructuredExtractor 的选项
type ExtractorOption func(*StructuredExtractor)

// WithRetryPolicy 设置补全调用的重试策略
func WithRetryPolicy(p RetryPolicy) ExtractorOption {
	return func(e *StructuredExtractor) {
		if p != nil {
			e.retry = p
		}
	}
}

// WithCompletionOptions 设置生成参数
func WithCompletionOptions(opts CompletionOptions) ExtractorOption {
	return func(e *StructuredExtractor) { e.options = opts }
}

// WithExtractorLogger 设置日志记录器
func WithExtractorLogger(l *zerolog.Logger) ExtractorOption {
	return func(e *StructuredExtractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewStructuredExtractor 创建结构化提取器，template 为nil时使用简历模板
func NewStructuredExtractor(completer TextCompleter, template *Template, opts ...ExtractorOption) (*StructuredExtractor, error) {
	if completer == nil {
		return nil, NewConfigurationError("generate", "completer 不能为空")
	}
	if template == nil {
		template = ResumeTemplate()
	}
	e := &StructuredExtractor{
		completer: completer,
		template:  template,
		retry:     SingleAttempt{},
		options:   DefaultCompletionOptions,
		logger:    &logger.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Template 返回提取器使用的模板
func (e *StructuredExtractor) Template() *Template {
	return e.template
}

// BuildPrompt 将模板示例和检索上下文写入提示词
func (e *StructuredExtractor) BuildPrompt(retrievedContext string) Prompt {
	return Prompt{
		System: extractorSystemPrompt,
		User:   fmt.Sprintf(extractorUserPromptTemplate, e.template.Example(), retrievedContext),
	}
}

// Extract 调用生成模型并返回符合模板的结构化记录，失败时不返回部分结果
func (e *StructuredExtractor) Extract(ctx context.Context, retrievedContext string) (types.Record, error) {
	e.logger.Debug().Int("context_length", len(retrievedContext)).Msg("发送结构化提取请求")
	return e.Generate(ctx, e.BuildPrompt(retrievedContext))
}

// Generate 用给定的提示词调用生成模型，按重试策略重试后解析并校验输出
func (e *StructuredExtractor) Generate(ctx context.Context, prompt Prompt) (types.Record, error) {
	e.logger.Debug().Str("user_prompt_preview", tracing.SafePreview(prompt.User)).Msg("调用生成模型")

	var raw string
	attempt := 0
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		attempt++
		out, err := e.completer.Complete(ctx, prompt, e.options)
		if err != nil {
			e.logger.Warn().Err(err).Int("attempt", attempt).Msg("补全调用失败")
			return err
		}
		raw = out
		return nil
	})
	if err != nil {
		return nil, wrapModelError(ctx, "generate", fmt.Sprintf("补全调用失败(共尝试 %d 次)", attempt), err)
	}

	e.logger.Debug().Str("response_preview", tracing.SafePreview(raw)).Msg("收到模型输出")
	return e.ParseResponse(raw)
}

// ParseResponse 去除BOM与代码围栏后解析JSON并按模板校验
func (e *StructuredExtractor) ParseResponse(raw string) (types.Record, error) {
	cleaned := StripCodeFence(raw)
	if cleaned == "" {
		return nil, NewParseError("模型输出为空", nil)
	}

	dec := json.NewDecoder(strings.NewReader(cleaned))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, NewParseError("无法解析模型输出: "+tracing.SafePreview(cleaned), err)
	}
	if dec.More() {
		return nil, NewParseError("JSON之后存在多余内容: "+tracing.SafePreview(cleaned), nil)
	}

	if err := e.template.Validate(v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, NewSchemaValidationError("顶层不是JSON对象", nil)
	}
	return types.Record(obj), nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// StripCodeFence 去除首尾空白、BOM，以及开头的 ```json / ``` 和结尾的 ```
func StripCodeFence(text string) string {
	b := bytes.TrimPrefix([]byte(strings.TrimSpace(text)), utf8BOM)
	s := strings.TrimSpace(string(b))

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
			s = s[4:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
