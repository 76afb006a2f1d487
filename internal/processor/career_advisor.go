package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"resume-autofill/internal/logger"
	"resume-autofill/internal/tracing"
)

// ErrEmptyMessage 用户消息为空
var ErrEmptyMessage = errors.New("消息不能为空")

const advisorSystemPrompt = `You are Career Buddy AI, a career advisor for students and early-career professionals.
You help with career path suggestions based on skills and interests, resume and portfolio reviews,
interview preparation, skill development plans, job search strategies and industry trends.

Be professional and friendly. Give specific, actionable advice grounded in current industry practice.
Keep answers concise, use bullet points where they help, break complex suggestions into steps,
include concrete examples and point to further resources when useful.

User profile:
%s`

// CareerAdvisor 结合用户画像回答职业问题
type CareerAdvisor struct {
	completer TextCompleter
	options   CompletionOptions
	logger    *zerolog.Logger
}

// NewCareerAdvisor 创建职业顾问，opts 为零值时使用模型默认参数
func NewCareerAdvisor(completer TextCompleter, opts CompletionOptions, l *zerolog.Logger) (*CareerAdvisor, error) {
	if completer == nil {
		return nil, NewConfigurationError("advise", "completer 不能为空")
	}
	if l == nil {
		l = &logger.Logger
	}
	return &CareerAdvisor{completer: completer, options: opts, logger: l}, nil
}

// BuildPrompt 把用户画像写入系统提示词
func (a *CareerAdvisor) BuildPrompt(message string, profile map[string]any) Prompt {
	return Prompt{
		System: fmt.Sprintf(advisorSystemPrompt, renderProfile(profile)),
		User:   message,
	}
}

// Advise 返回模型对用户问题的回答
func (a *CareerAdvisor) Advise(ctx context.Context, message string, profile map[string]any) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	reply, err := a.completer.Complete(ctx, a.BuildPrompt(message, profile), a.options)
	if err != nil {
		return "", wrapModelError(ctx, "advise", "职业顾问回复失败", err)
	}
	a.logger.Debug().
		Str("message_preview", tracing.SafePreview(message)).
		Int("reply_length", len(reply)).
		Msg("职业顾问回复完成")
	return strings.TrimSpace(reply), nil
}

// renderProfile 画像以缩进JSON呈现，键按字母序排列
func renderProfile(profile map[string]any) string {
	if len(profile) == 0 {
		return "(not provided)"
	}
	b, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", profile)
	}
	return string(b)
}
