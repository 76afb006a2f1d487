package processor

import (
	"context"

	"resume-autofill/internal/types"
)

//
// 文档解析相关接口
//

// DocumentParser 将文档字节解析为逐页文本
type DocumentParser interface {
	// ParsePages 返回每一页的文本，顺序与文档页序一致
	ParsePages(ctx context.Context, data []byte) ([]string, error)
}

//
// 生成模型相关接口
//

// Prompt 一次补全调用的提示词
type Prompt struct {
	System string
	User   string
}

// CompletionOptions 生成参数
type CompletionOptions struct {
	Temperature float32
	MaxTokens   int
}

// TextCompleter 文本补全接口，每次调用对应一次模型请求
type TextCompleter interface {
	Complete(ctx context.Context, prompt Prompt, opts CompletionOptions) (string, error)
}

//
// 流水线对外接口
//

// Autofiller 自动填充入口，HTTP层和命令行都依赖此接口
type Autofiller interface {
	AutoFillFromResume(ctx context.Context, data []byte) (types.Record, error)
}

// Advisor 职业顾问对话接口
type Advisor interface {
	Advise(ctx context.Context, message string, profile map[string]any) (string, error)
}

// ReportParser 将上传的学习报告解析为文本
type ReportParser interface {
	ParseReport(ctx context.Context, data []byte) (types.Report, error)
}

// CourseRecommender 根据学习报告生成课程推荐
type CourseRecommender interface {
	Recommend(ctx context.Context, data []byte) (types.Record, error)
}
