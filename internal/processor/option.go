package processor

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"resume-autofill/internal/logger"
)

// SettingOpt 设置选项类型，仅改变 Settings 结构体内的字段
type SettingOpt func(*Settings)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
	DefaultTopK         = 5
	DefaultQuery        = "Extract resume details for auto-fill"
)

// DefaultSettings 返回默认流水线参数
func DefaultSettings() Settings {
	return Settings{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		TopK:         DefaultTopK,
		Query:        DefaultQuery,
		Logger:       &logger.Logger,
		Tracer:       defaultTracer(),
	}
}

// Validate 检查分块与检索参数，非法时返回 ConfigurationError
func (s Settings) Validate() error {
	if s.ChunkSize <= 0 {
		return NewConfigurationError("init", fmt.Sprintf("分块大小必须为正数，当前为 %d", s.ChunkSize))
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return NewConfigurationError("init", fmt.Sprintf("重叠词数必须在 [0, %d) 之间，当前为 %d", s.ChunkSize, s.ChunkOverlap))
	}
	if s.TopK <= 0 {
		return NewConfigurationError("init", fmt.Sprintf("top_k 必须为正整数，当前为 %d", s.TopK))
	}
	if strings.TrimSpace(s.Query) == "" {
		return NewConfigurationError("init", "检索查询不能为空")
	}
	return nil
}

// WithChunking 设置分块大小和重叠词数
func WithChunking(size, overlap int) SettingOpt {
	return func(s *Settings) {
		s.ChunkSize = size
		s.ChunkOverlap = overlap
	}
}

// WithTopK 设置检索返回的分块数
func WithTopK(k int) SettingOpt {
	return func(s *Settings) { s.TopK = k }
}

// WithQuery 设置检索查询，空串保留默认值
func WithQuery(q string) SettingOpt {
	return func(s *Settings) {
		if q != "" {
			s.Query = q
		}
	}
}

// WithLogger 设置流水线日志
func WithLogger(l *zerolog.Logger) SettingOpt {
	return func(s *Settings) {
		if l != nil {
			s.Logger = l
		}
	}
}

// WithTracer 设置链路追踪使用的 Tracer
func WithTracer(t trace.Tracer) SettingOpt {
	return func(s *Settings) {
		if t != nil {
			s.Tracer = t
		}
	}
}
