package processor

import (
	"context"
	"errors"
	"fmt"

	"resume-autofill/internal/tracing"
)

// ErrorKind 自动填充流水线的错误类别
type ErrorKind string

const (
	KindExtraction       ErrorKind = "extraction"
	KindConfiguration    ErrorKind = "configuration"
	KindGeneration       ErrorKind = "generation"
	KindParse            ErrorKind = "parse"
	KindSchemaValidation ErrorKind = "schema_validation"
	KindCanceled         ErrorKind = "canceled"
)

// 定义基础错误类型
var (
	ErrExtraction       = errors.New("提取简历文本失败")
	ErrConfiguration    = errors.New("参数配置错误")
	ErrGeneration       = errors.New("模型调用失败")
	ErrParse            = errors.New("模型输出不是合法JSON")
	ErrSchemaValidation = errors.New("模型输出不符合模板结构")
	ErrCanceled         = errors.New("请求已取消")
)

var kindSentinels = map[ErrorKind]error{
	KindExtraction:       ErrExtraction,
	KindConfiguration:    ErrConfiguration,
	KindGeneration:       ErrGeneration,
	KindParse:            ErrParse,
	KindSchemaValidation: ErrSchemaValidation,
	KindCanceled:         ErrCanceled,
}

// AutofillError 包含错误类别、阶段和原因的自定义错误
type AutofillError struct {
	Kind   ErrorKind
	Op     string // 出错的阶段，如 extract、chunk、embed、retrieve、generate
	Detail string
	Err    error // 底层原因，可能为nil
}

func (e *AutofillError) Error() string {
	msg := fmt.Sprintf("%s (操作:%s)", kindSentinels[e.Kind], e.Op)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AutofillError) Unwrap() error {
	return e.Err
}

// Is 实现 errors.Is 接口，按类别匹配基础错误
func (e *AutofillError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf 返回错误链中的 AutofillError 类别，非流水线错误返回空串
func KindOf(err error) ErrorKind {
	var ae *AutofillError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// traceErrorType 错误类别到追踪错误类型的映射
func traceErrorType(kind ErrorKind) tracing.ErrorType {
	switch kind {
	case KindExtraction:
		return tracing.ErrorTypeExtraction
	case KindConfiguration:
		return tracing.ErrorTypeConfiguration
	case KindGeneration:
		return tracing.ErrorTypeModel
	case KindParse:
		return tracing.ErrorTypeParse
	case KindSchemaValidation:
		return tracing.ErrorTypeValidation
	case KindCanceled:
		return tracing.ErrorTypeCanceled
	default:
		return tracing.ErrorTypeInternal
	}
}

// 错误构造函数
func NewExtractionError(op, detail string, err error) error {
	return &AutofillError{Kind: KindExtraction, Op: op, Detail: detail, Err: err}
}

func NewConfigurationError(op, detail string) error {
	return &AutofillError{Kind: KindConfiguration, Op: op, Detail: detail}
}

func NewGenerationError(op, detail string, err error) error {
	return &AutofillError{Kind: KindGeneration, Op: op, Detail: detail, Err: err}
}

func NewParseError(detail string, err error) error {
	return &AutofillError{Kind: KindParse, Op: "parse", Detail: detail, Err: err}
}

func NewSchemaValidationError(detail string, err error) error {
	return &AutofillError{Kind: KindSchemaValidation, Op: "validate", Detail: detail, Err: err}
}

// newCanceledError 包装上下文错误，errors.Is(err, context.Canceled) 仍然成立
func newCanceledError(op string, err error) error {
	return &AutofillError{Kind: KindCanceled, Op: op, Err: err}
}

// ctxCheck 在进入下一阶段前检查上下文
func ctxCheck(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return newCanceledError(op, err)
	}
	return nil
}

// wrapModelError 模型调用出错时区分取消和生成失败
func wrapModelError(ctx context.Context, op, detail string, err error) error {
	if ctx.Err() != nil {
		return newCanceledError(op, err)
	}
	return NewGenerationError(op, detail, err)
}
