package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-autofill/internal/constants"
	"resume-autofill/internal/logger"
	"resume-autofill/internal/processor"
	"resume-autofill/internal/storage"
	"resume-autofill/internal/tracing"
	"resume-autofill/internal/types"
	"resume-autofill/pkg/utils"
)

const (
	// HeaderRequestID 每个请求的唯一ID
	HeaderRequestID = "X-Request-ID"
	// HeaderCache 结果是否来自缓存
	HeaderCache = "X-Cache"

	defaultMaxUploadBytes = 10 << 20
	defaultRequestTimeout = 60 * time.Second
)

// AutofillResponse 成功响应
type AutofillResponse struct {
	Success bool         `json:"success"`
	Data    types.Record `json:"data"`
}

// ErrorResponse 失败响应
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// RecordValidator 校验结构化记录是否符合模板，*processor.Template 实现了该接口
type RecordValidator interface {
	Validate(v any) error
}

// AutofillHandler 处理简历上传并返回自动填充结果
type AutofillHandler struct {
	autofiller     processor.Autofiller
	validator      RecordValidator       // 校验缓存中的记录
	cache          storage.ResultCache   // 可选
	archive        storage.ResumeArchive // 可选
	maxUploadBytes int64
	timeout        time.Duration
	logger         *zerolog.Logger
}

// AutofillOption 配置 AutofillHandler 的选项
type AutofillOption func(*AutofillHandler)

// WithResultCache 启用按文件MD5的结果缓存
func WithResultCache(c storage.ResultCache) AutofillOption {
	return func(h *AutofillHandler) { h.cache = c }
}

// WithArchive 启用原始简历归档
func WithArchive(a storage.ResumeArchive) AutofillOption {
	return func(h *AutofillHandler) { h.archive = a }
}

// WithRecordValidator 设置缓存记录的校验模板，默认为简历模板
func WithRecordValidator(v RecordValidator) AutofillOption {
	return func(h *AutofillHandler) {
		if v != nil {
			h.validator = v
		}
	}
}

// WithMaxUploadBytes 上传文件大小上限
func WithMaxUploadBytes(n int64) AutofillOption {
	return func(h *AutofillHandler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithRequestTimeout 单个请求的处理超时
func WithRequestTimeout(d time.Duration) AutofillOption {
	return func(h *AutofillHandler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithHandlerLogger 设置日志记录器
func WithHandlerLogger(l *zerolog.Logger) AutofillOption {
	return func(h *AutofillHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewAutofillHandler 创建自动填充处理器
func NewAutofillHandler(autofiller processor.Autofiller, opts ...AutofillOption) *AutofillHandler {
	h := &AutofillHandler{
		autofiller:     autofiller,
		validator:      processor.ResumeTemplate(),
		maxUploadBytes: defaultMaxUploadBytes,
		timeout:        defaultRequestTimeout,
		logger:         logger.Named("autofill_handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleAutoFill 处理简历自动填充请求
// POST /api/auto-fill-resume  multipart 字段 resume
func (h *AutofillHandler) HandleAutoFill(ctx context.Context, c *app.RequestContext) {
	requestID := newRequestID()
	c.Response.Header.Set(HeaderRequestID, requestID)
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("request.id", requestID))
	log := h.logger.With().Str("request_id", requestID).Logger()

	// 1. 校验上传的文件
	upload, failure := readUpload(c, constants.ResumeFormField, constants.AllowedResumeExt, h.maxUploadBytes)
	switch failure {
	case uploadOK:
	case uploadNoFilename:
		reject(c, span, consts.StatusBadRequest, "No file selected", "Please select a file to upload")
		return
	case uploadBadExtension:
		reject(c, span, consts.StatusBadRequest, "Invalid file format", "Please upload a PDF file")
		return
	case uploadTooLarge:
		reject(c, span, consts.StatusRequestEntityTooLarge, "File too large",
			fmt.Sprintf("The file must not exceed %d MB", h.maxUploadBytes>>20))
		return
	case uploadUnreadable:
		reject(c, span, consts.StatusInternalServerError, "Processing failed", "Could not read the uploaded file")
		return
	default:
		reject(c, span, consts.StatusBadRequest, "No resume file provided", "Please upload a PDF file")
		return
	}
	data := upload.Data
	if len(data) == 0 {
		reject(c, span, consts.StatusBadRequest, "Empty PDF", "Could not extract text from the PDF")
		return
	}

	fileMD5 := utils.CalculateMD5(data)
	log = log.With().Str("md5", fileMD5).Str("filename", upload.Filename).Logger()
	span.SetAttributes(
		attribute.String("file.md5", fileMD5),
		attribute.String("file.name", tracing.SafeAttributeValue("file.name", upload.Filename, tracing.MaxFilenameLength)),
		attribute.Int("file.size", len(data)),
	)

	// 2. 命中缓存直接返回
	if h.cache != nil {
		record, err := h.cache.GetAutofillResult(ctx, fileMD5)
		switch {
		case err == nil:
			// 旧模板写入的或内容为null的缓存按未命中处理
			if verr := h.validator.Validate(map[string]any(record)); verr != nil {
				log.Warn().Err(verr).Msg("缓存结果不符合当前模板，重新处理")
				if derr := h.cache.DeleteAutofillResult(ctx, fileMD5); derr != nil {
					log.Warn().Err(derr).Msg("删除失效缓存失败")
				}
				break
			}
			log.Info().Msg("命中自动填充结果缓存")
			c.Response.Header.Set(HeaderCache, "HIT")
			c.JSON(consts.StatusOK, AutofillResponse{Success: true, Data: record})
			return
		case !errors.Is(err, storage.ErrNotFound):
			log.Warn().Err(err).Msg("读取结果缓存失败，继续处理")
		}
		c.Response.Header.Set(HeaderCache, "MISS")
	}

	// 3. 归档原始文件，失败不影响本次处理
	if h.archive != nil {
		objectName, err := h.archive.ArchiveResume(ctx, upload.Filename, fileMD5, data)
		if err != nil {
			log.Warn().Err(err).Msg("归档简历失败")
		} else {
			log.Debug().Str("object", objectName).Msg("简历已归档")
		}
	}

	// 4. 运行自动填充流水线
	procCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	begin := time.Now()
	record, err := h.autofiller.AutoFillFromResume(procCtx, data)
	if err != nil {
		status, resp := errorResponse(err)
		log.Warn().Err(err).Int("status", status).Dur("elapsed", time.Since(begin)).Msg("简历自动填充失败")
		tracing.RecordHTTPError(span, err, status)
		c.JSON(status, resp)
		return
	}

	if h.cache != nil {
		if err := h.cache.SetAutofillResult(ctx, fileMD5, record); err != nil {
			log.Warn().Err(err).Msg("写入结果缓存失败")
		}
	}
	log.Info().Dur("elapsed", time.Since(begin)).Msg("简历自动填充成功")
	c.JSON(consts.StatusOK, AutofillResponse{Success: true, Data: record})
}

// reject 请求校验失败
func reject(c *app.RequestContext, span trace.Span, status int, msg, details string) {
	tracing.RecordHTTPError(span, errors.New(msg), status)
	c.JSON(status, ErrorResponse{Error: msg, Details: details})
}

// errorResponse 流水线错误类别到HTTP状态码和响应的映射
func errorResponse(err error) (int, ErrorResponse) {
	var ae *processor.AutofillError
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError, ErrorResponse{Error: "Processing failed", Details: err.Error()}
	}

	switch ae.Kind {
	case processor.KindExtraction:
		if ae.Err == nil {
			return http.StatusBadRequest, ErrorResponse{Error: "Empty PDF", Details: "Could not extract text from the PDF"}
		}
		return http.StatusBadRequest, ErrorResponse{Error: "Invalid PDF", Details: "Could not parse the PDF file"}
	case processor.KindGeneration:
		return http.StatusBadGateway, ErrorResponse{Error: "Model request failed", Details: err.Error()}
	case processor.KindParse, processor.KindSchemaValidation:
		return http.StatusBadGateway, ErrorResponse{Error: "Invalid model output", Details: err.Error()}
	case processor.KindCanceled:
		return http.StatusRequestTimeout, ErrorResponse{Error: "Request timeout", Details: "Processing did not finish in time"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "Processing failed", Details: err.Error()}
	}
}

// newRequestID 生成按时间排序的请求ID
func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Must(uuid.NewV4()).String()
	}
	return id.String()
}
