package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-autofill/internal/constants"
	"resume-autofill/internal/logger"
	"resume-autofill/internal/parser"
	"resume-autofill/internal/processor"
	"resume-autofill/internal/tracing"
)

const defaultMaxReportBytes = 1 << 20

// RecommendHandler 处理学习报告上传并返回课程推荐
type RecommendHandler struct {
	recommender    processor.CourseRecommender
	maxUploadBytes int64
	timeout        time.Duration
	logger         *zerolog.Logger
}

// RecommendOption 配置 RecommendHandler 的选项
type RecommendOption func(*RecommendHandler)

// WithReportMaxBytes 上传报告大小上限
func WithReportMaxBytes(n int64) RecommendOption {
	return func(h *RecommendHandler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithRecommendTimeout 单个请求的处理超时
func WithRecommendTimeout(d time.Duration) RecommendOption {
	return func(h *RecommendHandler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// NewRecommendHandler 创建课程推荐处理器
func NewRecommendHandler(recommender processor.CourseRecommender, opts ...RecommendOption) *RecommendHandler {
	h := &RecommendHandler{
		recommender:    recommender,
		maxUploadBytes: defaultMaxReportBytes,
		timeout:        defaultRequestTimeout,
		logger:         logger.Named("recommend_handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleUpload 处理学习报告上传
// POST /api/upload  multipart 字段 reportfile，成功时直接返回推荐JSON
func (h *RecommendHandler) HandleUpload(ctx context.Context, c *app.RequestContext) {
	requestID := newRequestID()
	c.Response.Header.Set(HeaderRequestID, requestID)
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("request.id", requestID))
	log := h.logger.With().Str("request_id", requestID).Logger()

	upload, failure := readUpload(c, constants.ReportFormField, constants.AllowedReportExt, h.maxUploadBytes)
	switch failure {
	case uploadOK:
	case uploadNoFilename:
		reject(c, span, consts.StatusBadRequest, "No selected file", "Please select a file to upload")
		return
	case uploadBadExtension:
		reject(c, span, consts.StatusBadRequest, "Only .html files are allowed", "Please upload an HTML report")
		return
	case uploadTooLarge:
		reject(c, span, consts.StatusRequestEntityTooLarge, fmt.Sprintf("File too large (max %s)", formatSize(h.maxUploadBytes)),
			"Please upload a smaller report")
		return
	case uploadUnreadable:
		reject(c, span, consts.StatusInternalServerError, "Processing failed", "Could not read the uploaded file")
		return
	default:
		reject(c, span, consts.StatusBadRequest, "No file uploaded", "Please upload an HTML report")
		return
	}
	if len(upload.Data) == 0 {
		reject(c, span, consts.StatusBadRequest, "Empty report", "The uploaded report is empty")
		return
	}
	log = log.With().Str("filename", upload.Filename).Logger()
	span.SetAttributes(
		attribute.String("file.name", tracing.SafeAttributeValue("file.name", upload.Filename, tracing.MaxFilenameLength)),
		attribute.Int("file.size", len(upload.Data)),
	)

	procCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	begin := time.Now()
	record, err := h.recommender.Recommend(procCtx, upload.Data)
	if err != nil {
		status, resp := recommendErrorResponse(err)
		log.Warn().Err(err).Int("status", status).Dur("elapsed", time.Since(begin)).Msg("课程推荐失败")
		tracing.RecordHTTPError(span, err, status)
		c.JSON(status, resp)
		return
	}

	log.Info().Dur("elapsed", time.Since(begin)).Msg("课程推荐成功")
	c.JSON(consts.StatusOK, record)
}

// recommendErrorResponse 推荐错误类别到HTTP状态码和响应的映射
func recommendErrorResponse(err error) (int, ErrorResponse) {
	switch processor.KindOf(err) {
	case processor.KindExtraction:
		if errors.Is(err, parser.ErrEmptyReport) {
			return http.StatusBadRequest, ErrorResponse{Error: "Empty report", Details: "No readable text found in the report"}
		}
		return http.StatusBadRequest, ErrorResponse{Error: "Invalid report", Details: err.Error()}
	case processor.KindGeneration:
		return http.StatusBadGateway, ErrorResponse{Error: "Failed to generate recommendations", Details: err.Error()}
	case processor.KindParse, processor.KindSchemaValidation:
		return http.StatusBadGateway, ErrorResponse{Error: "Invalid recommendations format", Details: err.Error()}
	case processor.KindCanceled:
		return http.StatusRequestTimeout, ErrorResponse{Error: "Request timeout", Details: "Processing did not finish in time"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Details: err.Error()}
	}
}

// formatSize 整MB按MB显示，整KB按KB显示，其余按字节
func formatSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
