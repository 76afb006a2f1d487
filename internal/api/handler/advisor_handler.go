package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"resume-autofill/internal/logger"
	"resume-autofill/internal/processor"
	"resume-autofill/internal/tracing"
)

// ChatRequest 职业顾问对话请求
type ChatRequest struct {
	Message     string         `json:"message"`
	UserProfile map[string]any `json:"userProfile"`
}

// ChatResponse 职业顾问对话响应
type ChatResponse struct {
	Status   string `json:"status"`
	Response string `json:"response,omitempty"`
	Message  string `json:"message,omitempty"`
}

// AdvisorHandler 职业顾问对话接口
type AdvisorHandler struct {
	advisor processor.Advisor
	logger  *zerolog.Logger
}

// NewAdvisorHandler 创建职业顾问处理器
func NewAdvisorHandler(advisor processor.Advisor, l *zerolog.Logger) *AdvisorHandler {
	if l == nil {
		l = logger.Named("advisor_handler")
	}
	return &AdvisorHandler{advisor: advisor, logger: l}
}

// HandleChat 处理职业顾问对话
// POST /api/chat  {"message": "...", "userProfile": {...}}
func (h *AdvisorHandler) HandleChat(ctx context.Context, c *app.RequestContext) {
	span := trace.SpanFromContext(ctx)

	var req ChatRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		tracing.RecordHTTPError(span, err, http.StatusBadRequest)
		c.JSON(http.StatusBadRequest, ChatResponse{Status: "error", Message: "invalid request body"})
		return
	}

	reply, err := h.advisor.Advise(ctx, req.Message, req.UserProfile)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, processor.ErrEmptyMessage):
			status = http.StatusBadRequest
		case errors.Is(err, processor.ErrCanceled):
			status = http.StatusRequestTimeout
		}
		h.logger.Warn().Err(err).Int("status", status).Msg("职业顾问回复失败")
		tracing.RecordHTTPError(span, err, status)
		c.JSON(status, ChatResponse{Status: "error", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ChatResponse{Status: "success", Response: reply})
}
