package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"resume-autofill/internal/constants"
)

// Pinger 可检查连通性的依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler 健康检查
// 可选依赖不可用时服务仍然可用，状态为 degraded
type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler checks 中值为nil的依赖视为未启用
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// HandleHealth GET /api/health
func (h *HealthHandler) HandleHealth(ctx context.Context, c *app.RequestContext) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := "ok"
	components := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if p == nil {
			components[name] = "disabled"
			continue
		}
		if err := p.Ping(ctx); err != nil {
			components[name] = "error: " + err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	c.JSON(consts.StatusOK, utils.H{
		"status":     status,
		"service":    constants.ServiceName,
		"version":    constants.ServiceVersion,
		"components": components,
	})
}
