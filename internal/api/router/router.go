package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"resume-autofill/internal/api/handler"
)

// Handlers 路由依赖的处理器，Advisor 或 Recommend 为nil时不注册对应接口
type Handlers struct {
	Autofill  *handler.AutofillHandler
	Advisor   *handler.AdvisorHandler
	Recommend *handler.RecommendHandler
	Health    *handler.HealthHandler
}

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, handlers Handlers) {
	api := h.Group("/api")

	api.POST("/auto-fill-resume", handlers.Autofill.HandleAutoFill)

	if handlers.Advisor != nil {
		api.POST("/chat", handlers.Advisor.HandleChat)
	}

	if handlers.Recommend != nil {
		api.POST("/upload", handlers.Recommend.HandleUpload)
	}

	// 添加健康检查
	if handlers.Health != nil {
		api.GET("/health", handlers.Health.HandleHealth)
	}
}
