package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"resume-autofill/internal/api/handler"
	"resume-autofill/internal/api/router"
	"resume-autofill/internal/config"
	"resume-autofill/internal/constants"
	appCoreLogger "resume-autofill/internal/logger"
	"resume-autofill/internal/processor"
	"resume-autofill/internal/storage"
	"resume-autofill/internal/tracing"
)

func main() {
	// .env 中的密钥在加载配置前注入环境变量
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("加载 .env 文件失败: %v", err)
	}

	var configPath string
	flag.StringVarP(&configPath, "config", "c", "", "配置文件路径，留空时在常见位置查找")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	logCloser := initLogger(cfg.Logger)
	if logCloser != nil {
		defer logCloser.Close()
	}

	if err := cfg.Validate(); err != nil {
		glog.Fatalf("配置校验失败: %v", err)
	}
	glog.Infof("配置加载成功，LLM: %s/%s，Embedding: %s/%s",
		cfg.LLM.Provider, cfg.LLM.Model, cfg.Embedding.Provider, cfg.Embedding.Model)

	ctx := context.Background()

	shutdownTracing, err := tracing.InitProvider(ctx, tracing.ProviderConfig{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: constants.ServiceVersion,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		glog.Warnf("初始化链路追踪失败，继续运行: %v", err)
	}

	services, err := processor.CreateServices(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化自动填充流水线失败: %v", err)
	}
	glog.Info("自动填充流水线初始化成功")

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()

	handlers := router.Handlers{
		Autofill: handler.NewAutofillHandler(services.Processor,
			handler.WithResultCache(storageManager.Cache()),
			handler.WithArchive(storageManager.Archive()),
			handler.WithMaxUploadBytes(int64(cfg.Server.MaxUploadMB)<<20),
			handler.WithRequestTimeout(config.GetDuration(cfg.Server.RequestTimeout, 60*time.Second)),
		),
		Health: handler.NewHealthHandler(healthChecks(storageManager)),
	}
	if services.Advisor != nil {
		handlers.Advisor = handler.NewAdvisorHandler(services.Advisor, appCoreLogger.Named("advisor_handler"))
		glog.Info("职业顾问对话已启用")
	}
	if services.Recommender != nil {
		handlers.Recommend = handler.NewRecommendHandler(services.Recommender,
			handler.WithReportMaxBytes(int64(cfg.Recommender.MaxUploadKB)<<10),
			handler.WithRecommendTimeout(config.GetDuration(cfg.Server.RequestTimeout, 60*time.Second)),
		)
		glog.Info("学习报告课程推荐已启用")
	}

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		// multipart 编码会带来少量额外开销
		server.WithMaxRequestBodySize((cfg.Server.MaxUploadMB+1)<<20),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		glog.CtxInfof(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		glog.CtxInfof(c, "Response: status %d", ctx.Response.StatusCode())
	})

	router.RegisterRoutes(h, handlers)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)

	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		glog.Warnf("刷新追踪数据失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// initLogger 初始化全局 zerolog，并让 Hertz 的 glog 通过适配器共用同一个实例
func initLogger(cfg config.LoggerConfig) io.Closer {
	closer := appCoreLogger.Init(appCoreLogger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		TimeFormat:   cfg.TimeFormat,
		ReportCaller: cfg.ReportCaller,
		File:         cfg.File,
	})

	glog.SetLogger(hertzadapter.From(appCoreLogger.Logger))
	switch cfg.Level {
	case "debug":
		glog.SetLevel(glog.LevelDebug)
	case "warn":
		glog.SetLevel(glog.LevelWarn)
	case "error":
		glog.SetLevel(glog.LevelError)
	default:
		glog.SetLevel(glog.LevelInfo)
	}
	return closer
}

// healthChecks 未启用的组件以nil接口登记，健康检查中显示为 disabled
func healthChecks(st *storage.Storage) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{"redis": nil, "minio": nil}
	if c := st.Cache(); c != nil {
		checks["redis"] = c
	}
	if a := st.Archive(); a != nil {
		checks["minio"] = a
	}
	return checks
}
