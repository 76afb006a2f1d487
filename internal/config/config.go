package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig 定义HTTP服务配置
type ServerConfig struct {
	Address        string `yaml:"address"`         // 例如 ":8080" 或 "0.0.0.0:8080"
	MaxUploadMB    int    `yaml:"max_upload_mb"`   // 上传简历大小上限(MB)
	RequestTimeout string `yaml:"request_timeout"` // 单个自动填充请求的超时，例如 "60s"
}

// LLMConfig 生成模型配置
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai(兼容接口，默认DashScope) 或 gemini
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`
}

// EmbeddingConfig 向量模型配置
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // openai 或 ollama
	APIKey     string `yaml:"api_key,omitempty"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"` // 0 表示使用模型默认维度
	Timeout    string `yaml:"timeout"`
}

// RetryConfig 生成调用的重试配置
type RetryConfig struct {
	MaxAttempts int    `yaml:"max_attempts"` // 含首次调用，1 表示不重试
	Wait        string `yaml:"wait"`         // 首次重试前的等待时间，之后指数增长
}

// AutofillConfig 自动填充流水线参数
type AutofillConfig struct {
	ChunkSize        int         `yaml:"chunk_size"`    // 每个分块的词数
	ChunkOverlap     int         `yaml:"chunk_overlap"` // 相邻分块重叠的词数
	TopK             int         `yaml:"top_k"`
	Query            string      `yaml:"query"` // 检索使用的固定查询
	Temperature      float32     `yaml:"temperature"`
	MaxTokens        int         `yaml:"max_tokens"`
	EmbedBatchSize   int         `yaml:"embed_batch_size"`
	EmbedConcurrency int         `yaml:"embed_concurrency"`
	Retry            RetryConfig `yaml:"retry"`
}

// AdvisorConfig 职业顾问对话配置
type AdvisorConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// RecommenderConfig 学习报告课程推荐配置
type RecommenderConfig struct {
	Enabled     bool    `yaml:"enabled"`
	MaxUploadKB int     `yaml:"max_upload_kb"` // 上传报告大小上限(KB)
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	Format       string `yaml:"format"`        // json, pretty
	TimeFormat   string `yaml:"time_format"`   // 时间格式
	ReportCaller bool   `yaml:"report_caller"` // 是否报告调用位置
	File         string `yaml:"file"`          // 可选的日志文件
}

// TracingConfig OpenTelemetry 链路追踪配置
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"` // OTLP gRPC 地址，例如 "localhost:4317"
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// RedisConfig holds configuration for Redis
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"` // 是否启用结果缓存
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`
	MinIdleConns int `yaml:"min_idle_conns"`
	// 超时设置
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
	MaxRetries          int `yaml:"max_retries"`
	// 自动填充结果的缓存时间(分钟)
	ResultTTLMinutes int `yaml:"result_ttl_minutes"`
}

// MinIOConfig MinIO配置结构
type MinIOConfig struct {
	Enabled         bool   `yaml:"enabled"` // 是否归档上传的简历
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL"`
	BucketName      string `yaml:"bucketName"`
	Location        string `yaml:"location"` // 可选，存储桶区域
}

// Config 应用程序配置
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	LLM         LLMConfig         `yaml:"llm"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Autofill    AutofillConfig    `yaml:"autofill"`
	Advisor     AdvisorConfig     `yaml:"advisor"`
	Recommender RecommenderConfig `yaml:"recommender"`
	Logger      LoggerConfig      `yaml:"logger"`
	Tracing     TracingConfig     `yaml:"tracing"`
	Redis       RedisConfig       `yaml:"redis"`
	MinIO       MinIOConfig       `yaml:"minio"`
}

const (
	DefaultDashScopeURL   = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultLLMModel       = "qwen-turbo"
	DefaultGeminiModel    = "gemini-2.0-flash"
	DefaultEmbeddingModel = "text-embedding-v3"
	DefaultOllamaURL      = "http://localhost:11434"
	DefaultOllamaModel    = "all-minilm"
	DefaultQuery          = "Extract resume details for auto-fill"
)

// LoadConfig 从文件加载配置，路径为空时在常见位置查找；找不到文件时使用默认配置
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = findConfigFile()
	}

	config := createDefaultConfig()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	applyEnvOverrides(config)
	applyDefaults(config)
	return config, nil
}

// LoadConfigFromFileOnly 从文件加载配置，不从环境变量覆盖
func LoadConfigFromFileOnly(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("必须提供配置文件路径")
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	config := createDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	applyDefaults(config)
	return config, nil
}

func findConfigFile() string {
	searchPaths := []string{
		"config.yaml",
		"internal/config/config.yaml",
		"../config.yaml",
		filepath.Join(os.Getenv("HOME"), ".resume-autofill", "config.yaml"),
	}
	if execPath, err := os.Executable(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(filepath.Dir(execPath), "config.yaml"))
	}
	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// applyEnvOverrides 环境变量优先于配置文件
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		config.LLM.Provider = v
	}
	if v := firstEnv("LLM_API_KEY", "ALIYUN_API_KEY", "OPENAI_API_KEY"); v != "" {
		config.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		config.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		config.LLM.Model = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && config.LLM.Provider == "gemini" {
		config.LLM.APIKey = v
	}
	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		config.Embedding.APIKey = v
	}
	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		config.Server.Address = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// applyDefaults 为文件中留空的字段补齐默认值
func applyDefaults(config *Config) {
	if config.Server.Address == "" {
		config.Server.Address = ":8080"
	}
	if config.Server.MaxUploadMB <= 0 {
		config.Server.MaxUploadMB = 10
	}
	if config.Recommender.MaxUploadKB <= 0 {
		config.Recommender.MaxUploadKB = 1024
	}
	if config.Recommender.MaxTokens <= 0 {
		config.Recommender.MaxTokens = 2048
	}
	if config.LLM.Provider == "" {
		config.LLM.Provider = "openai"
	}
	if config.LLM.Model == "" {
		if config.LLM.Provider == "gemini" {
			config.LLM.Model = DefaultGeminiModel
		} else {
			config.LLM.Model = DefaultLLMModel
		}
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "openai" {
		config.LLM.BaseURL = DefaultDashScopeURL
	}
	if config.Embedding.Provider == "" {
		config.Embedding.Provider = "openai"
	}
	switch config.Embedding.Provider {
	case "ollama":
		if config.Embedding.BaseURL == "" {
			config.Embedding.BaseURL = DefaultOllamaURL
		}
		if config.Embedding.Model == "" {
			config.Embedding.Model = DefaultOllamaModel
		}
	default:
		if config.Embedding.BaseURL == "" {
			config.Embedding.BaseURL = DefaultDashScopeURL
		}
		if config.Embedding.Model == "" {
			config.Embedding.Model = DefaultEmbeddingModel
		}
		// 向量接口与生成接口同属一个平台时共用密钥
		if config.Embedding.APIKey == "" && config.LLM.Provider == "openai" {
			config.Embedding.APIKey = config.LLM.APIKey
		}
	}
	if config.Autofill.Query == "" {
		config.Autofill.Query = DefaultQuery
	}
	if config.Autofill.Retry.MaxAttempts <= 0 {
		config.Autofill.Retry.MaxAttempts = 1
	}
	if config.Tracing.ServiceName == "" {
		config.Tracing.ServiceName = "resume-autofill"
	}
}

// Validate 启动时检查配置的一致性
func (c *Config) Validate() error {
	var errs []error
	a := c.Autofill
	if a.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("autofill.chunk_size 必须为正数，当前为 %d", a.ChunkSize))
	}
	if a.ChunkOverlap < 0 || a.ChunkOverlap >= a.ChunkSize {
		errs = append(errs, fmt.Errorf("autofill.chunk_overlap 必须在 [0, chunk_size) 之间，当前为 %d", a.ChunkOverlap))
	}
	if a.TopK <= 0 {
		errs = append(errs, fmt.Errorf("autofill.top_k 必须为正数，当前为 %d", a.TopK))
	}
	if a.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("autofill.max_tokens 必须为正数，当前为 %d", a.MaxTokens))
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("不支持的 llm.provider: %q", c.LLM.Provider))
	}
	switch c.Embedding.Provider {
	case "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("不支持的 embedding.provider: %q", c.Embedding.Provider))
	}
	for name, d := range map[string]string{
		"server.request_timeout": c.Server.RequestTimeout,
		"llm.timeout":            c.LLM.Timeout,
		"embedding.timeout":      c.Embedding.Timeout,
		"autofill.retry.wait":    c.Autofill.Retry.Wait,
	} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			errs = append(errs, fmt.Errorf("%s 不是合法的时长: %q", name, d))
		}
	}
	if c.Tracing.Enabled && strings.TrimSpace(c.Tracing.Endpoint) == "" {
		errs = append(errs, errors.New("tracing.enabled 时必须配置 tracing.endpoint"))
	}
	if c.MinIO.Enabled && c.MinIO.BucketName == "" {
		errs = append(errs, errors.New("minio.enabled 时必须配置 minio.bucketName"))
	}
	return errors.Join(errs...)
}

// createDefaultConfig 返回带默认值的配置，找不到配置文件时直接使用
func createDefaultConfig() *Config {
	config := &Config{}

	config.Server.Address = ":8080"
	config.Server.MaxUploadMB = 10
	config.Server.RequestTimeout = "60s"

	config.LLM.Provider = "openai"
	config.LLM.BaseURL = DefaultDashScopeURL
	config.LLM.Model = DefaultLLMModel
	config.LLM.Timeout = "60s"

	config.Embedding.Provider = "openai"
	config.Embedding.BaseURL = DefaultDashScopeURL
	config.Embedding.Model = DefaultEmbeddingModel
	config.Embedding.Dimensions = 1024
	config.Embedding.Timeout = "30s"

	config.Autofill.ChunkSize = 500
	config.Autofill.ChunkOverlap = 50
	config.Autofill.TopK = 5
	config.Autofill.Query = DefaultQuery
	config.Autofill.Temperature = 0.2
	config.Autofill.MaxTokens = 700
	config.Autofill.EmbedBatchSize = 16
	config.Autofill.EmbedConcurrency = 4
	config.Autofill.Retry.MaxAttempts = 1
	config.Autofill.Retry.Wait = "1s"

	config.Advisor.Enabled = true
	config.Advisor.Temperature = 0.7
	config.Advisor.MaxTokens = 1024

	config.Recommender.Enabled = true
	config.Recommender.MaxUploadKB = 1024
	config.Recommender.Temperature = 0.7
	config.Recommender.MaxTokens = 2048

	config.Logger.Level = "info"
	config.Logger.Format = "pretty"
	config.Logger.TimeFormat = "2006-01-02 15:04:05"
	config.Logger.ReportCaller = true

	config.Tracing.ServiceName = "resume-autofill"
	config.Tracing.Endpoint = "localhost:4317"
	config.Tracing.Insecure = true
	config.Tracing.SampleRatio = 1.0

	config.Redis.Address = "localhost:6379"
	config.Redis.PoolSize = 10
	config.Redis.MinIdleConns = 2
	config.Redis.DialTimeoutSeconds = 5
	config.Redis.ReadTimeoutSeconds = 3
	config.Redis.WriteTimeoutSeconds = 3
	config.Redis.MaxRetries = 3
	config.Redis.ResultTTLMinutes = 60

	config.MinIO.Endpoint = "localhost:9000"
	config.MinIO.AccessKeyID = "minioadmin"
	config.MinIO.SecretAccessKey = "minioadmin123"
	config.MinIO.BucketName = "resume-uploads"

	return config
}

// CreateSampleConfig 创建一个示例配置文件
func CreateSampleConfig(filePath string) error {
	if _, err := os.Stat(filePath); err == nil {
		return fmt.Errorf("文件 '%s' 已存在，不会覆盖", filePath)
	}
	data, err := yaml.Marshal(createDefaultConfig())
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("写入示例配置文件 '%s' 失败: %w", filePath, err)
	}
	return nil
}

// GetDuration utility to parse duration strings from config
func GetDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	if durationStr == "" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return defaultDuration
	}
	return d
}
