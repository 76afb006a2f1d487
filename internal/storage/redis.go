package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9" // 添加Redis OpenTelemetry钩子包
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-autofill/internal/config"
	"resume-autofill/internal/constants"
	"resume-autofill/internal/tracing"
	"resume-autofill/internal/types"
)

// ErrNotFound 缓存中不存在该key
var ErrNotFound = redis.Nil

// 为缓存操作定义专用tracer
var redisTracer = otel.Tracer("resume-autofill/storage/redis")

// instrumentRedis 为客户端挂载 OpenTelemetry 追踪
var instrumentRedis = func(client *redis.Client) error {
	return redisotel.InstrumentTracing(client)
}

const defaultResultTTL = time.Hour

// Redis 封装 Redis 客户端，缓存按文件MD5索引的自动填充结果
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建 Redis 连接并挂载 OpenTelemetry 钩子
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		MaxRetries: cfg.MaxRetries,
	}

	client := redis.NewClient(opt)

	// 记录所有Redis命令
	if err := instrumentRedis(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close 关闭连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping 检查连接是否可用
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// ResultTTL 返回结果缓存的过期时间
func (r *Redis) ResultTTL() time.Duration {
	if r.config == nil || r.config.ResultTTLMinutes <= 0 {
		return defaultResultTTL
	}
	return time.Duration(r.config.ResultTTLMinutes) * time.Minute
}

// resultKey 自动填充结果的缓存key
func resultKey(fileMD5 string) string {
	return fmt.Sprintf(constants.KeyAutofillResult, fileMD5)
}

// GetAutofillResult 按文件MD5读取缓存的结构化记录，未命中返回 ErrNotFound
func (r *Redis) GetAutofillResult(ctx context.Context, fileMD5 string) (types.Record, error) {
	if r.Client == nil {
		return nil, fmt.Errorf("redis client is not initialized")
	}
	key := resultKey(fileMD5)
	ctx, span := redisTracer.Start(ctx, "cache.get_autofill_result",
		trace.WithAttributes(attribute.String("redis.key", tracing.SafeRedisKey(key))))
	defer span.End()

	raw, err := r.Client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			span.SetAttributes(attribute.Bool("cache.hit", false))
			return nil, ErrNotFound
		}
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return nil, fmt.Errorf("读取结果缓存失败: %w", err)
	}

	var record types.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		// 损坏的缓存直接删除
		_ = r.Client.Del(ctx, key).Err()
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return nil, fmt.Errorf("结果缓存格式错误: %w", err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))
	return record, nil
}

// SetAutofillResult 缓存结构化记录
func (r *Redis) SetAutofillResult(ctx context.Context, fileMD5 string, record types.Record) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	key := resultKey(fileMD5)
	ctx, span := redisTracer.Start(ctx, "cache.set_autofill_result",
		trace.WithAttributes(attribute.String("redis.key", tracing.SafeRedisKey(key))))
	defer span.End()

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化结果失败: %w", err)
	}
	if err := r.Client.Set(ctx, key, raw, r.ResultTTL()).Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return fmt.Errorf("写入结果缓存失败: %w", err)
	}
	return nil
}

// DeleteAutofillResult 删除结果缓存
func (r *Redis) DeleteAutofillResult(ctx context.Context, fileMD5 string) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	key := resultKey(fileMD5)
	ctx, span := redisTracer.Start(ctx, "cache.delete_autofill_result",
		trace.WithAttributes(attribute.String("redis.key", tracing.SafeRedisKey(key))))
	defer span.End()

	if err := r.Client.Del(ctx, key).Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return fmt.Errorf("删除结果缓存失败: %w", err)
	}
	return nil
}
