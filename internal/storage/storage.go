package storage

import (
	"context"
	"fmt"

	"resume-autofill/internal/config"
	"resume-autofill/internal/logger"
	"resume-autofill/internal/types"
)

// ResultCache 按文件MD5缓存自动填充结果
type ResultCache interface {
	GetAutofillResult(ctx context.Context, fileMD5 string) (types.Record, error)
	SetAutofillResult(ctx context.Context, fileMD5 string, record types.Record) error
	DeleteAutofillResult(ctx context.Context, fileMD5 string) error
	Ping(ctx context.Context) error
}

// ResumeArchive 归档上传的原始简历
type ResumeArchive interface {
	ArchiveResume(ctx context.Context, filename, fileMD5 string, data []byte) (string, error)
	Ping(ctx context.Context) error
}

var (
	_ ResultCache   = (*Redis)(nil)
	_ ResumeArchive = (*MinIO)(nil)
)

// Storage 存储管理器，聚合可选的缓存与归档组件
// 组件未启用或初始化失败时对应字段为nil，调用方据此降级
type Storage struct {
	// 对象存储
	MinIO *MinIO

	// 键值存储
	Redis *Redis
}

// NewStorage 按配置初始化已启用的存储组件
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	log := logger.Named("storage")
	storage := &Storage{}
	var err error

	if cfg.MinIO.Enabled {
		storage.MinIO, err = NewMinIO(ctx, &cfg.MinIO, logger.Named("minio"))
		if err != nil {
			log.Warn().Err(err).Msg("初始化MinIO失败，简历归档已关闭")
		}
	} else {
		log.Debug().Msg("MinIO未启用, 跳过初始化")
	}

	if cfg.Redis.Enabled {
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Str("address", cfg.Redis.Address).Msg("初始化Redis失败，结果缓存已关闭")
		} else {
			log.Info().Str("address", cfg.Redis.Address).Msg("Redis客户端初始化成功")
		}
	} else {
		log.Debug().Msg("Redis未启用, 跳过初始化")
	}

	return storage, nil
}

// Cache 返回结果缓存，未启用时返回nil接口
func (s *Storage) Cache() ResultCache {
	if s == nil || s.Redis == nil {
		return nil
	}
	return s.Redis
}

// Archive 返回简历归档，未启用时返回nil接口
func (s *Storage) Archive() ResumeArchive {
	if s == nil || s.MinIO == nil {
		return nil
	}
	return s.MinIO
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s == nil {
		return
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
	// MinIO 客户端基于HTTP，无需显式关闭
}
