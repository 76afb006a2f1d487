package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-autofill/internal/config"
	"resume-autofill/internal/constants"
	"resume-autofill/internal/logger"
	"resume-autofill/internal/tracing"
)

var minioTracer = otel.Tracer("resume-autofill/storage/minio")

// MinIO 归档上传的原始简历
type MinIO struct {
	client *minio.Client
	cfg    *config.MinIOConfig
	bucket string
	logger *zerolog.Logger
}

// NewMinIO 创建MinIO客户端并确保存储桶存在
func NewMinIO(ctx context.Context, cfg *config.MinIOConfig, l *zerolog.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.Endpoint == "" || cfg.BucketName == "" {
		return nil, fmt.Errorf("MinIO endpoint 和 bucketName 不能为空")
	}
	if l == nil {
		l = logger.Named("minio")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{
		client: client,
		cfg:    cfg,
		bucket: cfg.BucketName,
		logger: l,
	}
	if err := m.ensureBucketExists(ctx, m.bucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保存储桶 %s 存在失败: %w", m.bucket, err)
	}

	l.Info().Str("endpoint", cfg.Endpoint).Str("bucket", m.bucket).Msg("MinIO客户端初始化成功")
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(ctx context.Context, bucketName, location string) error {
	exists, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if exists {
		return nil
	}
	m.logger.Info().Str("bucket", bucketName).Msg("存储桶不存在，正在创建")
	if err := m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
	}
	return nil
}

// ArchiveObjectName 生成归档对象名: resumes/yyyy/mm/dd/<uuidv7>.pdf
func ArchiveObjectName(now time.Time, id uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = constants.AllowedResumeExt
	}
	return path.Join(constants.ArchiveObjectPrefix, now.UTC().Format("2006/01/02"), id.String()+ext)
}

// ArchiveResume 上传原始简历，返回对象名
// 原始文件名和MD5写入对象元数据
func (m *MinIO) ArchiveResume(ctx context.Context, filename, fileMD5 string, data []byte) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("生成对象ID失败: %w", err)
	}
	objectName := ArchiveObjectName(time.Now(), id, filename)

	ctx, span := minioTracer.Start(ctx, "archive.put_resume", trace.WithAttributes(
		attribute.String("minio.bucket", m.bucket),
		attribute.String("minio.object", objectName),
		attribute.Int("file.size", len(data)),
	))
	defer span.End()

	info, err := m.client.PutObject(ctx, m.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType: getContentType(path.Ext(filename)),
			UserMetadata: map[string]string{
				"original-filename": filename,
				"md5":               fileMD5,
			},
		})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return "", fmt.Errorf("上传对象 %s/%s 失败: %w", m.bucket, objectName, err)
	}
	m.logger.Debug().Str("object", objectName).Str("etag", info.ETag).Int64("size", info.Size).Msg("简历已归档")
	return objectName, nil
}

// Ping 检查存储桶是否可访问
func (m *MinIO) Ping(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("存储桶 %s 不存在", m.bucket)
	}
	return nil
}

// removeObject 删除归档对象
func (m *MinIO) removeObject(ctx context.Context, objectName string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", objectName, err)
	}
	return nil
}

// statObject 查询归档对象信息
func (m *MinIO) statObject(ctx context.Context, objectName string) (minio.ObjectInfo, error) {
	return m.client.StatObject(ctx, m.bucket, objectName, minio.StatObjectOptions{})
}

// 获取内容类型
func getContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
