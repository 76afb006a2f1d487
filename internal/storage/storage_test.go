package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-autofill/internal/config"
	"resume-autofill/internal/types"
	"resume-autofill/pkg/utils"
)

func TestArchiveObjectName(t *testing.T) {
	id := uuid.Must(uuid.FromString("018f6d3e-7b4a-7c00-8000-000000000001"))
	now := time.Date(2025, 3, 7, 23, 30, 0, 0, time.FixedZone("CST", 8*3600))

	assert.Equal(t, "resumes/2025/03/07/018f6d3e-7b4a-7c00-8000-000000000001.pdf",
		ArchiveObjectName(now, id, "Jane Doe CV.PDF"))
	assert.Equal(t, "resumes/2025/03/07/018f6d3e-7b4a-7c00-8000-000000000001.pdf",
		ArchiveObjectName(now, id, "resume"), "没有扩展名时使用.pdf")
}

func TestResultKey(t *testing.T) {
	assert.Equal(t, "resume-autofill:autofill:result:abc123", resultKey("abc123"))
}

func TestResultTTL(t *testing.T) {
	assert.Equal(t, time.Hour, (&Redis{}).ResultTTL())
	assert.Equal(t, 15*time.Minute, (&Redis{config: &config.RedisConfig{ResultTTLMinutes: 15}}).ResultTTL())
}

func TestNewStorageDisabled(t *testing.T) {
	s, err := NewStorage(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.Nil(t, s.Redis)
	assert.Nil(t, s.MinIO)
	assert.Nil(t, s.Cache(), "未启用时不能返回包含nil指针的接口")
	assert.Nil(t, s.Archive())
	s.Close()

	_, err = NewStorage(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewAdaptersValidation(t *testing.T) {
	_, err := NewRedisAdapter(nil)
	assert.Error(t, err)
	_, err = NewRedisAdapter(&config.RedisConfig{})
	assert.Error(t, err)

	_, err = NewMinIO(context.Background(), nil, nil)
	assert.Error(t, err)
	_, err = NewMinIO(context.Background(), &config.MinIOConfig{Endpoint: "localhost:9000"}, nil)
	assert.Error(t, err, "缺少bucket")
}

func TestNewRedisAdapterClosesClientOnInstrumentFailure(t *testing.T) {
	var client *redis.Client
	orig := instrumentRedis
	instrumentRedis = func(c *redis.Client) error {
		client = c
		return errors.New("tracer provider unavailable")
	}
	defer func() { instrumentRedis = orig }()

	_, err := NewRedisAdapter(&config.RedisConfig{Address: "localhost:6379"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OpenTelemetry")
	require.NotNil(t, client)
	assert.ErrorIs(t, client.Ping(context.Background()).Err(), redis.ErrClosed, "失败时应关闭客户端")
}

// 以下测试需要本地服务，未设置环境变量时跳过

func TestRedisResultCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("未设置 TEST_REDIS_ADDR，跳过Redis集成测试")
	}
	r, err := NewRedisAdapter(&config.RedisConfig{Address: addr, ResultTTLMinutes: 1})
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	md5 := utils.CalculateMD5([]byte(t.Name() + time.Now().String()))
	defer r.DeleteAutofillResult(ctx, md5)

	_, err = r.GetAutofillResult(ctx, md5)
	assert.True(t, errors.Is(err, ErrNotFound))

	record := types.Record{"education": map[string]any{"institution": "TU Berlin"}, "languages": []any{}}
	require.NoError(t, r.SetAutofillResult(ctx, md5, record))

	got, err := r.GetAutofillResult(ctx, md5)
	require.NoError(t, err)
	assert.Equal(t, "TU Berlin", got.Object("education")["institution"])

	ttl, err := r.Client.TTL(ctx, resultKey(md5)).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestMinIOArchive(t *testing.T) {
	endpoint := os.Getenv("TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("未设置 TEST_MINIO_ENDPOINT，跳过MinIO集成测试")
	}
	ctx := context.Background()
	m, err := NewMinIO(ctx, &config.MinIOConfig{
		Endpoint:        endpoint,
		AccessKeyID:     os.Getenv("TEST_MINIO_ACCESS_KEY"),
		SecretAccessKey: os.Getenv("TEST_MINIO_SECRET_KEY"),
		BucketName:      "resume-autofill-test",
	}, nil)
	require.NoError(t, err)

	data := []byte("%PDF-1.4 test")
	objectName, err := m.ArchiveResume(ctx, "cv.pdf", utils.CalculateMD5(data), data)
	require.NoError(t, err)
	defer m.removeObject(ctx, objectName)

	info, err := m.statObject(ctx, objectName)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), info.Size)
	assert.Equal(t, "application/pdf", info.ContentType)
}
