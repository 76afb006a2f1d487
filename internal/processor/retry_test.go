package processor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("dial tcp: connection refused"), true},
		{fmt.Errorf("请求失败: %w", errors.New("unexpected EOF")), true},
		{errors.New("服务器繁忙，请稍后再试"), true},
		{errors.New("401 invalid api key"), false},
		{context.Canceled, false},
		{fmt.Errorf("timeout: %w", context.Canceled), false},
		{context.DeadlineExceeded, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryableError(tt.err), "%v", tt.err)
	}
}

func TestNewRetryPolicy(t *testing.T) {
	assert.IsType(t, SingleAttempt{}, NewRetryPolicy(0, time.Second))
	assert.IsType(t, SingleAttempt{}, NewRetryPolicy(1, time.Second))
	assert.IsType(t, &BackoffRetry{}, NewRetryPolicy(3, time.Second))
}

func TestBackoffRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	policy := &BackoffRetry{MaxAttempts: 5, Wait: time.Millisecond}
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("503 Service Unavailable")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoffRetryExhausted(t *testing.T) {
	calls := 0
	policy := &BackoffRetry{MaxAttempts: 3, Wait: time.Millisecond}
	last := errors.New("rate limit exceeded")
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return last
	})
	assert.Equal(t, last, err, "返回最后一次的错误")
	assert.Equal(t, 3, calls)
}

func TestBackoffRetryNonRetryable(t *testing.T) {
	calls := 0
	policy := &BackoffRetry{MaxAttempts: 3, Wait: time.Millisecond}
	_ = policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("400 bad request")
	})
	assert.Equal(t, 1, calls)

	calls = 0
	custom := &BackoffRetry{MaxAttempts: 3, Wait: time.Millisecond, Retryable: func(error) bool { return true }}
	_ = custom.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("400 bad request")
	})
	assert.Equal(t, 3, calls, "自定义判断覆盖默认规则")
}

func TestBackoffRetryCanceledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	policy := &BackoffRetry{MaxAttempts: 5, Wait: time.Hour}

	start := time.Now()
	err := policy.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("timeout")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "取消后不再重试")
	assert.Less(t, time.Since(start), time.Minute)
}
