package processor

import (
	"context"
	"errors"
	"strings"
	"time"
)

// RetryPolicy 包装一次可能失败的模型调用
type RetryPolicy interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// SingleAttempt 只调用一次，不重试
type SingleAttempt struct{}

func (SingleAttempt) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// BackoffRetry 指数退避重试，等待时间依次为 Wait、2*Wait、4*Wait...
type BackoffRetry struct {
	MaxAttempts int           // 含首次调用
	Wait        time.Duration // 首次重试前的等待
	// Retryable 判断错误是否值得重试，为nil时使用 IsRetryableError
	Retryable func(error) bool
}

// NewRetryPolicy 根据配置返回重试策略，maxAttempts<=1 时不重试
func NewRetryPolicy(maxAttempts int, wait time.Duration) RetryPolicy {
	if maxAttempts <= 1 {
		return SingleAttempt{}
	}
	return &BackoffRetry{MaxAttempts: maxAttempts, Wait: wait}
}

func (b *BackoffRetry) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	retryable := b.Retryable
	if retryable == nil {
		retryable = IsRetryableError
	}
	attempts := max(b.MaxAttempts, 1)

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !retryable(err) || attempt == attempts-1 {
			return err
		}

		backoff := b.Wait * time.Duration(1<<uint(attempt))
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}

// retryableMarkers 模型服务端常见的临时性错误
var retryableMarkers = []string{
	"timeout",
	"deadline exceeded",
	"connection reset",
	"EOF",
	"connection refused",
	"429",
	"Too Many Requests",
	"rate limit",
	"502",
	"503",
	"no such host",
	"服务器繁忙",
	"请求超过限额",
	"QPS限制",
}

// IsRetryableError 根据错误信息判断是否为临时性错误，上下文取消不重试
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	errStr := err.Error()
	for _, marker := range retryableMarkers {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}
