package llm

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceloop/types"
)

// RetryPolicy 定义 provider 调用边界的重试策略
type RetryPolicy struct {
	MaxRetries   int           // 最大重试次数（0 表示不重试）
	InitialDelay time.Duration // 初始延迟时间
	MaxDelay     time.Duration // 最大延迟时间
	Multiplier   float64       // 延迟倍增因子（指数退避）
	Jitter       bool          // 是否添加随机抖动（防止雪崩）

	// OnRetry 重试回调，便于上层记录指标
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryPolicy 返回适用于语音回合内 provider 调用的默认策略。
// 延迟上限刻意压低：回合循环等待期间用户正在听沉默。
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Retryer 统一的重试执行器
type Retryer struct {
	policy *RetryPolicy
	logger *zap.Logger
}

// NewRetryer 创建指数退避重试器
func NewRetryer(policy *RetryPolicy, logger *zap.Logger) *Retryer {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// 参数校验
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.InitialDelay <= 0 {
		policy.InitialDelay = 200 * time.Millisecond
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 2 * time.Second
	}
	if policy.Multiplier < 1.0 {
		policy.Multiplier = 2.0
	}

	return &Retryer{policy: policy, logger: logger}
}

// Do 执行 fn，仅对可重试错误（types.IsRetryable）按策略重试。
// 不可重试错误与 context 取消都立即返回。
func (r *Retryer) Do(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.calculateDelay(attempt)

			r.logger.Debug("retrying provider call",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", r.policy.MaxRetries),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if r.policy.OnRetry != nil {
				r.policy.OnRetry(attempt, lastErr, delay)
			}

			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			if attempt > 0 {
				r.logger.Info("provider call recovered", zap.Int("attempt", attempt))
			}
			return nil
		}

		if !types.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt >= r.policy.MaxRetries {
			break
		}
	}

	r.logger.Warn("retries exhausted",
		zap.Int("attempts", r.policy.MaxRetries+1),
		zap.Error(lastErr),
	)
	return fmt.Errorf("failed after %d retries: %w", r.policy.MaxRetries, lastErr)
}

// calculateDelay 指数退避 + 可选 ±25% 抖动
func (r *Retryer) calculateDelay(attempt int) time.Duration {
	delay := float64(r.policy.InitialDelay) * math.Pow(r.policy.Multiplier, float64(attempt-1))

	if delay > float64(r.policy.MaxDelay) {
		delay = float64(r.policy.MaxDelay)
	}
	if r.policy.Jitter {
		jitter := delay * 0.25
		delay = delay + (rand.Float64()*2-1)*jitter
	}
	if delay < float64(r.policy.InitialDelay) {
		delay = float64(r.policy.InitialDelay)
	}

	return time.Duration(delay)
}
