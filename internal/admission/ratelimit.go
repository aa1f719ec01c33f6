package admission

import (
	"context"
	"sync"
	"time"
)

const (
	defaultRateLimitMax      = 2
	defaultRateLimitInterval = 2 * time.Minute

	// 超过该键数时触发全量清理，避免指纹集合无界增长。
	rateLimitPruneThreshold = 4096
)

// SlidingWindowRule 实现按指纹的滑动窗口限流：
// 移动时间窗内最多接受 max 次动作，超出即拒绝。
// 仅在请求未携带邮箱时适用（邮箱规则与限流规则二选一）。
type SlidingWindowRule struct {
	max      int
	interval time.Duration

	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

// NewSlidingWindowRule 构造滑动窗口规则。非法参数回退为默认值（2 次 / 2 分钟）。
func NewSlidingWindowRule(max int, interval time.Duration) *SlidingWindowRule {
	if max <= 0 {
		max = defaultRateLimitMax
	}
	if interval <= 0 {
		interval = defaultRateLimitInterval
	}
	return &SlidingWindowRule{
		max:      max,
		interval: interval,
		hits:     make(map[string][]time.Time),
		now:      time.Now,
	}
}

// WithClock 覆盖时间源，便于测试。
func (r *SlidingWindowRule) WithClock(clock func() time.Time) *SlidingWindowRule {
	if clock != nil {
		r.now = clock
	}
	return r
}

// Evaluate 实现 Rule 接口。
func (r *SlidingWindowRule) Evaluate(_ context.Context, info RequestInfo) (Decision, error) {
	if info.Email != "" {
		return Allow(), nil
	}
	key := info.Fingerprint
	if key == "" {
		key = info.ClientIP
	}

	now := r.now()
	cutoff := now.Add(-r.interval)

	r.mu.Lock()
	defer r.mu.Unlock()

	recent := r.hits[key][:0]
	for _, hit := range r.hits[key] {
		if hit.After(cutoff) {
			recent = append(recent, hit)
		}
	}

	if len(recent) >= r.max {
		r.hits[key] = recent
		retryAfter := recent[0].Add(r.interval).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return DenyWithRetry(ReasonRateLimit, retryAfter), nil
	}

	r.hits[key] = append(recent, now)
	if len(r.hits) > rateLimitPruneThreshold {
		r.pruneLocked(cutoff)
	}
	return Allow(), nil
}

// pruneLocked 丢弃窗口外的全部记录，调用方必须持有锁。
func (r *SlidingWindowRule) pruneLocked(cutoff time.Time) {
	for key, hits := range r.hits {
		kept := hits[:0]
		for _, hit := range hits {
			if hit.After(cutoff) {
				kept = append(kept, hit)
			}
		}
		if len(kept) == 0 {
			delete(r.hits, key)
			continue
		}
		r.hits[key] = kept
	}
}
