// Package admission 实现进程级的请求准入策略评估器。
// 策略对象在进程启动时构造一次，由页面网关与受保护的认证端点共同注入使用；
// 每次请求产生一个瞬态 Decision，评估本身无副作用（滑动窗口计数除外）。
package admission

import (
	"context"
	"net/http"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// ReasonKind 表示拒绝原因类别。
type ReasonKind string

// 拒绝原因常量定义
const (
	ReasonNone      ReasonKind = "none"
	ReasonEmail     ReasonKind = "email"
	ReasonRateLimit ReasonKind = "rate-limit"
	ReasonShield    ReasonKind = "shield"
	ReasonBot       ReasonKind = "bot"
)

// HTTPStatus 返回拒绝原因对应的固定响应状态码。
func (k ReasonKind) HTTPStatus() int {
	switch k {
	case ReasonEmail:
		return http.StatusBadRequest
	case ReasonRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusForbidden
	}
}

// Message 返回拒绝原因对应的响应正文。
func (k ReasonKind) Message() string {
	switch k {
	case ReasonEmail:
		return "Email validation failed"
	case ReasonRateLimit:
		return "Rate limit exceeded"
	default:
		return "Malicious action detected"
	}
}

// Decision 是单次请求的准入裁决，仅在请求期间存活。
// RetryAfter 仅限流拒绝时非零，表示窗口释放的剩余等待时间。
type Decision struct {
	Allowed    bool
	Reason     ReasonKind
	RetryAfter time.Duration
}

// Allow 构造放行裁决。
func Allow() Decision {
	return Decision{Allowed: true, Reason: ReasonNone}
}

// Deny 构造拒绝裁决。
func Deny(reason ReasonKind) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// DenyWithRetry 构造携带重试等待时间的拒绝裁决。
func DenyWithRetry(reason ReasonKind, retryAfter time.Duration) Decision {
	return Decision{Allowed: false, Reason: reason, RetryAfter: retryAfter}
}

// RequestInfo 描述策略评估所需的请求上下文。
type RequestInfo struct {
	Method      string
	Path        string
	RawQuery    string
	ClientIP    string
	UserAgent   string
	Fingerprint string // 限流键：用户 ID 或客户端 IP
	Email       string // 仅登录请求携带，非空时触发邮箱规则
	Header      http.Header
}

// Rule 定义单条准入规则。不适用的请求直接放行，规则自身判断适用性。
type Rule interface {
	Evaluate(ctx context.Context, info RequestInfo) (Decision, error)
}

// Policy 按固定顺序执行规则链，首个拒绝裁决立即生效。
// 规则评估失败时的行为由 fail_open 配置决定：放开则跳过该条规则继续，
// 关死则将错误上抛，调用方以 503 响应。
type Policy struct {
	rules    []Rule
	failOpen bool
	log      *log.Helper
}

// NewPolicy 构造策略评估器。
func NewPolicy(rules []Rule, failOpen bool, logger log.Logger) *Policy {
	return &Policy{
		rules:    rules,
		failOpen: failOpen,
		log:      log.NewHelper(logger),
	}
}

// Evaluate 依次执行规则链并返回首个拒绝裁决。
func (p *Policy) Evaluate(ctx context.Context, info RequestInfo) (Decision, error) {
	for _, rule := range p.rules {
		decision, err := rule.Evaluate(ctx, info)
		if err != nil {
			if p.failOpen {
				p.log.WithContext(ctx).Warnf("admission rule failed, failing open: path=%s err=%v", info.Path, err)
				continue
			}
			p.log.WithContext(ctx).Errorf("admission rule failed, failing closed: path=%s err=%v", info.Path, err)
			return Decision{}, err
		}
		if !decision.Allowed {
			return decision, nil
		}
	}
	return Allow(), nil
}

// Config 聚合准入策略的运行参数。
type Config struct {
	FailOpen           bool
	BotAllowedAgents   []string
	RateLimitMax       int
	RateLimitInterval  time.Duration
	DisposableDomains  []string
	EmailLookupTimeout time.Duration
}

// GatePolicy 是页面网关使用的策略：防护规则 + 机器人识别。
type GatePolicy struct {
	*Policy
}

// AuthPolicy 是认证端点使用的策略：邮箱校验、滑动窗口限流与防护规则，
// 按 email → rate-limit → shield 的固定优先级排列。
type AuthPolicy struct {
	*Policy
}

// NewGatePolicy 构造页面网关策略。
func NewGatePolicy(cfg Config, logger log.Logger) GatePolicy {
	rules := []Rule{
		NewShieldRule(),
		NewBotRule(cfg.BotAllowedAgents),
	}
	return GatePolicy{NewPolicy(rules, cfg.FailOpen, logger)}
}

// NewAuthPolicy 构造认证端点策略。
func NewAuthPolicy(cfg Config, resolver MXResolver, logger log.Logger) AuthPolicy {
	rules := []Rule{
		NewEmailRule(resolver, cfg.DisposableDomains, cfg.EmailLookupTimeout),
		NewSlidingWindowRule(cfg.RateLimitMax, cfg.RateLimitInterval),
		NewShieldRule(),
	}
	return AuthPolicy{NewPolicy(rules, cfg.FailOpen, logger)}
}
