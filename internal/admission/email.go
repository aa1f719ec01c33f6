package admission

import (
	"context"
	"errors"
	"net"
	"net/mail"
	"strings"
	"time"
)

// 常见一次性邮箱域名。配置可追加，不可削减。
var builtinDisposableDomains = []string{
	"mailinator.com",
	"guerrillamail.com",
	"10minutemail.com",
	"tempmail.com",
	"temp-mail.org",
	"throwawaymail.com",
	"yopmail.com",
	"getnada.com",
	"trashmail.com",
	"sharklasers.com",
}

const defaultEmailLookupTimeout = 3 * time.Second

// MXResolver 抽象 MX 记录查询，便于测试注入。*net.Resolver 满足该接口。
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

func defaultResolver() MXResolver {
	return net.DefaultResolver
}

// EmailRule 校验登录邮箱：语法非法、一次性域名、无 MX 记录均拒绝。
// 仅在请求携带邮箱时适用；拒绝原因固定为 ReasonEmail。
type EmailRule struct {
	resolver      MXResolver
	disposable    map[string]struct{}
	lookupTimeout time.Duration
}

// NewEmailRule 构造邮箱校验规则。
func NewEmailRule(resolver MXResolver, extraDisposable []string, lookupTimeout time.Duration) *EmailRule {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if lookupTimeout <= 0 {
		lookupTimeout = defaultEmailLookupTimeout
	}
	disposable := make(map[string]struct{}, len(builtinDisposableDomains)+len(extraDisposable))
	for _, domain := range builtinDisposableDomains {
		disposable[domain] = struct{}{}
	}
	for _, domain := range extraDisposable {
		domain = strings.TrimSpace(strings.ToLower(domain))
		if domain != "" {
			disposable[domain] = struct{}{}
		}
	}
	return &EmailRule{
		resolver:      resolver,
		disposable:    disposable,
		lookupTimeout: lookupTimeout,
	}
}

// Evaluate 实现 Rule 接口。MX 查询的瞬态失败作为规则错误上抛，
// 由 Policy 按 fail_open 配置处理；域名确定不存在则直接拒绝。
func (r *EmailRule) Evaluate(ctx context.Context, info RequestInfo) (Decision, error) {
	email := strings.TrimSpace(info.Email)
	if email == "" {
		return Allow(), nil
	}

	addr, err := mail.ParseAddress(email)
	if err != nil {
		return Deny(ReasonEmail), nil
	}
	at := strings.LastIndex(addr.Address, "@")
	if at < 0 || at == len(addr.Address)-1 {
		return Deny(ReasonEmail), nil
	}
	domain := strings.ToLower(addr.Address[at+1:])

	if _, blocked := r.disposable[domain]; blocked {
		return Deny(ReasonEmail), nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	records, err := r.resolver.LookupMX(lookupCtx, domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return Deny(ReasonEmail), nil
		}
		return Decision{}, err
	}
	if len(records) == 0 {
		return Deny(ReasonEmail), nil
	}
	return Allow(), nil
}
