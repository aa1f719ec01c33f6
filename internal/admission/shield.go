package admission

import (
	"context"
	"strings"
)

// 常见注入与路径穿越特征。命中即拒绝，不做进一步分析。
var shieldMarkers = []string{
	"../",
	"..%2f",
	"%00",
	"<script",
	"%3cscript",
	"union select",
	"union%20select",
	"/etc/passwd",
	"${jndi:",
	"cmd.exe",
}

// ShieldRule 对请求路径与查询串做通用防护检查。
type ShieldRule struct{}

// NewShieldRule 构造防护规则。
func NewShieldRule() *ShieldRule {
	return &ShieldRule{}
}

// Evaluate 实现 Rule 接口。
func (r *ShieldRule) Evaluate(_ context.Context, info RequestInfo) (Decision, error) {
	target := strings.ToLower(info.Path)
	if info.RawQuery != "" {
		target += "?" + strings.ToLower(info.RawQuery)
	}
	for _, marker := range shieldMarkers {
		if strings.Contains(target, marker) {
			return Deny(ReasonShield), nil
		}
	}
	return Allow(), nil
}
