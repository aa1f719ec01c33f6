package admission

import (
	"context"
	"strings"
)

// 自动化客户端的 User-Agent 特征。空 UA 同样视为自动化流量。
var automatedAgentMarkers = []string{
	"bot",
	"crawler",
	"spider",
	"scraper",
	"curl",
	"wget",
	"python-requests",
	"python-urllib",
	"go-http-client",
	"scrapy",
	"headlesschrome",
	"phantomjs",
}

// 搜索引擎爬虫白名单，对应 CATEGORY:SEARCH_ENGINE。
var searchEngineAgents = []string{
	"googlebot",
	"bingbot",
	"duckduckbot",
	"baiduspider",
	"yandexbot",
	"slurp",
	"applebot",
}

// BotRule 识别自动化客户端并拒绝，搜索引擎爬虫与显式配置的 UA 放行。
type BotRule struct {
	extraAllowed []string
}

// NewBotRule 构造机器人识别规则，extraAllowed 为配置追加的 UA 白名单子串。
func NewBotRule(extraAllowed []string) *BotRule {
	normalized := make([]string, 0, len(extraAllowed))
	for _, agent := range extraAllowed {
		agent = strings.TrimSpace(strings.ToLower(agent))
		if agent != "" {
			normalized = append(normalized, agent)
		}
	}
	return &BotRule{extraAllowed: normalized}
}

// Evaluate 实现 Rule 接口。
func (r *BotRule) Evaluate(_ context.Context, info RequestInfo) (Decision, error) {
	agent := strings.ToLower(strings.TrimSpace(info.UserAgent))
	if agent == "" {
		return Deny(ReasonBot), nil
	}
	for _, allowed := range searchEngineAgents {
		if strings.Contains(agent, allowed) {
			return Allow(), nil
		}
	}
	for _, allowed := range r.extraAllowed {
		if strings.Contains(agent, allowed) {
			return Allow(), nil
		}
	}
	for _, marker := range automatedAgentMarkers {
		if strings.Contains(agent, marker) {
			return Deny(ReasonBot), nil
		}
	}
	return Allow(), nil
}
