// Package configloader 负责引导配置的加载、默认值回退与校验，
// 并将强类型的配置片段提供给 Wire 注入。
package configloader

import (
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/admission"
	"github.com/bionicotaku/cast-services-portal/internal/identity"
)

// Bootstrap 是 YAML 引导配置的顶层结构。
type Bootstrap struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Admission AdmissionConfig `json:"admission"`
	Identity  IdentityConfig  `json:"identity"`
	Storage   StorageConfig   `json:"storage"`
	Messaging MessagingConfig `json:"messaging"`
	Render    RenderConfig    `json:"render"`
}

// ServerConfig 描述 HTTP 服务的监听参数。
type ServerConfig struct {
	Network string `json:"network"`
	Addr    string `json:"addr"`
	Timeout string `json:"timeout"`
}

// DatabaseConfig 描述 PostgreSQL 连接池参数。
type DatabaseConfig struct {
	DSN                      string `json:"dsn"`
	Schema                   string `json:"schema"`
	MaxOpenConns             int32  `json:"max_open_conns"`
	MinOpenConns             int32  `json:"min_open_conns"`
	MaxConnLifetime          string `json:"max_conn_lifetime"`
	MaxConnIdleTime          string `json:"max_conn_idle_time"`
	HealthCheckPeriod        string `json:"health_check_period"`
	EnablePreparedStatements bool   `json:"enable_prepared_statements"`
}

// AdmissionConfig 描述准入策略参数。
type AdmissionConfig struct {
	// FailOpen 决定策略评估器自身失败时放行还是拒绝（显式配置选择，不做猜测）。
	FailOpen           bool     `json:"fail_open"`
	BotAllowedAgents   []string `json:"bot_allowed_agents"`
	RateLimitMax       int      `json:"rate_limit_max"`
	RateLimitInterval  string   `json:"rate_limit_interval"`
	DisposableDomains  []string `json:"disposable_domains"`
	EmailLookupTimeout string   `json:"email_lookup_timeout"`
}

// IdentityConfig 描述身份提供方接入参数。
type IdentityConfig struct {
	BaseURL string `json:"base_url"`
	Timeout string `json:"timeout"`
}

// StorageConfig 描述对象存储凭证签发参数。
type StorageConfig struct {
	// Provider 选择凭证后端：bunny 或 gcs。
	Provider string      `json:"provider"`
	TTL      string      `json:"ttl"`
	Bunny    BunnyConfig `json:"bunny"`
	GCS      GCSConfig   `json:"gcs"`
}

// BunnyConfig 描述 Bunny Stream / Storage 接入参数。
type BunnyConfig struct {
	StreamAPIBase   string `json:"stream_api_base"`
	LibraryID       string `json:"library_id"`
	StreamAccessKey string `json:"stream_access_key"`
	StorageHost     string `json:"storage_host"`
	StorageZone     string `json:"storage_zone"`
	StoragePassword string `json:"storage_password"`
	PullZoneHost    string `json:"pull_zone_host"`
}

// GCSConfig 描述 GCS 签名上传参数。
type GCSConfig struct {
	Bucket               string `json:"bucket"`
	SignerServiceAccount string `json:"signer_service_account"`
	CDNHost              string `json:"cdn_host"`
}

// MessagingConfig 描述 Outbox 发布任务参数。
type MessagingConfig struct {
	ProjectID      string `json:"project_id"`
	TopicID        string `json:"topic_id"`
	BatchSize      int32  `json:"batch_size"`
	TickInterval   string `json:"tick_interval"`
	MaxAttempts    int32  `json:"max_attempts"`
	PublishTimeout string `json:"publish_timeout"`
}

// RenderConfig 描述渲染期约束。
type RenderConfig struct {
	// AllowedImageHosts 是缩略图等远程图片的主机白名单。
	AllowedImageHosts []string `json:"allowed_image_hosts"`
}

// ServiceMetadata 保存服务标识信息，供日志和可观测性组件使用。
type ServiceMetadata struct {
	Name        string
	Version     string
	Environment string
	InstanceID  string
}

// Bundle 聚合强类型的配置片段，供下游 Wire 注入使用。
type Bundle struct {
	Bootstrap *Bootstrap
	Service   ServiceMetadata
}

// AdmissionRuntime 将配置转换为准入策略参数。
func (b *Bundle) AdmissionRuntime() admission.Config {
	cfg := b.Bootstrap.Admission
	return admission.Config{
		FailOpen:           cfg.FailOpen,
		BotAllowedAgents:   append([]string(nil), cfg.BotAllowedAgents...),
		RateLimitMax:       cfg.RateLimitMax,
		RateLimitInterval:  parseDurationOr(cfg.RateLimitInterval, defaultRateLimitInterval),
		DisposableDomains:  append([]string(nil), cfg.DisposableDomains...),
		EmailLookupTimeout: parseDurationOr(cfg.EmailLookupTimeout, defaultEmailLookupTimeout),
	}
}

// IdentityRuntime 将配置转换为身份提供方参数。
func (b *Bundle) IdentityRuntime() identity.Config {
	cfg := b.Bootstrap.Identity
	return identity.Config{
		BaseURL: cfg.BaseURL,
		Timeout: parseDurationOr(cfg.Timeout, defaultIdentityTimeout),
	}
}

// StorageTTL 返回上传凭证的有效期。
func (b *Bundle) StorageTTL() time.Duration {
	return parseDurationOr(b.Bootstrap.Storage.TTL, defaultCredentialTTL)
}

// ParseTimeout 解析持续时间字符串，非法或空值返回 0。
func ParseTimeout(value string) time.Duration {
	return parseDurationOr(value, 0)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
