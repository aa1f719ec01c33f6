package configloader

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/joho/godotenv"
)

const (
	envConfPath    = "CONF_PATH"
	envAppEnv      = "APP_ENV"
	envDatabaseURL = "DATABASE_URL"
	envPort        = "PORT"
)

var envFileNames = []string{".env.local", ".env"}

// Params 包含构造配置 Bundle 所需的运行时输入参数。
type Params struct {
	ConfPath string // 配置文件路径（可为空，使用默认值）
	Name     string
	Version  string
}

// BuildError 捕获配置构建过程中的上下文错误信息。
type BuildError struct {
	Stage string
	Path  string
	Err   error
}

// Error 实现 error 接口，提供包含上下文的错误信息。
func (e BuildError) Error() string {
	if e.Stage == "" {
		return e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("config %s at %q: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Stage, e.Err)
}

// Unwrap 暴露底层错误，支持 errors.Is/As 链式查询。
func (e BuildError) Unwrap() error {
	return e.Err
}

// ParseConfPath 从命令行参数解析 -conf 标志。
func ParseConfPath(fs *flag.FlagSet, args []string) (string, error) {
	var confPath string
	fs.StringVar(&confPath, "conf", "", "config path, eg: -conf configs")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return confPath, nil
}

// ResolveConfPath 应用配置路径回退规则：flag > CONF_PATH > 默认目录。
func ResolveConfPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if fromEnv := os.Getenv(envConfPath); fromEnv != "" {
		return fromEnv
	}
	return defaultConfPath
}

// Build 从引导配置构建 Bundle。
//
// 流程：
// 1. 解析配置路径（应用回退规则）
// 2. 加载 .env 文件与 YAML 配置
// 3. 应用环境变量覆盖与默认值
// 4. 推导服务元信息
func Build(params Params) (*Bundle, func(), error) {
	confPath := ResolveConfPath(params.ConfPath)
	loadEnvFiles(confPath)

	source := config.New(config.WithSource(file.NewSource(confPath)))
	if err := source.Load(); err != nil {
		return nil, nil, BuildError{Stage: "load", Path: confPath, Err: err}
	}

	var bootstrap Bootstrap
	if err := source.Scan(&bootstrap); err != nil {
		source.Close()
		return nil, nil, BuildError{Stage: "scan", Path: confPath, Err: err}
	}

	applyEnvOverrides(&bootstrap)
	applyDefaults(&bootstrap)
	if err := validate(&bootstrap); err != nil {
		source.Close()
		return nil, nil, BuildError{Stage: "validate", Path: confPath, Err: err}
	}

	bundle := &Bundle{
		Bootstrap: &bootstrap,
		Service:   buildServiceMetadata(params.Name, params.Version),
	}
	cleanup := func() {
		_ = source.Close()
	}
	return bundle, cleanup, nil
}

// loadEnvFiles 尝试加载配置目录及工作目录下的 .env 文件，缺失不视为错误。
func loadEnvFiles(confPath string) {
	for _, name := range envFileNames {
		for _, dir := range []string{confPath, "."} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			_ = godotenv.Load(path)
		}
	}
}

func applyEnvOverrides(b *Bootstrap) {
	if dsn := os.Getenv(envDatabaseURL); dsn != "" {
		b.Database.DSN = dsn
	}
	if port := os.Getenv(envPort); port != "" {
		b.Server.Addr = ":" + port
	}
	if key := os.Getenv("BUNNY_STREAM_ACCESS_KEY"); key != "" {
		b.Storage.Bunny.StreamAccessKey = key
	}
	if password := os.Getenv("BUNNY_STORAGE_PASSWORD"); password != "" {
		b.Storage.Bunny.StoragePassword = password
	}
}

func applyDefaults(b *Bootstrap) {
	if b.Server.Addr == "" {
		b.Server.Addr = ":8000"
	}
	if b.Admission.RateLimitMax <= 0 {
		b.Admission.RateLimitMax = 2
	}
	if b.Storage.Provider == "" {
		b.Storage.Provider = "bunny"
	}
	if len(b.Render.AllowedImageHosts) == 0 {
		b.Render.AllowedImageHosts = append([]string(nil), defaultAllowedImageHosts...)
	}
	if b.Messaging.BatchSize <= 0 {
		b.Messaging.BatchSize = 50
	}
	if b.Messaging.MaxAttempts <= 0 {
		b.Messaging.MaxAttempts = 10
	}
}

func validate(b *Bootstrap) error {
	if b.Database.DSN == "" {
		return fmt.Errorf("database dsn is required (set DATABASE_URL)")
	}
	if b.Identity.BaseURL == "" {
		return fmt.Errorf("identity base_url is required")
	}
	switch b.Storage.Provider {
	case "bunny", "gcs":
	default:
		return fmt.Errorf("unsupported storage provider: %s", b.Storage.Provider)
	}
	return nil
}

func buildServiceMetadata(name, version string) ServiceMetadata {
	if name == "" {
		name = defaultServiceName
	}
	if version == "" {
		version = "dev"
	}
	env := os.Getenv(envAppEnv)
	if env == "" {
		env = defaultEnvironment
	}
	host, _ := os.Hostname()
	return ServiceMetadata{
		Name:        name,
		Version:     version,
		Environment: env,
		InstanceID:  host,
	}
}
