// Package configloader 负责加载并归一化服务的启动配置。
// 配置来源优先级：环境变量 > 配置文件 > 内置默认值；
// .env.local / .env 仅用于本地开发时注入环境变量。
package configloader

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/joho/godotenv"
)

const (
	envConfPath          = "CONF_PATH"
	envPort              = "PORT"
	envMediakitTokenID   = "MEDIAKIT_TOKEN_ID"
	envMediakitTokenKey  = "MEDIAKIT_TOKEN_SECRET"
	envTenantDirEndpoint = "TENANTDIR_ENDPOINT"
	envTenantDirAPIKey   = "TENANTDIR_API_KEY"
)

var envFileNames = []string{".env.local", ".env"}

// Params 包含构造配置所需的运行时输入参数。
type Params struct {
	ConfPath string // 配置文件路径（可为空，使用默认值）
}

// ParseConfPath 解析命令行中的 -conf 参数，环境变量 CONF_PATH 可覆盖。
func ParseConfPath(fs *flag.FlagSet, args []string) (Params, error) {
	confFlag := fs.String("conf", "", "config path or file, eg: -conf configs/config.yaml")
	if err := fs.Parse(args); err != nil {
		return Params{}, err
	}
	path := *confFlag
	if envPath := os.Getenv(envConfPath); envPath != "" {
		path = envPath
	}
	return Params{ConfPath: path}, nil
}

// fileConfig 与配置文件结构一一对应，时间量以秒计。
type fileConfig struct {
	Server struct {
		Addr           string `json:"addr"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	} `json:"server"`
	Database struct {
		MaxOpenConns             int32 `json:"max_open_conns"`
		MinOpenConns             int32 `json:"min_open_conns"`
		MaxConnLifetimeSeconds   int   `json:"max_conn_lifetime_seconds"`
		MaxConnIdleSeconds       int   `json:"max_conn_idle_seconds"`
		HealthCheckPeriodSeconds int   `json:"health_check_period_seconds"`
		PreparedStatements       bool  `json:"prepared_statements"`
	} `json:"database"`
	Mediakit struct {
		BaseURL             string `json:"base_url"`
		TokenID             string `json:"token_id"`
		TokenSecret         string `json:"token_secret"`
		RequestTimeoutSecs  int    `json:"request_timeout_seconds"`
		MaxUploadBytes      int64  `json:"max_upload_bytes"`
		PollIntervalSeconds int    `json:"poll_interval_seconds"`
		PollMaxAttempts     int    `json:"poll_max_attempts"`
	} `json:"mediakit"`
	TenantDir struct {
		Endpoint        string `json:"endpoint"`
		APIKey          string `json:"api_key"`
		CacheTTLSeconds int    `json:"cache_ttl_seconds"`
	} `json:"tenant_dir"`
	Ingest struct {
		FFprobePath             string  `json:"ffprobe_path"`
		ProbeTimeoutSeconds     int     `json:"probe_timeout_seconds"`
		ProbeFallbackSeconds    int     `json:"probe_fallback_timeout_seconds"`
		FallbackDurationSeconds float64 `json:"fallback_duration_seconds"`
	} `json:"ingest"`
}

// Load 加载配置并返回强类型的 RuntimeConfig 与资源清理函数。
func Load(params Params) (RuntimeConfig, func(), error) {
	loadEnvFiles()

	raw := fileConfig{}
	cleanup := func() {}

	if params.ConfPath != "" {
		if _, err := os.Stat(params.ConfPath); err != nil {
			return RuntimeConfig{}, cleanup, fmt.Errorf("config path %q: %w", params.ConfPath, err)
		}
		c := config.New(config.WithSource(file.NewSource(params.ConfPath)))
		if err := c.Load(); err != nil {
			c.Close()
			return RuntimeConfig{}, cleanup, fmt.Errorf("load config: %w", err)
		}
		if err := c.Scan(&raw); err != nil {
			c.Close()
			return RuntimeConfig{}, cleanup, fmt.Errorf("scan config: %w", err)
		}
		cleanup = func() { _ = c.Close() }
	}

	rc := normalize(raw)
	applyEnvOverrides(&rc)
	applyDefaults(&rc)

	if err := validate(rc); err != nil {
		cleanup()
		return RuntimeConfig{}, func() {}, err
	}
	return rc, cleanup, nil
}

func loadEnvFiles() {
	for _, name := range envFileNames {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

func normalize(raw fileConfig) RuntimeConfig {
	return RuntimeConfig{
		Server: ServerConfig{
			Addr:    raw.Server.Addr,
			Timeout: secondsOrZero(raw.Server.TimeoutSeconds),
		},
		Database: DatabaseConfig{
			MaxOpenConns:       raw.Database.MaxOpenConns,
			MinOpenConns:       raw.Database.MinOpenConns,
			MaxConnLifetime:    secondsOrZero(raw.Database.MaxConnLifetimeSeconds),
			MaxConnIdleTime:    secondsOrZero(raw.Database.MaxConnIdleSeconds),
			HealthCheckPeriod:  secondsOrZero(raw.Database.HealthCheckPeriodSeconds),
			PreparedStatements: raw.Database.PreparedStatements,
		},
		Mediakit: MediakitConfig{
			BaseURL:         raw.Mediakit.BaseURL,
			TokenID:         raw.Mediakit.TokenID,
			TokenSecret:     raw.Mediakit.TokenSecret,
			RequestTimeout:  secondsOrZero(raw.Mediakit.RequestTimeoutSecs),
			MaxUploadBytes:  raw.Mediakit.MaxUploadBytes,
			PollInterval:    secondsOrZero(raw.Mediakit.PollIntervalSeconds),
			PollMaxAttempts: raw.Mediakit.PollMaxAttempts,
		},
		TenantDir: TenantDirConfig{
			Endpoint: raw.TenantDir.Endpoint,
			APIKey:   raw.TenantDir.APIKey,
			CacheTTL: secondsOrZero(raw.TenantDir.CacheTTLSeconds),
		},
		Ingest: IngestConfig{
			FFprobePath:             raw.Ingest.FFprobePath,
			ProbeTimeout:            secondsOrZero(raw.Ingest.ProbeTimeoutSeconds),
			ProbeFallbackTimeout:    secondsOrZero(raw.Ingest.ProbeFallbackSeconds),
			FallbackDurationSeconds: raw.Ingest.FallbackDurationSeconds,
		},
	}
}

func applyEnvOverrides(rc *RuntimeConfig) {
	if port := os.Getenv(envPort); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			rc.Server.Addr = ":" + port
		}
	}
	if v := os.Getenv(envMediakitTokenID); v != "" {
		rc.Mediakit.TokenID = v
	}
	if v := os.Getenv(envMediakitTokenKey); v != "" {
		rc.Mediakit.TokenSecret = v
	}
	if v := os.Getenv(envTenantDirEndpoint); v != "" {
		rc.TenantDir.Endpoint = v
	}
	if v := os.Getenv(envTenantDirAPIKey); v != "" {
		rc.TenantDir.APIKey = v
	}
}

func validate(rc RuntimeConfig) error {
	if rc.Mediakit.BaseURL == "" {
		return errors.New("config: mediakit.base_url is required")
	}
	if rc.Mediakit.TokenID == "" || rc.Mediakit.TokenSecret == "" {
		return errors.New("config: mediakit token credentials are required (MEDIAKIT_TOKEN_ID/MEDIAKIT_TOKEN_SECRET)")
	}
	if rc.TenantDir.Endpoint == "" {
		return errors.New("config: tenant_dir.endpoint is required (TENANTDIR_ENDPOINT)")
	}
	return nil
}

func secondsOrZero(seconds int) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
