// Package database 负责按租户管理内容库 PostgreSQL 连接池。
// 租户凭据来自实时配置目录，连接池按需懒创建并在进程退出时统一关闭。
package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/krishanmaan/maanedu-media/internal/clients/tenantdir"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig 描述应用到每个租户连接池的参数。
type PoolConfig struct {
	MaxOpenConns      int32
	MinOpenConns      int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	PreparedStmts     bool
}

// TenantHandle 聚合单个租户的连接池与事务管理器。
type TenantHandle struct {
	Pool *pgxpool.Pool
	Tx   txmanager.Manager
}

// TenantPools 按租户缓存连接池。
type TenantPools struct {
	dir    *tenantdir.Directory
	cfg    PoolConfig
	logger log.Logger
	log    *log.Helper

	mu      sync.Mutex
	handles map[string]*TenantHandle
}

// NewTenantPools 构造 TenantPools，并返回关闭全部连接池的 cleanup。
func NewTenantPools(dir *tenantdir.Directory, cfg PoolConfig, logger log.Logger) (*TenantPools, func(), error) {
	if dir == nil {
		return nil, nil, fmt.Errorf("database: tenant directory is required")
	}
	p := &TenantPools{
		dir:     dir,
		cfg:     cfg,
		logger:  logger,
		log:     log.NewHelper(logger),
		handles: make(map[string]*TenantHandle),
	}
	cleanup := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for tenant, h := range p.handles {
			p.log.Infof("closing postgres pool: tenant=%s", tenant)
			h.Pool.Close()
		}
		p.handles = make(map[string]*TenantHandle)
	}
	return p, cleanup, nil
}

// Handle 返回租户的连接池句柄，必要时创建并做启动健康检查。
func (p *TenantPools) Handle(ctx context.Context, tenantID string) (*TenantHandle, error) {
	p.mu.Lock()
	if h, ok := p.handles[tenantID]; ok {
		p.mu.Unlock()
		return h, nil
	}
	p.mu.Unlock()

	creds, err := p.dir.Lookup(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve tenant credentials: %w", err)
	}

	pool, err := p.openPool(ctx, creds)
	if err != nil {
		return nil, err
	}

	tx, err := txmanager.NewManager(pool, txmanager.Config{}, txmanager.Dependencies{Logger: p.logger})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init tx manager: %w", err)
	}

	h := &TenantHandle{Pool: pool, Tx: tx}

	p.mu.Lock()
	defer p.mu.Unlock()
	// 并发创建时保留先到者，后建的池立即关闭。
	if existing, ok := p.handles[tenantID]; ok {
		pool.Close()
		return existing, nil
	}
	p.handles[tenantID] = h
	p.log.Infof("postgres pool created: tenant=%s dsn=%s max_conns=%d", tenantID, sanitizeDSN(creds.Endpoint), p.cfg.MaxOpenConns)
	return h, nil
}

func (p *TenantPools) openPool(ctx context.Context, creds tenantdir.Credentials) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(creds.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse tenant DSN: %w", err)
	}
	if creds.Key != "" {
		poolConfig.ConnConfig.Password = creds.Key
	}

	if p.cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = p.cfg.MaxOpenConns
	}
	if p.cfg.MinOpenConns >= 0 {
		poolConfig.MinConns = p.cfg.MinOpenConns
	}
	if p.cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = p.cfg.MaxConnLifetime
	}
	if p.cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = p.cfg.MaxConnIdleTime
	}
	if p.cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = p.cfg.HealthCheckPeriod
	}

	poolConfig.ConnConfig.Tracer = &pgxLogger{helper: p.log}

	// 托管 Pooler 模式下必须禁用 prepared statements。
	if !p.cfg.PreparedStmts {
		poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err := healthCheck(ctx, pool, p.log); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres health check failed: %w", err)
	}
	return pool, nil
}

// healthCheck 在池创建时验证连接可达且可执行 SQL。
func healthCheck(ctx context.Context, pool *pgxpool.Pool, helper *log.Helper) error {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(healthCtx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var version string
	if err := pool.QueryRow(healthCtx, "SELECT version()").Scan(&version); err != nil {
		return fmt.Errorf("version query failed: %w", err)
	}

	helper.Infof("database health check passed: version=%s", truncateVersion(version))
	return nil
}

// sanitizeDSN 隐藏 DSN 中的密码，便于安全地写入日志。
func sanitizeDSN(dsn string) string {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	if parsed.User != nil {
		username := parsed.User.Username()
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(username, "***")
		}
	}
	return parsed.String()
}

func truncateVersion(version string) string {
	if idx := strings.Index(version, "("); idx != -1 {
		return strings.TrimSpace(version[:idx])
	}
	if len(version) > 100 {
		return version[:100] + "..."
	}
	return version
}

// pgxLogger 将 pgx 查询错误转发到 Kratos Logger，查询开始不记录以避免噪音。
type pgxLogger struct {
	helper *log.Helper
}

func (l *pgxLogger) TraceQueryStart(ctx context.Context, _ *pgx.Conn, _ pgx.TraceQueryStartData) context.Context {
	return ctx
}

func (l *pgxLogger) TraceQueryEnd(_ context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	if data.Err != nil {
		// 仅记录错误信息，不记录 SQL，避免敏感数据进日志。
		l.helper.Errorf("postgres query failed: error=%v command_tag=%s", data.Err, data.CommandTag.String())
	}
}
