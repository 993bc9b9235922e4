// Package tenantdir 从独立的实时配置存储解析租户的内容库接入凭据。
// 目录只暴露一个查询：机构标识 -> {连接地址, 密钥}。
package tenantdir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// ErrTenantUnknown 表示目录中不存在该租户。
var ErrTenantUnknown = errors.New("tenantdir: unknown tenant")

// Credentials 是目录返回的内容库接入参数。
type Credentials struct {
	Endpoint string `json:"url"`
	Key      string `json:"key"`
}

// Config 描述目录接入参数。
type Config struct {
	Endpoint string
	APIKey   string
	CacheTTL time.Duration
	Timeout  time.Duration
}

// Directory 带 TTL 缓存的目录客户端。
// 凭据变更频率极低，短缓存即可避免每次上传都打一次目录。
type Directory struct {
	endpoint string
	apiKey   string
	ttl      time.Duration
	httpc    *http.Client
	log      *log.Helper
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	creds   Credentials
	expires time.Time
}

// NewDirectory 构造 Directory。
func NewDirectory(cfg Config, logger log.Logger) (*Directory, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("tenantdir: endpoint is required")
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Directory{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		ttl:      ttl,
		httpc:    &http.Client{Timeout: timeout},
		log:      log.NewHelper(logger),
		now:      time.Now,
		cache:    make(map[string]cacheEntry),
	}, nil
}

// Lookup 解析租户凭据，优先命中缓存。
func (d *Directory) Lookup(ctx context.Context, tenantID string) (Credentials, error) {
	if tenantID == "" {
		return Credentials{}, errors.New("tenantdir: tenant id is required")
	}

	d.mu.Lock()
	entry, ok := d.cache[tenantID]
	d.mu.Unlock()
	if ok && entry.expires.After(d.now()) {
		return entry.creds, nil
	}

	creds, err := d.fetch(ctx, tenantID)
	if err != nil {
		return Credentials{}, err
	}

	d.mu.Lock()
	d.cache[tenantID] = cacheEntry{creds: creds, expires: d.now().Add(d.ttl)}
	d.mu.Unlock()
	return creds, nil
}

// Invalidate 丢弃缓存条目，用于凭据轮换后的强制刷新。
func (d *Directory) Invalidate(tenantID string) {
	d.mu.Lock()
	delete(d.cache, tenantID)
	d.mu.Unlock()
}

func (d *Directory) fetch(ctx context.Context, tenantID string) (Credentials, error) {
	target := fmt.Sprintf("%s/tenants/%s.json", d.endpoint, url.PathEscape(tenantID))
	if d.apiKey != "" {
		target += "?auth=" + url.QueryEscape(d.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Credentials{}, fmt.Errorf("tenantdir lookup: build request: %w", err)
	}

	resp, err := d.httpc.Do(req)
	if err != nil {
		return Credentials{}, fmt.Errorf("tenantdir lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Credentials{}, fmt.Errorf("%w: %s", ErrTenantUnknown, tenantID)
	}
	if resp.StatusCode != http.StatusOK {
		return Credentials{}, fmt.Errorf("tenantdir lookup: unexpected status %d", resp.StatusCode)
	}

	var creds Credentials
	if err := json.NewDecoder(resp.Body).Decode(&creds); err != nil {
		return Credentials{}, fmt.Errorf("tenantdir lookup: decode: %w", err)
	}
	// 实时配置存储对缺失键返回字面量 null，同样按未知租户处理。
	if creds.Endpoint == "" {
		return Credentials{}, fmt.Errorf("%w: %s", ErrTenantUnknown, tenantID)
	}
	return creds, nil
}
