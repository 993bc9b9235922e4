// Package mediakit 封装对外部视频转码/分发服务的 HTTP 访问。
// 该服务拥有资产的完整生命周期，这里只消费四个只读/上传入口：
// 创建直传槽位、向一次性 URL 传输字节、句柄到资产的解析、资产快照查询。
package mediakit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// ErrAssetNotFound 表示转码服务侧不存在该资产。
var ErrAssetNotFound = errors.New("mediakit: asset not found")

// APIError 携带转码服务返回的非 2xx 响应。
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mediakit %s: status=%d body=%s", e.Op, e.Status, e.Body)
}

// TransferError 携带直传字节阶段的失败状态，调用方据此判定 TransferFailed。
type TransferError struct {
	Status int
	Body   string
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("mediakit transfer: status=%d body=%s", e.Status, e.Body)
}

// UploadSlot 是一次性授权的直传槽位。
type UploadSlot struct {
	Handle    string
	TargetURL string
}

// AssetSnapshot 是资产处理状态的一次只读快照。
type AssetSnapshot struct {
	AssetID         string
	Status          string
	StreamIDs       []string
	DurationSeconds *float64
}

// Config 描述转码服务接入参数。
type Config struct {
	BaseURL     string
	TokenID     string
	TokenSecret string
	Timeout     time.Duration
}

// Client 是转码服务的 HTTP 客户端。
type Client struct {
	baseURL     string
	tokenID     string
	tokenSecret string
	httpc       *http.Client
	transferc   *http.Client
	log         *log.Helper
}

// NewClient 构造 Client。字节传输使用不带超时的独立 http.Client：
// 大文件的传输时长只受文件尺寸与网络带宽约束，由调用方的 ctx 控制取消。
func NewClient(cfg Config, logger log.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("mediakit: base url is required")
	}
	if cfg.TokenID == "" || cfg.TokenSecret == "" {
		return nil, errors.New("mediakit: token credentials are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		tokenID:     cfg.TokenID,
		tokenSecret: cfg.TokenSecret,
		httpc:       &http.Client{Timeout: timeout},
		transferc:   &http.Client{},
		log:         log.NewHelper(logger),
	}, nil
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type uploadSlotPayload struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	AssetID string `json:"asset_id"`
}

type assetPayload struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"`
	Duration    *float64 `json:"duration"`
	PlaybackIDs []struct {
		ID string `json:"id"`
	} `json:"playback_ids"`
}

// CreateUploadSlot 申请一个直传槽位（句柄 + 一次性目标 URL）。
func (c *Client) CreateUploadSlot(ctx context.Context) (*UploadSlot, error) {
	body := map[string]any{
		"new_asset_settings": map[string]any{"playback_policy": []string{"public"}},
	}
	var payload uploadSlotPayload
	if err := c.do(ctx, http.MethodPost, "/video/v1/uploads", body, &payload); err != nil {
		return nil, err
	}
	if payload.ID == "" || payload.URL == "" {
		return nil, fmt.Errorf("mediakit create upload slot: incomplete response: id=%q", payload.ID)
	}
	return &UploadSlot{Handle: payload.ID, TargetURL: payload.URL}, nil
}

// TransferFile 将原始字节直传到一次性 URL。onProgress 以传输比例 [0,1] 回调，
// 仅用于 UI 反馈，不承载正确性契约。
func (c *Client) TransferFile(ctx context.Context, targetURL, contentType string, body io.Reader, size int64, onProgress func(float64)) error {
	reader := body
	if onProgress != nil && size > 0 {
		reader = &progressReader{r: body, total: size, report: onProgress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, targetURL, reader)
	if err != nil {
		return fmt.Errorf("mediakit transfer: build request: %w", err)
	}
	if size > 0 {
		req.ContentLength = size
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.transferc.Do(req)
	if err != nil {
		return fmt.Errorf("mediakit transfer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransferError{Status: resp.StatusCode, Body: readSnippet(resp.Body)}
	}
	return nil
}

// GetUploadLink 尝试把上传句柄解析为资产 ID。
// 服务尚未建立关联时返回空串，由轮询器稍后再次解析。
func (c *Client) GetUploadLink(ctx context.Context, handle string) (string, error) {
	var payload uploadSlotPayload
	if err := c.do(ctx, http.MethodGet, "/video/v1/uploads/"+handle, nil, &payload); err != nil {
		return "", err
	}
	return payload.AssetID, nil
}

// GetAsset 查询资产处理状态快照。
func (c *Client) GetAsset(ctx context.Context, assetID string) (*AssetSnapshot, error) {
	var payload assetPayload
	if err := c.do(ctx, http.MethodGet, "/video/v1/assets/"+assetID, nil, &payload); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
		}
		return nil, err
	}

	snapshot := &AssetSnapshot{
		AssetID:         payload.ID,
		Status:          payload.Status,
		DurationSeconds: payload.Duration,
	}
	for _, pb := range payload.PlaybackIDs {
		if pb.ID != "" {
			snapshot.StreamIDs = append(snapshot.StreamIDs, pb.ID)
		}
	}
	return snapshot, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("mediakit %s %s: marshal body: %w", method, path, err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("mediakit %s %s: build request: %w", method, path, err)
	}
	req.SetBasicAuth(c.tokenID, c.tokenSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("mediakit %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Op: method + " " + path, Status: resp.StatusCode, Body: readSnippet(resp.Body)}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("mediakit %s %s: decode envelope: %w", method, path, err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("mediakit %s %s: decode payload: %w", method, path, err)
		}
	}
	return nil
}

func readSnippet(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 2048))
	return strings.TrimSpace(string(raw))
}

// progressReader 在读取过程中按比例回调传输进度。
type progressReader struct {
	r      io.Reader
	total  int64
	sent   int64
	report func(float64)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.sent += int64(n)
		ratio := float64(p.sent) / float64(p.total)
		if ratio > 1 {
			ratio = 1
		}
		p.report(ratio)
	}
	return n, err
}
