// Package controllers 实现管理控制台的 HTTP 接入层。
// 接入层保持薄：解析请求、暂存文件、调用 services 流水线、编码响应。
package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/krishanmaan/maanedu-media/internal/clients/mediakit"
	"github.com/krishanmaan/maanedu-media/internal/models/po"
	"github.com/krishanmaan/maanedu-media/internal/services"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/uuid"
)

const headerTenantID = "X-Tenant-ID"

// 错误 reason 常量，供前端按类别提示。
const (
	reasonTenantRequired    = "TENANT_REQUIRED"
	reasonIngestInvalid     = "INGEST_INVALID"
	reasonUploadRejected    = "UPLOAD_REJECTED"
	reasonFileTooLarge      = "FILE_TOO_LARGE"
	reasonTransferFailed    = "TRANSFER_FAILED"
	reasonProcessingFailed  = "PROCESSING_FAILED"
	reasonPersistenceFailed = "PERSISTENCE_FAILED"
	reasonAssetNotFound     = "ASSET_NOT_FOUND"
)

// IngestHandler 暴露视频摄取流水线的 HTTP 入口。
type IngestHandler struct {
	svc *services.IngestService
	log *log.Helper
}

// NewIngestHandler 构造 IngestHandler。
func NewIngestHandler(svc *services.IngestService, logger log.Logger) *IngestHandler {
	return &IngestHandler{svc: svc, log: log.NewHelper(logger)}
}

// ingestResponse 是摄取结果的响应体。
type ingestResponse struct {
	IngestID        string  `json:"ingest_id"`
	UploadHandle    string  `json:"upload_handle"`
	AssetID         string  `json:"asset_id"`
	StreamID        *string `json:"stream_id,omitempty"`
	DurationSeconds int32   `json:"duration_seconds"`
	DurationSource  string  `json:"duration_source"`
	Background      bool    `json:"background"`
	RowID           int64   `json:"row_id"`
	CommitStrategy  string  `json:"commit_strategy"`
}

// Ingest 处理 multipart 摄取请求：file 字段为视频，其余为表单字段。
func (h *IngestHandler) Ingest(ctx khttp.Context) error {
	req := ctx.Request()

	tenantID := strings.TrimSpace(req.Header.Get(headerTenantID))
	if tenantID == "" {
		return kerrors.BadRequest(reasonTenantRequired, "X-Tenant-ID header is required")
	}

	// 每次摄取分配独立 ID，贯穿日志与响应，便于跨系统排查。
	ingestID := uuid.NewString()

	staged, err := h.collectUpload(req)
	if err != nil {
		return err
	}
	defer staged.cleanup()

	input, err := buildIngestInput(staged.value, staged.header)
	if err != nil {
		return err
	}

	body, err := os.Open(staged.path)
	if err != nil {
		return kerrors.InternalServer(reasonIngestInvalid, "failed to reopen staged upload")
	}
	defer body.Close()

	input.LocalPath = staged.path
	input.Upload.Body = body

	h.log.WithContext(req.Context()).Infof("ingest started: id=%s tenant=%s file=%s size=%d", ingestID, tenantID, staged.header.Filename, staged.header.Size)

	outcome, err := h.svc.Ingest(req.Context(), tenantID, input, NopProgress{})
	if err != nil {
		h.log.WithContext(req.Context()).Warnf("ingest failed: id=%s err=%v", ingestID, err)
		return h.mapIngestError(err)
	}

	resp := ingestResponse{
		IngestID:        ingestID,
		UploadHandle:    outcome.Receipt.Handle,
		AssetID:         outcome.Receipt.Ref.Locator(),
		StreamID:        outcome.StreamID,
		DurationSeconds: outcome.Duration.RoundedSeconds(),
		DurationSource:  string(outcome.Duration.Source),
		Background:      outcome.Background,
		RowID:           outcome.Commit.RowID,
		CommitStrategy:  outcome.Commit.Strategy,
	}
	return ctx.Result(200, resp)
}

// assetResponse 是资产快照查询的响应体。
type assetResponse struct {
	AssetID         string   `json:"asset_id"`
	State           string   `json:"state"`
	StreamIDs       []string `json:"stream_ids,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
}

// GetAsset 为 UI 的刷新按钮提供一次性资产状态查询。
func (h *IngestHandler) GetAsset(ctx khttp.Context) error {
	assetID := ctx.Vars().Get("id")
	if assetID == "" {
		return kerrors.BadRequest(reasonIngestInvalid, "asset id is required")
	}

	asset, err := h.svc.AssetSnapshot(ctx.Request().Context(), assetID)
	if err != nil {
		if errors.Is(err, mediakit.ErrAssetNotFound) {
			return kerrors.NotFound(reasonAssetNotFound, "asset not found")
		}
		h.log.WithContext(ctx.Request().Context()).Errorf("asset snapshot failed: id=%s err=%v", assetID, err)
		return kerrors.InternalServer(reasonIngestInvalid, "failed to fetch asset")
	}

	return ctx.Result(200, assetResponse{
		AssetID:         asset.AssetID,
		State:           string(asset.State),
		StreamIDs:       asset.StreamIDs,
		DurationSeconds: asset.DurationSeconds,
	})
}

func buildIngestInput(formValue func(string) string, header *multipart.FileHeader) (services.IngestInput, error) {
	table := formValue("table")
	if table == "" {
		table = po.TableCourses
	}

	title := strings.TrimSpace(formValue("title"))
	if title == "" {
		return services.IngestInput{}, kerrors.BadRequest(reasonIngestInvalid, "title is required")
	}

	var price int64
	if raw := formValue("price"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			return services.IngestInput{}, kerrors.BadRequest(reasonIngestInvalid, "price must be a non-negative integer")
		}
		price = parsed
	}

	var settings map[string]any
	if raw := formValue("settings"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			return services.IngestInput{}, kerrors.BadRequest(reasonIngestInvalid, "settings must be a JSON object")
		}
	}

	contentType := header.Header.Get("Content-Type")

	return services.IngestInput{
		Upload: services.UploadInput{
			Name:        header.Filename,
			ContentType: contentType,
			SizeBytes:   header.Size,
		},
		Table: table,
		Draft: po.ContentDraft{
			Title:       title,
			Description: formValue("description"),
			Category:    formValue("category"),
			Price:       price,
		},
		Settings: settings,
	}, nil
}

func (h *IngestHandler) mapIngestError(err error) error {
	var transferErr *mediakit.TransferError
	switch {
	case errors.Is(err, services.ErrUploadRejected):
		return kerrors.BadRequest(reasonUploadRejected, err.Error())
	case errors.Is(err, services.ErrFileTooLarge):
		return kerrors.BadRequest(reasonFileTooLarge, err.Error())
	case errors.As(err, &transferErr):
		return kerrors.New(http.StatusBadGateway, reasonTransferFailed, fmt.Sprintf("byte transfer failed: status=%d", transferErr.Status))
	case errors.Is(err, services.ErrProcessingFailed):
		return kerrors.InternalServer(reasonProcessingFailed, "asset processing failed; please re-upload")
	case errors.Is(err, services.ErrPersistenceFailed):
		return kerrors.InternalServer(reasonPersistenceFailed, "failed to persist record")
	default:
		h.log.Errorf("unexpected ingest error: %v", err)
		return kerrors.InternalServer(reasonIngestInvalid, "ingest failed")
	}
}

// stagedUpload 是流式解析 multipart 请求的产物：普通字段驻留内存，
// 文件内容恰好落盘一次，供时长探测与字节上传共用。
type stagedUpload struct {
	values  map[string]string
	header  *multipart.FileHeader
	path    string
	cleanup func()
}

func (s *stagedUpload) value(key string) string { return s.values[key] }

// 单个非文件表单字段的大小上限。
const maxFormFieldBytes = 1 << 20

// collectUpload 流式消费 multipart 请求体。文件字段直接写入暂存
// 文件；走 ParseMultipartForm 会先在临时目录里多留一份完整副本，
// 大视频下磁盘占用翻倍。
func (h *IngestHandler) collectUpload(req *http.Request) (*stagedUpload, error) {
	reader, err := req.MultipartReader()
	if err != nil {
		return nil, kerrors.BadRequest(reasonIngestInvalid, fmt.Sprintf("parse multipart form: %v", err))
	}

	staged := &stagedUpload{values: make(map[string]string), cleanup: func() {}}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			staged.cleanup()
			return nil, kerrors.BadRequest(reasonIngestInvalid, fmt.Sprintf("read multipart part: %v", err))
		}

		if part.FormName() == "file" && part.FileName() != "" {
			if staged.header != nil {
				// 只接受第一个文件字段。
				_ = part.Close()
				continue
			}
			path, size, cleanup, err := stageFile(part, part.FileName())
			if err != nil {
				_ = part.Close()
				staged.cleanup()
				h.log.WithContext(req.Context()).Errorf("stage upload file failed: %v", err)
				return nil, kerrors.InternalServer(reasonIngestInvalid, "failed to stage upload")
			}
			staged.path = path
			staged.cleanup = cleanup
			staged.header = &multipart.FileHeader{
				Filename: part.FileName(),
				Header:   part.Header,
				Size:     size,
			}
			_ = part.Close()
			continue
		}

		raw, err := io.ReadAll(io.LimitReader(part, maxFormFieldBytes))
		if err != nil {
			_ = part.Close()
			staged.cleanup()
			return nil, kerrors.BadRequest(reasonIngestInvalid, fmt.Sprintf("read form field %q: %v", part.FormName(), err))
		}
		staged.values[part.FormName()] = string(raw)
		_ = part.Close()
	}

	if staged.header == nil {
		staged.cleanup()
		return nil, kerrors.BadRequest(reasonIngestInvalid, "file field is required")
	}
	return staged, nil
}

// stageFile 将上传内容落盘为临时文件，返回路径、字节数与清理函数。
func stageFile(src io.Reader, name string) (string, int64, func(), error) {
	tmp, err := os.CreateTemp("", "maanedu-ingest-*")
	if err != nil {
		return "", 0, nil, fmt.Errorf("create temp file for %s: %w", name, err)
	}
	path := tmp.Name()
	cleanup := func() { _ = os.Remove(path) }

	size, err := io.Copy(tmp, src)
	if err != nil {
		tmp.Close()
		cleanup()
		return "", 0, nil, fmt.Errorf("stage %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", 0, nil, fmt.Errorf("close staged file: %w", err)
	}
	return path, size, cleanup, nil
}

// NopProgress 丢弃进度回调；HTTP 同步接口暂无进度通道。
// TODO: 控制台接入 SSE 后改为推送 OnProgress/OnStatus 事件。
type NopProgress struct{}

// OnProgress 实现 services.Observer。
func (NopProgress) OnProgress(int) {}

// OnStatus 实现 services.Observer。
func (NopProgress) OnStatus(string) {}
