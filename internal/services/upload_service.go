package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/krishanmaan/maanedu-media/internal/clients/mediakit"
	"github.com/krishanmaan/maanedu-media/internal/models/vo"

	"github.com/go-kratos/kratos/v2/log"
)

// UploadGateway 定义上传编排器需要的转码服务能力，便于测试。
type UploadGateway interface {
	CreateUploadSlot(ctx context.Context) (*mediakit.UploadSlot, error)
	TransferFile(ctx context.Context, targetURL, contentType string, body io.Reader, size int64, onProgress func(float64)) error
	GetUploadLink(ctx context.Context, handle string) (string, error)
}

// UploadInput 描述一次待上传的本地文件。
type UploadInput struct {
	Name        string
	ContentType string
	SizeBytes   int64
	Body        io.Reader
}

const defaultMaxUploadBytes = int64(10) << 30 // 10 GiB

// UploadService 编排直传：申请槽位 → 传输字节 → 解析资产引用。
type UploadService struct {
	gateway  UploadGateway
	maxBytes int64
	log      *log.Helper
}

// NewUploadService 构造 UploadService。
func NewUploadService(gateway UploadGateway, maxBytes int64, logger log.Logger) (*UploadService, error) {
	if gateway == nil {
		return nil, errors.New("upload service: gateway is required")
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &UploadService{
		gateway:  gateway,
		maxBytes: maxBytes,
		log:      log.NewHelper(logger),
	}, nil
}

// Upload 执行一次直传，失败类型：
//   - ErrUploadRejected / ErrFileTooLarge：入参校验，立即拒绝，不重试；
//   - *mediakit.TransferError：字节传输非 2xx，携带状态与响应体。
//
// 句柄到资产的立即解析是尽力而为：部分查询只对已建资产生效，
// 解析不到时引用保持 Pending，由状态轮询器完成最终对账。
func (s *UploadService) Upload(ctx context.Context, input UploadInput, observer Observer) (*vo.UploadReceipt, error) {
	if observer == nil {
		observer = NopObserver
	}
	if err := s.validate(input); err != nil {
		return nil, err
	}

	slot, err := s.gateway.CreateUploadSlot(ctx)
	if err != nil {
		return nil, fmt.Errorf("create upload slot: %w", err)
	}
	observer.OnProgress(10)

	err = s.gateway.TransferFile(ctx, slot.TargetURL, input.ContentType, input.Body, input.SizeBytes, func(ratio float64) {
		// 字节传输映射到 10%–90% 区间。
		observer.OnProgress(10 + int(ratio*80))
	})
	if err != nil {
		return nil, err
	}
	observer.OnProgress(90)

	ref := vo.PendingUpload(slot.Handle)
	assetID, linkErr := s.gateway.GetUploadLink(ctx, slot.Handle)
	switch {
	case linkErr != nil:
		s.log.WithContext(ctx).Warnf("immediate upload link resolution failed: handle=%s err=%v", slot.Handle, linkErr)
	case assetID != "":
		ref = ref.Resolve(assetID)
	}
	observer.OnProgress(100)

	s.log.WithContext(ctx).Infof("upload transferred: name=%s handle=%s resolved=%v", input.Name, slot.Handle, assetID != "")
	return &vo.UploadReceipt{Handle: slot.Handle, Ref: ref}, nil
}

func (s *UploadService) validate(input UploadInput) error {
	if input.Body == nil {
		return fmt.Errorf("%w: no file content", ErrUploadRejected)
	}
	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	if !strings.HasPrefix(contentType, "video/") {
		return fmt.Errorf("%w: %s", ErrUploadRejected, input.ContentType)
	}
	if input.SizeBytes > s.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, input.SizeBytes, s.maxBytes)
	}
	return nil
}
