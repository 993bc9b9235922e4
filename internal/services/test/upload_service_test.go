package services_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/krishanmaan/maanedu-media/internal/clients/mediakit"
	"github.com/krishanmaan/maanedu-media/internal/services"

	"github.com/go-kratos/kratos/v2/log"
)

type stubUploadGateway struct {
	slot        *mediakit.UploadSlot
	slotErr     error
	transferErr error
	linkAssetID string
	linkErr     error

	transferred []byte
	slotCalls   int
	linkCalls   int
}

func (s *stubUploadGateway) CreateUploadSlot(context.Context) (*mediakit.UploadSlot, error) {
	s.slotCalls++
	if s.slotErr != nil {
		return nil, s.slotErr
	}
	return s.slot, nil
}

func (s *stubUploadGateway) TransferFile(_ context.Context, _, _ string, body io.Reader, size int64, onProgress func(float64)) error {
	if s.transferErr != nil {
		return s.transferErr
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.transferred = raw
	if onProgress != nil && size > 0 {
		onProgress(0.5)
		onProgress(1)
	}
	return nil
}

func (s *stubUploadGateway) GetUploadLink(context.Context, string) (string, error) {
	s.linkCalls++
	return s.linkAssetID, s.linkErr
}

// recordingObserver 记录进度与状态回调序列。
type recordingObserver struct {
	progress []int
	statuses []string
}

func (r *recordingObserver) OnProgress(percent int) { r.progress = append(r.progress, percent) }
func (r *recordingObserver) OnStatus(status string) { r.statuses = append(r.statuses, status) }

func newUploadService(t *testing.T, gateway services.UploadGateway, maxBytes int64) *services.UploadService {
	t.Helper()
	svc, err := services.NewUploadService(gateway, maxBytes, log.NewStdLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewUploadService: %v", err)
	}
	return svc
}

func videoInput(content string) services.UploadInput {
	return services.UploadInput{
		Name:        "clip.mp4",
		ContentType: "video/mp4",
		SizeBytes:   int64(len(content)),
		Body:        strings.NewReader(content),
	}
}

func TestUpload_ResolvesAssetImmediately(t *testing.T) {
	gateway := &stubUploadGateway{
		slot:        &mediakit.UploadSlot{Handle: "upload-1", TargetURL: "https://upload.example/put"},
		linkAssetID: "asset-1",
	}
	observer := &recordingObserver{}

	receipt, err := newUploadService(t, gateway, 0).Upload(context.Background(), videoInput("bytes"), observer)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if receipt.Handle != "upload-1" {
		t.Fatalf("unexpected handle %q", receipt.Handle)
	}
	if id, ok := receipt.Ref.AssetID(); !ok || id != "asset-1" {
		t.Fatalf("expected resolved ref, got %q ok=%v", id, ok)
	}
	if string(gateway.transferred) != "bytes" {
		t.Fatalf("gateway received %q", gateway.transferred)
	}

	// 进度里程碑：10（槽位就绪）… 90（传输完毕）… 100（解析完成），单调不减。
	if len(observer.progress) == 0 || observer.progress[0] != 10 {
		t.Fatalf("expected first progress 10, got %v", observer.progress)
	}
	if last := observer.progress[len(observer.progress)-1]; last != 100 {
		t.Fatalf("expected final progress 100, got %v", observer.progress)
	}
	for i := 1; i < len(observer.progress); i++ {
		if observer.progress[i] < observer.progress[i-1] {
			t.Fatalf("progress went backwards: %v", observer.progress)
		}
	}
}

func TestUpload_UnresolvedHandleStaysPending(t *testing.T) {
	gateway := &stubUploadGateway{
		slot: &mediakit.UploadSlot{Handle: "upload-1", TargetURL: "https://upload.example/put"},
	}

	receipt, err := newUploadService(t, gateway, 0).Upload(context.Background(), videoInput("bytes"), nil)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, ok := receipt.Ref.AssetID(); ok {
		t.Fatal("expected pending ref when service has not linked the upload yet")
	}
	if receipt.Ref.Handle() != "upload-1" {
		t.Fatalf("unexpected handle %q", receipt.Ref.Handle())
	}
}

func TestUpload_LinkFailureIsNonFatal(t *testing.T) {
	gateway := &stubUploadGateway{
		slot:    &mediakit.UploadSlot{Handle: "upload-1", TargetURL: "https://upload.example/put"},
		linkErr: errors.New("directory hiccup"),
	}

	receipt, err := newUploadService(t, gateway, 0).Upload(context.Background(), videoInput("bytes"), nil)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, ok := receipt.Ref.AssetID(); ok {
		t.Fatal("expected pending ref after failed link resolution")
	}
}

func TestUpload_RejectsNonVideoContentType(t *testing.T) {
	gateway := &stubUploadGateway{}
	input := videoInput("bytes")
	input.ContentType = "application/pdf"

	_, err := newUploadService(t, gateway, 0).Upload(context.Background(), input, nil)
	if !errors.Is(err, services.ErrUploadRejected) {
		t.Fatalf("expected ErrUploadRejected, got %v", err)
	}
	if gateway.slotCalls != 0 {
		t.Fatal("rejected upload must not reach the gateway")
	}
}

func TestUpload_RejectsOversizedFile(t *testing.T) {
	gateway := &stubUploadGateway{}
	input := videoInput("bytes")
	input.SizeBytes = 100

	_, err := newUploadService(t, gateway, 50).Upload(context.Background(), input, nil)
	if !errors.Is(err, services.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if gateway.slotCalls != 0 {
		t.Fatal("rejected upload must not reach the gateway")
	}
}

func TestUpload_TransferErrorPropagates(t *testing.T) {
	gateway := &stubUploadGateway{
		slot:        &mediakit.UploadSlot{Handle: "upload-1", TargetURL: "https://upload.example/put"},
		transferErr: &mediakit.TransferError{Status: 403, Body: "signature expired"},
	}

	_, err := newUploadService(t, gateway, 0).Upload(context.Background(), videoInput("bytes"), nil)
	var transferErr *mediakit.TransferError
	if !errors.As(err, &transferErr) {
		t.Fatalf("expected TransferError, got %v", err)
	}
	if gateway.linkCalls != 0 {
		t.Fatal("failed transfer must not attempt link resolution")
	}
}
