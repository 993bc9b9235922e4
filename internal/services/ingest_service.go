package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/krishanmaan/maanedu-media/internal/models/po"
	"github.com/krishanmaan/maanedu-media/internal/models/vo"

	"github.com/go-kratos/kratos/v2/log"
)

// DurationProber 定义本地时长探测能力。
type DurationProber interface {
	Probe(ctx context.Context, path string) (float64, error)
}

// videoURLScheme 是入库定位符的协议前缀：stream://<流 ID 或资产 ID>。
// 流 ID 未知时退回资产 ID，保证记录总是可被后续流程重新解析。
const videoURLScheme = "stream"

const defaultFallbackDuration = 60.0

// IngestConfig 描述流水线参数。
type IngestConfig struct {
	FallbackDurationSeconds float64
}

// IngestInput 描述一次完整的视频摄取请求。
type IngestInput struct {
	Upload    UploadInput
	LocalPath string // 本地暂存文件路径，供时长探测使用；为空则跳过探测
	Table     string
	Draft     po.ContentDraft
	Settings  map[string]any
}

// IngestService 按既定控制流组装流水线：
// 探测（尽力而为）∥ 上传（致命）→ 轮询（超时非致命）→ 提交（全败致命）。
type IngestService struct {
	prober    DurationProber
	uploads   *UploadService
	poller    *PollService
	committer *CommitService
	fallback  float64
	log       *log.Helper
}

// NewIngestService 构造 IngestService。
func NewIngestService(prober DurationProber, uploads *UploadService, poller *PollService, committer *CommitService, cfg IngestConfig, logger log.Logger) (*IngestService, error) {
	switch {
	case prober == nil:
		return nil, errors.New("ingest service: prober is required")
	case uploads == nil:
		return nil, errors.New("ingest service: upload service is required")
	case poller == nil:
		return nil, errors.New("ingest service: poll service is required")
	case committer == nil:
		return nil, errors.New("ingest service: commit service is required")
	}
	if cfg.FallbackDurationSeconds <= 0 {
		cfg.FallbackDurationSeconds = defaultFallbackDuration
	}
	return &IngestService{
		prober:    prober,
		uploads:   uploads,
		poller:    poller,
		committer: committer,
		fallback:  cfg.FallbackDurationSeconds,
		log:       log.NewHelper(logger),
	}, nil
}

// Ingest 执行一次完整摄取。
// 时长探测与字节上传逻辑无关，两者并行；轮询必须等上传完成后才开始，
// 因为资产在传输结束前不存在。
func (s *IngestService) Ingest(ctx context.Context, tenantID string, input IngestInput, observer Observer) (*vo.IngestOutcome, error) {
	if observer == nil {
		observer = NopObserver
	}
	if err := validateIngestTable(input.Table); err != nil {
		return nil, err
	}

	probed := s.startProbe(ctx, input.LocalPath)

	receipt, err := s.uploads.Upload(ctx, input.Upload, observer)
	if err != nil {
		return nil, err
	}

	outcome := &vo.IngestOutcome{Receipt: *receipt}

	asset, pollErr := s.poller.Watch(ctx, receipt.Ref, func(status string) {
		observer.OnStatus(status)
	})
	switch {
	case pollErr == nil:
		outcome.Asset = asset
		outcome.Receipt.Ref = outcome.Receipt.Ref.Resolve(asset.AssetID)
		if streamID, ok := asset.FirstStreamID(); ok {
			outcome.StreamID = &streamID
		}
	case errors.Is(pollErr, ErrPollingTimeout):
		// 上传本身已成功，资产留在后台处理，稍后由 UI 重新对账。
		s.log.WithContext(ctx).Warnf("asset still processing in background: handle=%s", receipt.Handle)
		outcome.Background = true
		observer.OnStatus("background_processing")
	default:
		return nil, pollErr
	}

	localDuration := probed.wait(ctx, s.log)
	var serviceDuration *float64
	if outcome.Asset != nil {
		serviceDuration = outcome.Asset.DurationSeconds
	}
	outcome.Duration = vo.BestDuration(serviceDuration, localDuration, s.fallback)

	commit, err := s.committer.Commit(ctx, tenantID, input.Table, s.buildDraft(input, outcome))
	if err != nil {
		return nil, err
	}
	outcome.Commit = commit

	s.log.WithContext(ctx).Infof(
		"ingest completed: table=%s title=%s locator=%s duration=%ds source=%s background=%v strategy=%s",
		input.Table, input.Draft.Title, outcome.Receipt.Ref.Locator(),
		outcome.Duration.RoundedSeconds(), outcome.Duration.Source, outcome.Background, commit.Strategy,
	)
	return outcome, nil
}

func (s *IngestService) buildDraft(input IngestInput, outcome *vo.IngestOutcome) po.RecordDraft {
	locator := outcome.Receipt.Ref.Locator()
	videoURL := fmt.Sprintf("%s://%s", videoURLScheme, locator)
	if outcome.StreamID != nil {
		videoURL = fmt.Sprintf("%s://%s", videoURLScheme, *outcome.StreamID)
	}

	video := po.VideoFields{
		VideoURL:        videoURL,
		DurationSeconds: outcome.Duration.RoundedSeconds(),
		StreamID:        outcome.StreamID,
	}
	if assetID, ok := outcome.Receipt.Ref.AssetID(); ok {
		video.AssetID = &assetID
	} else {
		// 未解析时沿用句柄占位，记录仍可被重新解析。
		handle := outcome.Receipt.Handle
		video.AssetID = &handle
	}

	return po.RecordDraft{
		Content:  input.Draft,
		Video:    video,
		Settings: input.Settings,
	}
}

// probeResult 承载并行探测的结果通道。
type probeResult struct {
	ch chan *float64
}

// startProbe 并行启动本地探测；失败是非致命的，结果缺失由时长优先级兜底。
func (s *IngestService) startProbe(ctx context.Context, path string) probeResult {
	ch := make(chan *float64, 1)
	if path == "" {
		ch <- nil
		return probeResult{ch: ch}
	}

	go func() {
		seconds, err := s.prober.Probe(ctx, path)
		if err != nil {
			s.log.WithContext(ctx).Warnf("local duration probe unavailable: path=%s err=%v", path, err)
			ch <- nil
			return
		}
		ch <- &seconds
	}()
	return probeResult{ch: ch}
}

func (p probeResult) wait(ctx context.Context, helper *log.Helper) *float64 {
	select {
	case seconds := <-p.ch:
		return seconds
	case <-ctx.Done():
		helper.WithContext(ctx).Warn("ingest cancelled while waiting for duration probe")
		return nil
	}
}

func validateIngestTable(table string) error {
	switch table {
	case po.TableCourses, po.TableClasses:
		return nil
	default:
		return fmt.Errorf("ingest: unsupported target table %q", table)
	}
}

// AssetSnapshot 为 UI 的刷新按钮提供一次性的资产状态查询。
func (s *IngestService) AssetSnapshot(ctx context.Context, assetID string) (*vo.MediaAsset, error) {
	snapshot, err := s.poller.gateway.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	asset := &vo.MediaAsset{
		AssetID:         snapshot.AssetID,
		State:           vo.AssetState(snapshot.Status),
		StreamIDs:       snapshot.StreamIDs,
		DurationSeconds: snapshot.DurationSeconds,
	}
	return asset, nil
}
