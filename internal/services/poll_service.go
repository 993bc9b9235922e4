package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/krishanmaan/maanedu-media/internal/clients/mediakit"
	"github.com/krishanmaan/maanedu-media/internal/models/vo"

	"github.com/go-kratos/kratos/v2/log"
)

// AssetGateway 定义轮询器需要的转码服务能力。
type AssetGateway interface {
	GetUploadLink(ctx context.Context, handle string) (string, error)
	GetAsset(ctx context.Context, assetID string) (*mediakit.AssetSnapshot, error)
}

const (
	defaultPollInterval    = 2 * time.Second
	defaultPollMaxAttempts = 150 // 2s * 150 ≈ 5 分钟
)

// PollService 以固定间隔轮询资产处理状态直至就绪、失败或预算耗尽。
// 转码耗时大致有界且稳定，固定间隔比递归退避更简单也足够。
type PollService struct {
	gateway     AssetGateway
	interval    time.Duration
	maxAttempts int
	log         *log.Helper
}

// NewPollService 构造 PollService。
func NewPollService(gateway AssetGateway, interval time.Duration, maxAttempts int, logger log.Logger) (*PollService, error) {
	if gateway == nil {
		return nil, errors.New("poll service: gateway is required")
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultPollMaxAttempts
	}
	return &PollService{
		gateway:     gateway,
		interval:    interval,
		maxAttempts: maxAttempts,
		log:         log.NewHelper(logger),
	}, nil
}

// Watch 阻塞轮询直至终态。状态机：preparing → ready | errored | timed-out。
//   - ready：返回快照（ready 但流 ID 为空视为软成功，由调用方兜底）；
//   - errored：返回 ErrProcessingFailed；
//   - 预算耗尽：返回 ErrPollingTimeout；
//   - 传输错误（资产不存在、凭据失效等）：立即中止并返回具类型原因，
//     不让一个坏资产 ID 烧完整个预算。
//
// onStatus 每次检查以服务原始状态串回调，供 UI 展示。
func (s *PollService) Watch(ctx context.Context, ref vo.AssetRef, onStatus func(string)) (*vo.MediaAsset, error) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		asset, done, err := s.check(ctx, &ref, onStatus)
		if err != nil {
			return nil, err
		}
		if done {
			return asset, nil
		}
		// 末次尝试后直接判定超时，不再多等一个间隔。
		if attempt == s.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	s.log.WithContext(ctx).Warnf("asset polling budget exhausted: handle=%s attempts=%d", ref.Handle(), s.maxAttempts)
	return nil, fmt.Errorf("%w: after %d attempts", ErrPollingTimeout, s.maxAttempts)
}

// check 执行一次状态检查。Pending 引用先补一次句柄解析。
func (s *PollService) check(ctx context.Context, ref *vo.AssetRef, onStatus func(string)) (*vo.MediaAsset, bool, error) {
	assetID, resolved := ref.AssetID()
	if !resolved {
		linked, err := s.gateway.GetUploadLink(ctx, ref.Handle())
		if err != nil {
			return nil, false, fmt.Errorf("resolve upload link: %w", err)
		}
		if linked == "" {
			if onStatus != nil {
				onStatus("waiting_for_asset")
			}
			return nil, false, nil
		}
		*ref = ref.Resolve(linked)
		assetID = linked
	}

	snapshot, err := s.gateway.GetAsset(ctx, assetID)
	if err != nil {
		return nil, false, fmt.Errorf("fetch asset status: %w", err)
	}
	if onStatus != nil {
		onStatus(snapshot.Status)
	}

	switch vo.AssetState(snapshot.Status) {
	case vo.AssetReady:
		return &vo.MediaAsset{
			AssetID:         snapshot.AssetID,
			State:           vo.AssetReady,
			StreamIDs:       snapshot.StreamIDs,
			DurationSeconds: snapshot.DurationSeconds,
		}, true, nil
	case vo.AssetErrored:
		return nil, false, fmt.Errorf("%w: asset=%s", ErrProcessingFailed, assetID)
	default:
		return nil, false, nil
	}
}

// PollTicket 将一次轮询包装成可取消的任务：结果与 cancel 能力同时交给调用方，
// UI 侧组件销毁时可确定性地停止轮询，而不是依赖闭包被垃圾回收。
type PollTicket struct {
	cancel context.CancelFunc
	done   chan struct{}
	asset  *vo.MediaAsset
	err    error
}

// Start 在后台启动轮询并返回票据。
func (s *PollService) Start(ctx context.Context, ref vo.AssetRef, onStatus func(string)) *PollTicket {
	pollCtx, cancel := context.WithCancel(ctx)
	t := &PollTicket{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		t.asset, t.err = s.Watch(pollCtx, ref, onStatus)
	}()
	return t
}

// Wait 阻塞等待轮询结束。
func (t *PollTicket) Wait() (*vo.MediaAsset, error) {
	<-t.done
	return t.asset, t.err
}

// Cancel 停止轮询。已结束的票据上调用无副作用。
func (t *PollTicket) Cancel() {
	t.cancel()
	<-t.done
}
