package vo

import "math"

// DurationSource 标记持久化时长的来源。
type DurationSource string

const (
	// DurationServiceReported 来自转码服务的权威时长。
	DurationServiceReported DurationSource = "service-reported"
	// DurationLocalProbe 来自本地探测。
	DurationLocalProbe DurationSource = "local-probe"
	// DurationDefaultFallback 两者都不可用时的固定兜底值。
	DurationDefaultFallback DurationSource = "default-fallback"
)

// DurationEstimate 表示一个带来源的时长估计，单位为秒。
type DurationEstimate struct {
	Seconds float64
	Source  DurationSource
}

// BestDuration 按优先级选择时长：服务上报 > 本地探测 > 兜底常量。
// 转码服务的数值一旦可用即为权威，这是刻意的设计取舍。
func BestDuration(service, local *float64, fallback float64) DurationEstimate {
	if service != nil && *service > 0 {
		return DurationEstimate{Seconds: *service, Source: DurationServiceReported}
	}
	if local != nil && *local > 0 {
		return DurationEstimate{Seconds: *local, Source: DurationLocalProbe}
	}
	return DurationEstimate{Seconds: fallback, Source: DurationDefaultFallback}
}

// RoundedSeconds 返回四舍五入后的整数秒，用于入库。
func (d DurationEstimate) RoundedSeconds() int32 {
	return int32(math.Round(d.Seconds))
}

// UploadReceipt 是上传编排器的结果：句柄 + （可能尚未解析的）资产引用。
type UploadReceipt struct {
	Handle string
	Ref    AssetRef
}

// CommitResult 描述一次入库提交的结果。
type CommitResult struct {
	RowID        int64
	Strategy     string
	VideoApplied bool
}

// IngestOutcome 汇总一次完整视频摄取的最终状态。
// Background 为 true 表示轮询超时、资产仍在后台处理，上传本身视为成功。
type IngestOutcome struct {
	Receipt    UploadReceipt
	Asset      *MediaAsset
	StreamID   *string
	Duration   DurationEstimate
	Commit     *CommitResult
	Background bool
}
