// Package vo 定义服务层对外暴露的视图对象（View Objects）。
package vo

// AssetState 表示转码服务侧资产的处理状态。
type AssetState string

const (
	// AssetPreparing 表示资产仍在转码处理中。
	AssetPreparing AssetState = "preparing"
	// AssetReady 表示资产已可播放。
	AssetReady AssetState = "ready"
	// AssetErrored 表示转码失败，需要重新上传。
	AssetErrored AssetState = "errored"
)

// AssetRef 区分「上传句柄」与「资产 ID」两个不同的标识空间。
// 上传完成后转码服务可能尚未建立句柄到资产的关联，此时引用保持 Pending，
// 由状态轮询器负责最终解析，而不是把句柄当作资产 ID 混用。
type AssetRef struct {
	handle  string
	assetID string
}

// PendingUpload 构造一个尚未解析的引用。
func PendingUpload(handle string) AssetRef {
	return AssetRef{handle: handle}
}

// ResolvedAsset 构造一个已解析到资产 ID 的引用。
func ResolvedAsset(handle, assetID string) AssetRef {
	return AssetRef{handle: handle, assetID: assetID}
}

// Handle 返回上传句柄。
func (r AssetRef) Handle() string { return r.handle }

// AssetID 返回资产 ID；未解析时 ok 为 false。
func (r AssetRef) AssetID() (string, bool) {
	return r.assetID, r.assetID != ""
}

// Resolve 返回携带资产 ID 的新引用。
func (r AssetRef) Resolve(assetID string) AssetRef {
	r.assetID = assetID
	return r
}

// Locator 返回可入库的定位符：优先资产 ID，未解析时退回句柄，
// 保证记录总是可被后续流程重新解析。
func (r AssetRef) Locator() string {
	if r.assetID != "" {
		return r.assetID
	}
	return r.handle
}

// MediaAsset 是转码服务侧资产的一次只读快照。
type MediaAsset struct {
	AssetID         string
	State           AssetState
	StreamIDs       []string
	DurationSeconds *float64
}

// FirstStreamID 返回首个可播放流 ID。ready 状态下短时间内可能为空，
// 调用方应视作软成功而非错误。
func (a *MediaAsset) FirstStreamID() (string, bool) {
	if a == nil || len(a.StreamIDs) == 0 {
		return "", false
	}
	return a.StreamIDs[0], true
}
