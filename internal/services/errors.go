package services

import "errors"

// 流水线错误分级：
//   - fatal：当次摄取中止，不留下部分持久化状态；
//   - 非 fatal：功能降级但流程继续（探测失败、轮询超时）。
var (
	// ErrUploadRejected 表示文件不是可接受的视频 MIME 类型。
	ErrUploadRejected = errors.New("upload rejected: unsupported content type")
	// ErrFileTooLarge 表示文件超过配置的体积上限。
	ErrFileTooLarge = errors.New("upload rejected: file too large")
	// ErrProcessingFailed 表示转码服务判定资产失败，需要重新上传。
	ErrProcessingFailed = errors.New("asset processing failed")
	// ErrPollingTimeout 表示轮询次数预算耗尽，资产仍在后台处理。
	ErrPollingTimeout = errors.New("asset polling timed out")
	// ErrPersistenceFailed 表示所有降级策略均未能写入内容库。
	ErrPersistenceFailed = errors.New("persistence failed")
)

// Observer 接收流水线的进度与状态副作用，供 UI 展示。
// 回调不承载正确性契约，实现必须快速返回且不得阻塞流水线。
type Observer interface {
	OnProgress(percent int)
	OnStatus(status string)
}

type nopObserver struct{}

func (nopObserver) OnProgress(int)  {}
func (nopObserver) OnStatus(string) {}

// NopObserver 是忽略所有回调的 Observer。
var NopObserver Observer = nopObserver{}
