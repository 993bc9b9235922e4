// Package po 定义面向持久化的数据对象（Persistent Objects），由 Repository 层使用。
// PO 对象映射内容库表结构，不直接暴露给上层业务逻辑。
package po

// 内容库中由本服务写入的表。表结构由外部（控制台所属租户）维护，
// 不同租户的列集合可能落后于应用预期，写入方需容忍缺列。
const (
	TableCourses = "courses"
	TableClasses = "classes"
)

// ContentDraft 描述一条课程/课时记录中在任何表结构版本里都存在的核心字段。
type ContentDraft struct {
	Title       string
	Description string
	Category    string
	Price       int64 // 单位：分
}

// VideoFields 描述上传流水线补写的视频字段。时长一律以秒为单位。
type VideoFields struct {
	VideoURL        string
	AssetID         *string
	StreamID        *string
	DurationSeconds int32
}

// RecordDraft 是提交器的完整输入：核心字段 + 视频字段 + 向前兼容的设置块。
// Settings 以 JSONB 写入，旧表结构可能没有该列。
type RecordDraft struct {
	Content  ContentDraft
	Video    VideoFields
	Settings map[string]any
}
