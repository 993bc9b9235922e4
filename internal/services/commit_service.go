package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/krishanmaan/maanedu-media/internal/models/po"
	"github.com/krishanmaan/maanedu-media/internal/models/vo"
	"github.com/krishanmaan/maanedu-media/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
)

// CommitStore 定义提交器需要的内容库能力。
type CommitStore interface {
	WithinTx(ctx context.Context, tenantID string, fn func(ctx context.Context, sess txmanager.Session) error) error
	Insert(ctx context.Context, sess txmanager.Session, tenantID, table string, record map[string]any) (int64, error)
	LatestIDForUpdate(ctx context.Context, sess txmanager.Session, tenantID, table, matchColumn string, matchValue any) (int64, error)
	UpdateByID(ctx context.Context, sess txmanager.Session, tenantID, table string, id int64, fields map[string]any) (int64, error)
}

// commitStrategy 把一级降级表达为数据：从完整草稿推导本级写入的列集合。
// 策略按序尝试，仅当失败为结构不匹配（StoreError kind=schema）时推进下一级。
type commitStrategy struct {
	name   string
	reduce func(po.RecordDraft) map[string]any
}

// 内容库表结构由外部维护、可能落后于应用预期的列集合，
// 逐级缩减字段比直接失败更可取：宁可先落一条最小记录，也不丢掉用户的上传。
var commitStrategies = []commitStrategy{
	{name: "full", reduce: fullRecord},
	{name: "no-settings", reduce: recordWithoutSettings},
	{name: "minimal", reduce: minimalRecord},
}

// CommitService 以级联降级策略把视频记录写入内容库。
type CommitService struct {
	store CommitStore
	log   *log.Helper
}

// NewCommitService 构造 CommitService。
func NewCommitService(store CommitStore, logger log.Logger) (*CommitService, error) {
	if store == nil {
		return nil, errors.New("commit service: store is required")
	}
	return &CommitService{store: store, log: log.NewHelper(logger)}, nil
}

// Commit 依序尝试各级策略插入，随后对最新的同名行做一次尽力而为的
// 视频字段补写。补写在事务内带行锁执行，重复提交会收敛到同一行的
// 相同终值；补写失败只记日志不上抛，因为行已经以合法状态存在。
func (s *CommitService) Commit(ctx context.Context, tenantID, table string, draft po.RecordDraft) (*vo.CommitResult, error) {
	result, err := s.insertWithFallback(ctx, tenantID, table, draft)
	if err != nil {
		return nil, err
	}

	if err := s.applyVideoFields(ctx, tenantID, table, draft); err != nil {
		s.log.WithContext(ctx).Warnf("secondary video field update failed: table=%s title=%s err=%v", table, draft.Content.Title, err)
	} else {
		result.VideoApplied = true
	}
	return result, nil
}

func (s *CommitService) insertWithFallback(ctx context.Context, tenantID, table string, draft po.RecordDraft) (*vo.CommitResult, error) {
	var lastErr error
	for _, strategy := range commitStrategies {
		id, err := s.store.Insert(ctx, nil, tenantID, table, strategy.reduce(draft))
		if err == nil {
			if strategy.name != commitStrategies[0].name {
				s.log.WithContext(ctx).Infof("commit degraded: table=%s strategy=%s", table, strategy.name)
			}
			return &vo.CommitResult{RowID: id, Strategy: strategy.name}, nil
		}

		lastErr = err
		if !repositories.IsSchemaError(err) {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
		}
		s.log.WithContext(ctx).Warnf("commit strategy rejected by schema: table=%s strategy=%s err=%v", table, strategy.name, err)
	}
	return nil, fmt.Errorf("%w: all strategies exhausted: %v", ErrPersistenceFailed, lastErr)
}

// applyVideoFields 对最近创建的同名行补写视频字段。
func (s *CommitService) applyVideoFields(ctx context.Context, tenantID, table string, draft po.RecordDraft) error {
	return s.store.WithinTx(ctx, tenantID, func(txCtx context.Context, sess txmanager.Session) error {
		id, err := s.store.LatestIDForUpdate(txCtx, sess, tenantID, table, "title", draft.Content.Title)
		if err != nil {
			return err
		}
		affected, err := s.store.UpdateByID(txCtx, sess, tenantID, table, id, videoFields(draft))
		if err != nil {
			return err
		}
		if affected == 0 {
			return repositories.ErrNoMatchingRow
		}
		return nil
	})
}

func fullRecord(draft po.RecordDraft) map[string]any {
	record := recordWithoutSettings(draft)
	if draft.Settings != nil {
		record["settings"] = draft.Settings
	}
	return record
}

func recordWithoutSettings(draft po.RecordDraft) map[string]any {
	record := minimalRecord(draft)
	for col, value := range videoFields(draft) {
		record[col] = value
	}
	return record
}

// minimalRecord 只保留任何表结构版本都具备的核心字段。
func minimalRecord(draft po.RecordDraft) map[string]any {
	return map[string]any{
		"title":       draft.Content.Title,
		"description": draft.Content.Description,
		"category":    draft.Content.Category,
		"price":       draft.Content.Price,
	}
}

func videoFields(draft po.RecordDraft) map[string]any {
	return map[string]any{
		"video_url": draft.Video.VideoURL,
		"asset_id":  draft.Video.AssetID,
		"stream_id": draft.Video.StreamID,
		"duration":  draft.Video.DurationSeconds,
	}
}
