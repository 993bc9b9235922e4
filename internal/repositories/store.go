// Package repositories 提供数据访问层实现，负责与按租户托管的内容库交互。
// 表结构由外部维护且版本可能参差，因此这里只做通用的行级读写，
// 列集合由调用方给定，结构不匹配通过归一化的 StoreError 上抛。
package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/krishanmaan/maanedu-media/internal/infrastructure/database"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier 抽象连接池与事务两种执行入口。
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store 是面向内容库的通用行级访问器。
type Store struct {
	pools *database.TenantPools
	log   *log.Helper
}

// NewStore 构造 Store。
func NewStore(pools *database.TenantPools, logger log.Logger) *Store {
	return &Store{
		pools: pools,
		log:   log.NewHelper(logger),
	}
}

// WithinTx 在指定租户的内容库上执行事务。
func (s *Store) WithinTx(ctx context.Context, tenantID string, fn func(ctx context.Context, sess txmanager.Session) error) error {
	h, err := s.pools.Handle(ctx, tenantID)
	if err != nil {
		return err
	}
	return h.Tx.WithinTx(ctx, txmanager.TxOptions{}, fn)
}

// Insert 插入一行并返回生成的主键。列集合由 record 给定。
func (s *Store) Insert(ctx context.Context, sess txmanager.Session, tenantID, table string, record map[string]any) (int64, error) {
	q, err := s.querier(ctx, tenantID, sess)
	if err != nil {
		return 0, err
	}

	columns, args, err := orderedColumns(record)
	if err != nil {
		return 0, err
	}
	if len(columns) == 0 {
		return 0, errors.New("store insert: empty record")
	}
	if err := validateIdent(table); err != nil {
		return 0, err
	}

	placeholders := make([]string, len(columns))
	quoted := make([]string, len(columns))
	for i, col := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		quoted[i] = quoteIdent(col)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "),
	)

	var id int64
	if err := q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, normalizeStoreError(err)
	}
	return id, nil
}

// LatestIDForUpdate 定位按创建时间最新的一条匹配行并加行锁。
// 需要在 WithinTx 会话内调用，锁在事务结束时释放。
func (s *Store) LatestIDForUpdate(ctx context.Context, sess txmanager.Session, tenantID, table, matchColumn string, matchValue any) (int64, error) {
	q, err := s.querier(ctx, tenantID, sess)
	if err != nil {
		return 0, err
	}
	if err := validateIdent(table); err != nil {
		return 0, err
	}
	if err := validateIdent(matchColumn); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(
		"SELECT id FROM %s WHERE %s = $1 ORDER BY created_at DESC LIMIT 1 FOR UPDATE",
		quoteIdent(table), quoteIdent(matchColumn),
	)

	var id int64
	if err := q.QueryRow(ctx, query, matchValue).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoMatchingRow
		}
		return 0, normalizeStoreError(err)
	}
	return id, nil
}

// UpdateByID 更新指定行的给定列，返回受影响行数。
func (s *Store) UpdateByID(ctx context.Context, sess txmanager.Session, tenantID, table string, id int64, fields map[string]any) (int64, error) {
	q, err := s.querier(ctx, tenantID, sess)
	if err != nil {
		return 0, err
	}

	columns, args, err := orderedColumns(fields)
	if err != nil {
		return 0, err
	}
	if len(columns) == 0 {
		return 0, errors.New("store update: empty field set")
	}
	if err := validateIdent(table); err != nil {
		return 0, err
	}

	assignments := make([]string, len(columns))
	for i, col := range columns {
		assignments[i] = fmt.Sprintf("%s = $%d", quoteIdent(col), i+1)
	}
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = $%d",
		quoteIdent(table), strings.Join(assignments, ", "), len(args),
	)

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, normalizeStoreError(err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) querier(ctx context.Context, tenantID string, sess txmanager.Session) (querier, error) {
	if sess != nil {
		return sess.Tx(), nil
	}
	h, err := s.pools.Handle(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return h.Pool, nil
}

// orderedColumns 以确定的列顺序展开 record，保证 SQL 可复现、便于测试。
func orderedColumns(record map[string]any) ([]string, []any, error) {
	columns := make([]string, 0, len(record))
	for col := range record {
		if err := validateIdent(col); err != nil {
			return nil, nil, err
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	args := make([]any, len(columns))
	for i, col := range columns {
		args[i] = record[col]
	}
	return columns, args, nil
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// validateIdent 拒绝不合法的表名/列名，列名来自应用内部但仍做白名单校验。
func validateIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("store: invalid identifier %q", name)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
