package repositories

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNoMatchingRow 表示按条件定位行时无命中。
var ErrNoMatchingRow = errors.New("no matching row")

// ErrorKind 区分内容库错误的处理方式：结构不匹配可降级重试，
// 数据校验与传输错误不可。
type ErrorKind string

const (
	// KindSchema 表示列/表不存在等结构不匹配。
	KindSchema ErrorKind = "schema"
	// KindValidation 表示数据本身不被接受。
	KindValidation ErrorKind = "validation"
	// KindTransport 表示连接、超时等传输层故障。
	KindTransport ErrorKind = "transport"
)

// StoreError 把内容库松散的错误形态（message/detail/hint）归一为带
// kind 判别子的显式错误类型，降级逻辑据此分支而不是匹配错误文本。
type StoreError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Detail  string
	Hint    string
	cause   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s error: code=%s message=%s", e.Kind, e.Code, e.Message)
}

func (e *StoreError) Unwrap() error { return e.cause }

// IsSchemaError 判断错误是否为结构不匹配。
func IsSchemaError(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == KindSchema
}

// schemaMismatchCodes 是触发级联降级的 SQLSTATE 集合。
var schemaMismatchCodes = map[string]struct{}{
	"42703": {}, // undefined_column
	"42P01": {}, // undefined_table
	"42611": {}, // invalid_column_definition
}

// normalizeStoreError 将 pgconn.PgError 按 SQLSTATE 归类。
// 非 PgError（连接断开、超时）一律视为传输层错误。
func normalizeStoreError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return &StoreError{Kind: KindTransport, Message: err.Error(), cause: err}
	}

	kind := KindTransport
	if _, ok := schemaMismatchCodes[pgErr.Code]; ok {
		kind = KindSchema
	} else if len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		case "22", "23": // data exception / integrity constraint violation
			kind = KindValidation
		}
	}

	return &StoreError{
		Kind:    kind,
		Code:    pgErr.Code,
		Message: pgErr.Message,
		Detail:  pgErr.Detail,
		Hint:    pgErr.Hint,
		cause:   err,
	}
}
