package domain

import (
	"errors"
	"time"
)

// 业务可预期错误，全部以值/类型返回，不走 panic。
var (
	ErrNotFound      = errors.New("record not found or deleted")
	ErrDuplicateName = errors.New("active customer with same company and contact name exists")
)

// ConflictError 乐观锁冲突，携带服务端当前版本（UpdatedAt），供客户端刷新后重试。
type ConflictError struct {
	Current time.Time
}

func (e *ConflictError) Error() string { return "version conflict: entity modified by another writer" }

// IsConflict 便捷判断，并取出当前版本。
func IsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
