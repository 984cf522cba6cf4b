// Package occ 条件写检查：调用方携带的期望版本（If-Match 解析结果）
// 与存储中的当前版本按毫秒比对。检查必须在持有行锁的事务内执行，
// 比对和写入才构成一个原子单元。
package occ

import (
	"time"

	"go.uber.org/zap"

	"go-crm-api/internal/domain"
	"go-crm-api/pkg/etag"
)

type Guard struct {
	log *zap.Logger
}

func NewGuard(l *zap.Logger) *Guard {
	if l == nil {
		l = zap.NewNop()
	}
	return &Guard{log: l}
}

// Check 期望版本为 nil 时放行无条件写，但记 warn 留痕；
// 毫秒值不一致时返回携带当前版本的 ConflictError，调用方不得执行写入。
func (g *Guard) Check(entity, id string, current time.Time, expected *time.Time) error {
	if expected == nil {
		g.log.Warn("write without precondition",
			zap.String("entity", entity),
			zap.String("id", id),
		)
		return nil
	}
	if !etag.SameVersion(current, *expected) {
		return &domain.ConflictError{Current: current}
	}
	return nil
}
