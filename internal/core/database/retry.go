package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"time"
)

const (
	retryAttempts = 3
	retryBaseWait = 100 * time.Millisecond
)

// WithRetry 只重试瞬态的连接类故障（有限次数 + 指数退避）。
// 业务冲突（版本冲突、唯一性冲突）不在此重试，直接交回调用方处理。
func WithRetry(ctx context.Context, fn func() error) error {
	wait := retryBaseWait
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !IsTransient(err) || attempt >= retryAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}

// IsTransient 判断是否为值得重试的传输层故障。
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "i/o timeout")
}

// IsSerializationFailure 存储引擎在提交时检测到的并发冲突
// （死锁 / 可串行化失败），上层应映射为版本冲突而不是一般性失败。
func IsSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "40001")
}

// IsDuplicateKey 唯一约束冲突的驱动无关判断。
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
