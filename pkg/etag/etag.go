// Package etag 把实体的 UpdatedAt 编码为弱校验 ETag（W/"毫秒时间戳"），
// 作为乐观并发控制的版本令牌在 ETag / If-Match 头里往返。
package etag

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Encode 毫秒精度，格式稳定：相同毫秒值必然产生相同令牌。
func Encode(updatedAt time.Time) string {
	return fmt.Sprintf(`W/"%d"`, updatedAt.UnixMilli())
}

// Decode 解析版本令牌。兼容 W/"123"、"123" 和裸 123 三种写法；
// 空串或无法解析时返回 ok=false，从不报错。
func Decode(tag string) (time.Time, bool) {
	v := strings.TrimSpace(tag)
	if v == "" {
		return time.Time{}, false
	}
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// SameVersion 按毫秒粒度比较两个版本时间戳。
func SameVersion(a, b time.Time) bool {
	return a.UnixMilli() == b.UnixMilli()
}
