package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"go-crm-api/internal/domain"
	mdw "go-crm-api/internal/transport/http/middleware"
	resp "go-crm-api/internal/transport/http/response"
	"go-crm-api/pkg/etag"
)

type pagedResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

// ifMatchVersion 解析 If-Match 头为期望版本；缺失或无法解析都按“未提供前置条件”处理。
func ifMatchVersion(c *gin.Context) *time.Time {
	if t, ok := etag.Decode(c.GetHeader("If-Match")); ok {
		return &t
	}
	return nil
}

// bindFail 把绑定/校验失败翻译成 400 信封。
func bindFail(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]resp.ErrorDetail, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, resp.ErrorDetail{Field: fe.Field(), Message: fe.Tag()})
		}
		c.JSON(http.StatusBadRequest, resp.FailWith(details...))
		return
	}
	c.JSON(http.StatusBadRequest, resp.Fail(err.Error()))
}

// writeErr 业务错误分类映射；版本冲突在响应头回传当前 ETag 供客户端刷新重试。
// 四类预期结果只记 info/warn，意外的存储故障记 error 并以 500 兜底。
func writeErr(c *gin.Context, log *zap.Logger, entity string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, resp.Fail(entity+" not found"))
	case errors.Is(err, domain.ErrDuplicateName):
		c.JSON(http.StatusConflict, resp.Fail("customer with same company and contact name already exists"))
	default:
		if ce, ok := domain.IsConflict(err); ok {
			mdw.CountVersionConflict(entity)
			log.Info("version conflict", zap.String("entity", entity), zap.String("path", c.FullPath()))
			c.Header("ETag", etag.Encode(ce.Current))
			c.JSON(http.StatusConflict, resp.Fail(entity+" has been modified by another user"))
			return
		}
		log.Error("unexpected storage error",
			zap.String("entity", entity),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, resp.Fail("internal error"))
	}
}
