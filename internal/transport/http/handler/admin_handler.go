package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-crm-api/internal/domain"
	"go-crm-api/internal/repo"
	resp "go-crm-api/internal/transport/http/response"
)

// AdminHandler 运维面只读视图，直接走仓储，不叠业务规则。
type AdminHandler struct {
	users     *repo.UserRepo
	customers *repo.CustomerRepo
	log       *zap.Logger
}

func NewAdminHandler(users *repo.UserRepo, customers *repo.CustomerRepo, log *zap.Logger) *AdminHandler {
	return &AdminHandler{users: users, customers: customers, log: log}
}

type adminPageQuery struct {
	Page     int `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize int `form:"pageSize,default=20" binding:"omitempty,min=1,max=100"`
}

// ListUsers GET /admin/v1/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var q adminPageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFail(c, err)
		return
	}
	users, total, err := h.users.List(c.Request.Context(), (q.Page-1)*q.PageSize, q.PageSize)
	if err != nil {
		writeErr(c, h.log, "user", err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(pagedResponse[domain.User]{Items: users, Total: total}))
}

type adminCustomerQuery struct {
	adminPageQuery
	WithDeleted bool `form:"withDeleted"`
}

// ListCustomers GET /admin/v1/customers，withDeleted=true 时连软删行一起看。
func (h *AdminHandler) ListCustomers(c *gin.Context) {
	var q adminCustomerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFail(c, err)
		return
	}
	items, total, err := h.customers.ListAll(c.Request.Context(), q.WithDeleted, (q.Page-1)*q.PageSize, q.PageSize)
	if err != nil {
		writeErr(c, h.log, "customer", err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(pagedResponse[domain.Customer]{Items: items, Total: total}))
}
