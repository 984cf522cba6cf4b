package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-crm-api/internal/domain"
	"go-crm-api/internal/service"
	resp "go-crm-api/internal/transport/http/response"
	"go-crm-api/pkg/etag"
)

type CustomerHandler struct {
	svc *service.CustomerService
	log *zap.Logger
}

func NewCustomerHandler(svc *service.CustomerService, log *zap.Logger) *CustomerHandler {
	return &CustomerHandler{svc: svc, log: log}
}

type customerSearchQuery struct {
	Keyword   string `form:"keyword"`
	Status    string `form:"status" binding:"omitempty,oneof=Lead Contacted NeedsAnalyzed Quoted Negotiating Won Lost"`
	Source    string `form:"source" binding:"omitempty,oneof=Website Referral SocialMedia Event DirectContact Other"`
	Industry  string `form:"industry"`
	Page      int    `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize  int    `form:"pageSize,default=20" binding:"omitempty,min=1,max=100"`
	SortBy    string `form:"sortBy" binding:"omitempty,oneof=LastInteractionAt CreatedAt UpdatedAt"`
	SortOrder string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
}

// customerRequest 创建和更新共用：更新是全量替换。
// lastInteractionAt 不在这里——派生字段不接受客户端写入。
type customerRequest struct {
	CompanyName string                `json:"companyName" binding:"required,max=200"`
	ContactName string                `json:"contactName" binding:"required,max=200"`
	Wechat      string                `json:"wechat" binding:"omitempty,max=100"`
	Phone       string                `json:"phone" binding:"omitempty,max=50"`
	Email       string                `json:"email" binding:"omitempty,email,max=200"`
	Industry    string                `json:"industry" binding:"omitempty,max=100"`
	Source      domain.CustomerSource `json:"source" binding:"omitempty,oneof=Website Referral SocialMedia Event DirectContact Other"`
	Status      domain.CustomerStatus `json:"status" binding:"required,oneof=Lead Contacted NeedsAnalyzed Quoted Negotiating Won Lost"`
	Tags        []string              `json:"tags" binding:"omitempty,max=20,dive,max=50"`
	Score       int                   `json:"score" binding:"gte=0,lte=100"`
}

func (r customerRequest) toInput() service.CustomerInput {
	return service.CustomerInput{
		CompanyName: r.CompanyName,
		ContactName: r.ContactName,
		Wechat:      r.Wechat,
		Phone:       r.Phone,
		Email:       r.Email,
		Industry:    r.Industry,
		Source:      r.Source,
		Status:      r.Status,
		Tags:        r.Tags,
		Score:       r.Score,
	}
}

// List GET /api/customers
// pageSize 超上限直接 400 拒绝，不做静默钳制。
func (h *CustomerHandler) List(c *gin.Context) {
	var q customerSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFail(c, err)
		return
	}
	items, total, err := h.svc.Search(c.Request.Context(), domain.CustomerSearch{
		Keyword:   q.Keyword,
		Status:    domain.CustomerStatus(q.Status),
		Source:    domain.CustomerSource(q.Source),
		Industry:  q.Industry,
		Page:      q.Page,
		PageSize:  q.PageSize,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	})
	if err != nil {
		writeErr(c, h.log, "customer", err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(pagedResponse[domain.Customer]{Items: items, Total: total}))
}

// Get GET /api/customers/:id
func (h *CustomerHandler) Get(c *gin.Context) {
	cust, err := h.svc.GetByID(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		writeErr(c, h.log, "customer", err)
		return
	}
	c.Header("ETag", etag.Encode(cust.UpdatedAt))
	c.JSON(http.StatusOK, resp.OK(cust))
}

// Create POST /api/customers → 201 + Location + ETag
func (h *CustomerHandler) Create(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	cust, err := h.svc.Create(c.Request.Context(), req.toInput())
	if err != nil {
		writeErr(c, h.log, "customer", err)
		return
	}
	c.Header("ETag", etag.Encode(cust.UpdatedAt))
	c.Header("Location", "/api/customers/"+cust.ID)
	c.JSON(http.StatusCreated, resp.OK(cust))
}

// Update PUT /api/customers/:id，If-Match 携带期望版本
func (h *CustomerHandler) Update(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	cust, err := h.svc.Update(c.Request.Context(), c.Param("customerId"), req.toInput(), ifMatchVersion(c))
	if err != nil {
		writeErr(c, h.log, "customer", err)
		return
	}
	c.Header("ETag", etag.Encode(cust.UpdatedAt))
	c.JSON(http.StatusOK, resp.OK(cust))
}

// Delete DELETE /api/customers/:id → 204（软删，互动记录保留）
func (h *CustomerHandler) Delete(c *gin.Context) {
	if err := h.svc.SoftDelete(c.Request.Context(), c.Param("customerId"), ifMatchVersion(c)); err != nil {
		writeErr(c, h.log, "customer", err)
		return
	}
	c.Status(http.StatusNoContent)
}
