package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-crm-api/internal/domain"
	"go-crm-api/internal/service"
	resp "go-crm-api/internal/transport/http/response"
	"go-crm-api/pkg/etag"
)

type InteractionHandler struct {
	svc *service.InteractionService
	log *zap.Logger
}

func NewInteractionHandler(svc *service.InteractionService, log *zap.Logger) *InteractionHandler {
	return &InteractionHandler{svc: svc, log: log}
}

type interactionRequest struct {
	HappenedAt  time.Time                 `json:"happenedAt" binding:"required"`
	Channel     domain.InteractionChannel `json:"channel" binding:"required,oneof=Phone Wechat Email Offline Other"`
	Stage       *domain.CustomerStatus    `json:"stage" binding:"omitempty,oneof=Lead Contacted NeedsAnalyzed Quoted Negotiating Won Lost"`
	Title       string                    `json:"title" binding:"required,max=200"`
	Summary     string                    `json:"summary" binding:"omitempty,max=2000"`
	RawContent  string                    `json:"rawContent" binding:"omitempty,max=10000"`
	NextAction  string                    `json:"nextAction" binding:"omitempty,max=500"`
	Attachments []string                  `json:"attachments" binding:"omitempty,max=10,dive,max=500"`
}

func (r interactionRequest) toInput() service.InteractionInput {
	return service.InteractionInput{
		HappenedAt:  r.HappenedAt,
		Channel:     r.Channel,
		Stage:       r.Stage,
		Title:       r.Title,
		Summary:     r.Summary,
		RawContent:  r.RawContent,
		NextAction:  r.NextAction,
		Attachments: r.Attachments,
	}
}

// ListByCustomer GET /api/customers/:customerId/interactions
// 客户不存在（含已软删）返回 404，而不是空列表。
func (h *InteractionHandler) ListByCustomer(c *gin.Context) {
	items, err := h.svc.ListByCustomer(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		writeErr(c, h.log, "customer", err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(items))
}

// Get GET /api/interactions/:id
func (h *InteractionHandler) Get(c *gin.Context) {
	it, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, h.log, "interaction", err)
		return
	}
	c.Header("ETag", etag.Encode(it.UpdatedAt))
	c.JSON(http.StatusOK, resp.OK(it))
}

// Create POST /api/customers/:customerId/interactions → 201 + Location + ETag
func (h *InteractionHandler) Create(c *gin.Context) {
	var req interactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	it, err := h.svc.Create(c.Request.Context(), c.Param("customerId"), req.toInput())
	if err != nil {
		writeErr(c, h.log, "customer", err)
		return
	}
	c.Header("ETag", etag.Encode(it.UpdatedAt))
	c.Header("Location", "/api/interactions/"+it.ID)
	c.JSON(http.StatusCreated, resp.OK(it))
}

// Update PUT /api/interactions/:id
func (h *InteractionHandler) Update(c *gin.Context) {
	var req interactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	it, err := h.svc.Update(c.Request.Context(), c.Param("id"), req.toInput(), ifMatchVersion(c))
	if err != nil {
		writeErr(c, h.log, "interaction", err)
		return
	}
	c.Header("ETag", etag.Encode(it.UpdatedAt))
	c.JSON(http.StatusOK, resp.OK(it))
}

// Delete DELETE /api/interactions/:id → 204
func (h *InteractionHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), ifMatchVersion(c)); err != nil {
		writeErr(c, h.log, "interaction", err)
		return
	}
	c.Status(http.StatusNoContent)
}
