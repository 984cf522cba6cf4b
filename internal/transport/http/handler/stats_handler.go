package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-crm-api/internal/service"
	resp "go-crm-api/internal/transport/http/response"
)

type StatsHandler struct {
	svc *service.StatsService
	log *zap.Logger
}

func NewStatsHandler(svc *service.StatsService, log *zap.Logger) *StatsHandler {
	return &StatsHandler{svc: svc, log: log}
}

// Summary GET /api/stats/summary
func (h *StatsHandler) Summary(c *gin.Context) {
	sum, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		writeErr(c, h.log, "stats", err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(sum))
}
