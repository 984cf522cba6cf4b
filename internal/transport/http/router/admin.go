package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-crm-api/internal/core/server"
	"go-crm-api/internal/repo"
	"go-crm-api/internal/transport/http/handler"
	mdw "go-crm-api/internal/transport/http/middleware"
	resp "go-crm-api/internal/transport/http/response"
)

// NewAdmin 运维端引擎：指标拉取 + 管理员只读接口，与业务端口分离。
func NewAdmin(d Deps) *gin.Engine {
	r := server.NewEngine(d.Log)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, resp.OK(gin.H{"status": "ok"}))
	})

	ah := handler.NewAdminHandler(repo.NewUserRepo(d.DB), repo.NewCustomerRepo(d.DB), d.Log)

	g := r.Group("/admin/v1", mdw.AuthJWT(d.JWTer, "admin"))
	g.GET("/users", ah.ListUsers)
	g.GET("/customers", ah.ListCustomers)

	return r
}
