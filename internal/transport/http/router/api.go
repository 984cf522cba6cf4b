package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"go-crm-api/internal/core/auth"
	"go-crm-api/internal/core/cache"
	"go-crm-api/internal/core/config"
	"go-crm-api/internal/occ"
	"go-crm-api/internal/repo"
	"go-crm-api/internal/service"
	"go-crm-api/internal/transport/http/handler"
	mdw "go-crm-api/internal/transport/http/middleware"
	resp "go-crm-api/internal/transport/http/response"
)

// Deps 路由装配的全部外部依赖，显式传入，不走全局注册表。
type Deps struct {
	Log   *zap.Logger
	DB    *gorm.DB
	JWTer *auth.JWTer
	Cache *cache.Cache // nil 表示未启用 redis
	Cfg   *config.Config
}

// NewAPI 组装业务 API 引擎。中间件顺序从外到内：
// 请求标识 → 限流/限并发 → 体积限制 → 截止时间 → 恢复 → 指标 → 访问日志。
func NewAPI(d Deps) *gin.Engine {
	if d.Cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(200), 400),
		mdw.ConcurrencyLimit(256),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		mdw.SimpleRecovery(),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
	)
	r.Use(cors.New(cors.Config{
		AllowOrigins:  d.Cfg.Cors.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "If-Match"},
		ExposeHeaders: []string{"ETag", "Location", mdw.KeyRequestID},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, resp.OK(gin.H{"status": "ok"}))
	})

	customers := repo.NewCustomerRepo(d.DB)
	interactions := repo.NewInteractionRepo(d.DB)
	users := repo.NewUserRepo(d.DB)
	guard := occ.NewGuard(d.Log)

	customerSvc := service.NewCustomerService(customers, guard, d.DB, d.Log)
	interactionSvc := service.NewInteractionService(interactions, customers, guard, d.DB, d.Log)
	authSvc := service.NewAuthService(users, d.JWTer, d.Log)
	statsSvc := service.NewStatsService(customers, d.Cache)

	ch := handler.NewCustomerHandler(customerSvc, d.Log)
	ih := handler.NewInteractionHandler(interactionSvc, d.Log)
	ah := handler.NewAuthHandler(authSvc, d.Log)
	sh := handler.NewStatsHandler(statsSvc, d.Log)

	api := r.Group("/api")
	api.POST("/auth/login", ah.Login)

	// Auth.Enable=false 时放开鉴权，便于本地联调。
	protected := api.Group("")
	if d.Cfg.Auth.Enable {
		protected.Use(mdw.AuthJWT(d.JWTer, ""))
	}

	protected.GET("/customers", ch.List)
	protected.POST("/customers", ch.Create)
	protected.GET("/customers/:customerId", ch.Get)
	protected.PUT("/customers/:customerId", ch.Update)
	protected.DELETE("/customers/:customerId", ch.Delete)

	protected.GET("/customers/:customerId/interactions", ih.ListByCustomer)
	protected.POST("/customers/:customerId/interactions", ih.Create)
	protected.GET("/interactions/:id", ih.Get)
	protected.PUT("/interactions/:id", ih.Update)
	protected.DELETE("/interactions/:id", ih.Delete)

	protected.GET("/stats/summary", sh.Summary)

	return r
}
