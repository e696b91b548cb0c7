package api

import (
	"net/http"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/auth"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/config"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	DB         *gorm.DB
	Resolver   auth.IdentityResolver
	Issuer     TokenIssuer
	Requests   service.RequestService
	Ministries service.MinistryService
	Users      service.UserService
	Statistics service.StatisticsService
	Config     *config.Config
	Logger     logrus.FieldLogger
}

// SetupRoutes 配置路由
func SetupRoutes(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}

	router := gin.New()

	// 中间件
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware(deps.Logger))
	router.Use(SecurityHeadersMiddleware())
	router.Use(CORSMiddleware(cfg.CORS))
	router.Use(ErrorHandlerMiddleware())

	// 健康检查
	healthController := NewHealthController(deps.DB)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// Swagger UI 路由,文档由 swag init 根据控制器注释生成
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL("/swagger/doc.json"),
	))

	requestController := NewRequestController(deps.Requests)
	ministryController := NewMinistryController(deps.Ministries)
	statisticsController := NewStatisticsController(deps.Statistics)
	authController := NewAuthController(deps.Users, deps.Issuer, cfg.Auth.TokenTTL)

	// API v1 路由组
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))

	// 登录不需要令牌
	v1.POST("/auth/login", authController.Login)

	secured := v1.Group("")
	secured.Use(auth.IdentityMiddleware(deps.Resolver))
	{
		// 数据请求路由
		requests := secured.Group("/requests")
		{
			requests.POST("", requestController.Create)
			requests.GET("", requestController.List)
			requests.GET("/outgoing", requestController.ListOutgoing)
			requests.GET("/incoming", requestController.ListIncoming)
			requests.GET("/export", requestController.Export)
			requests.GET("/:id", requestController.Get)
			requests.DELETE("/:id", requestController.Delete)
			requests.POST("/:id/approve", requestController.Approve)
			requests.POST("/:id/reject", requestController.Reject)
			requests.GET("/:id/history", requestController.History)
		}

		// 部委目录路由
		ministries := secured.Group("/ministries")
		{
			ministries.GET("", ministryController.List)
			ministries.POST("", ministryController.Create)
			ministries.GET("/:id", ministryController.Get)
			ministries.PUT("/:id", ministryController.Update)
			ministries.POST("/:id/status", ministryController.SetStatus)
			ministries.DELETE("/:id", ministryController.Delete)
		}

		secured.POST("/users", authController.CreateUser)
		secured.GET("/statistics", statisticsController.Get)
	}

	// 未匹配的路由返回 JSON 而不是 HTML
	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "route not found", "the requested route does not exist")
	})

	return router
}
