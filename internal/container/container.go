package container

import (
	"fmt"
	"time"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/api"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/auth"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/config"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/database"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/metrics"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/repository"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、服务、身份解析器等
type Container struct {
	cfg        *config.Config
	logger     *logrus.Logger
	db         *gorm.DB
	resolver   *auth.JWTIdentityResolver
	cache      *service.DirectoryCache
	requests   service.RequestService
	ministries service.MinistryService
	users      service.UserService
	statistics service.StatisticsService
	collector  *metrics.Collector
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. 初始化日志
	logger, err := api.NewLoggerFromConfig(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	api.SetLogger(logger)

	// 2. 初始化数据库(带重试机制)
	// 默认重试 3 次,初始间隔 1 秒,指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return NewContainerWithDB(cfg, db, logger), nil
}

// NewContainerWithDB 基于已有连接组装服务,测试与命令行共用
func NewContainerWithDB(cfg *config.Config, db *gorm.DB, logger *logrus.Logger) *Container {
	if logger == nil {
		logger = api.GetLogger()
	}

	clock := service.SystemClock{}
	opts := service.Options{
		DB:      db,
		Audit:   service.NewAuditRecorder(db, clock),
		Clock:   clock,
		Logger:  logger,
		Timeout: cfg.Workflow.OperationTimeout,
	}

	cache := service.NewDirectoryCache(cfg.Workflow.DirectoryCacheTTL, clock)
	statistics := service.NewStatisticsService(opts)

	return &Container{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		resolver:   auth.NewJWTIdentityResolver(cfg.Auth.JWTSecret, cfg.Auth.Issuer, repository.NewUserRepository(db)),
		cache:      cache,
		requests:   service.NewRequestService(opts),
		ministries: service.NewMinistryService(opts, cache),
		users:      service.NewUserService(opts),
		statistics: statistics,
		collector:  metrics.NewCollector(db, statistics.CountByStatus, cfg.Metrics.CollectInterval, logger),
	}
}

// Router 构建 HTTP 路由
func (c *Container) Router() *gin.Engine {
	return api.SetupRoutes(api.RouterDeps{
		DB:         c.db,
		Resolver:   c.resolver,
		Issuer:     c.resolver,
		Requests:   c.requests,
		Ministries: c.ministries,
		Users:      c.users,
		Statistics: c.statistics,
		Config:     c.cfg,
		Logger:     c.logger,
	})
}

// Config 获取配置
func (c *Container) Config() *config.Config {
	return c.cfg
}

// Logger 获取日志记录器
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Resolver 获取身份解析器
func (c *Container) Resolver() *auth.JWTIdentityResolver {
	return c.resolver
}

// Requests 获取数据请求服务
func (c *Container) Requests() service.RequestService {
	return c.requests
}

// Ministries 获取部委服务
func (c *Container) Ministries() service.MinistryService {
	return c.ministries
}

// Users 获取用户服务
func (c *Container) Users() service.UserService {
	return c.users
}

// Statistics 获取统计服务
func (c *Container) Statistics() service.StatisticsService {
	return c.statistics
}

// Collector 获取指标采集器
func (c *Container) Collector() *metrics.Collector {
	return c.collector
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.collector != nil {
		c.collector.Stop()
	}
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			return sqlDB.Close()
		}
	}
	return nil
}
