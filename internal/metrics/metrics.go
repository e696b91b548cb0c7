package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 数据请求创建数
	dataRequestsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "data_requests_created_total",
			Help: "Total number of data requests created",
		},
	)

	// 处理决定数
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "data_request_decisions_total",
			Help: "Total number of data request decisions",
		},
		[]string{"action"}, // approve, reject, delete
	)

	// 授权拒绝数
	accessDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_denied_total",
			Help: "Total number of operations denied by the access policy",
		},
		[]string{"operation"},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 请求状态分布
	dataRequestsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "data_requests_by_status",
			Help: "Number of data requests by status",
		},
		[]string{"status"},
	)
)

var (
	once sync.Once
)

func init() {
	// 注册指标
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(dataRequestsCreatedTotal)
	prometheus.MustRegister(decisionsTotal)
	prometheus.MustRegister(accessDeniedTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)
	prometheus.MustRegister(dataRequestsByStatus)

	once.Do(func() {
		// Go 运行时指标可能已被默认注册表注册,忽略错误
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordRequestCreated 记录数据请求创建
func RecordRequestCreated() {
	dataRequestsCreatedTotal.Inc()
}

// RecordDecision 记录处理决定
func RecordDecision(action string) {
	decisionsTotal.WithLabelValues(action).Inc()
}

// RecordAccessDenied 记录授权拒绝
func RecordAccessDenied(operation string) {
	accessDeniedTotal.WithLabelValues(operation).Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateRequestsByStatus 更新请求状态分布指标
func UpdateRequestsByStatus(status string, count float64) {
	dataRequestsByStatus.WithLabelValues(status).Set(count)
}
