package api

import (
	"net/http"
	"time"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/database"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthController 健康检查控制器
type HealthController struct {
	db *gorm.DB
}

// NewHealthController 创建健康检查控制器
func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{db: db}
}

// Check 健康检查
// @Summary      健康检查
// @Tags         系统
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (c *HealthController) Check(ctx *gin.Context) {
	status := "healthy"
	checks := make(map[string]string)

	if c.db == nil {
		checks["database"] = "not configured"
	} else if err := database.CheckHealth(ctx.Request.Context(), c.db); err != nil {
		status = "unhealthy"
		// 不向外暴露连接细节
		checks["database"] = "unhealthy"
		GetLogger().WithError(err).Error("database health check failed")
	} else {
		checks["database"] = "healthy"
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	ctx.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}
