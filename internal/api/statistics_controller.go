package api

import (
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// StatisticsController 统计控制器
type StatisticsController struct {
	statisticsService service.StatisticsService
}

// NewStatisticsController 创建统计控制器
func NewStatisticsController(statisticsService service.StatisticsService) *StatisticsController {
	return &StatisticsController{statisticsService: statisticsService}
}

// Get 请求统计
// @Summary      数据请求统计
// @Tags         统计
// @Produce      json
// @Param        ministry_id query string false "部委 ID,超级管理员留空为全局统计"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /statistics [get]
// @Security     BearerAuth
func (c *StatisticsController) Get(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}

	stats, err := c.statisticsService.GetStatistics(ctx.Request.Context(), p, ctx.Query("ministry_id"))
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, stats)
}
