package api

import (
	"context"
	"net/http"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/auth"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// RequestController 数据请求控制器
type RequestController struct {
	requestService service.RequestService
}

// NewRequestController 创建数据请求控制器
func NewRequestController(requestService service.RequestService) *RequestController {
	return &RequestController{
		requestService: requestService,
	}
}

// principal 取出已认证身份,缺失时直接写 401
func principal(ctx *gin.Context) (model.Principal, bool) {
	p, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		Error(ctx, http.StatusUnauthorized, "authentication required", "")
		return model.Principal{}, false
	}
	return p, true
}

// parseListFilter 解析 ministry_id 与 status 查询参数
func parseListFilter(ctx *gin.Context) (service.ListFilter, bool) {
	filter := service.ListFilter{MinistryID: ctx.Query("ministry_id")}
	if raw := ctx.Query("status"); raw != "" {
		status, err := model.ParseRequestStatus(raw)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid status filter", err.Error())
			return filter, false
		}
		filter.Status = &status
	}
	return filter, true
}

// Create 创建数据请求
// @Summary      创建数据请求
// @Description  以调用方所属部委向目标部委发起数据请求
// @Tags         数据请求
// @Accept       json
// @Produce      json
// @Param        request body service.CreateRequestInput true "请求信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /requests [post]
// @Security     BearerAuth
func (c *RequestController) Create(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}

	var req service.CreateRequestInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	created, err := c.requestService.Create(ctx.Request.Context(), p, req)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Created(ctx, created)
}

// Get 获取数据请求
// @Summary      获取数据请求详情
// @Tags         数据请求
// @Produce      json
// @Param        id path string true "请求 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /requests/{id} [get]
// @Security     BearerAuth
func (c *RequestController) Get(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}

	req, err := c.requestService.Get(ctx.Request.Context(), p, ctx.Param("id"))
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, req)
}

// Approve 批准数据请求
// @Summary      批准数据请求
// @Description  目标部委管理员批准待处理的请求
// @Tags         数据请求
// @Produce      json
// @Param        id path string true "请求 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /requests/{id}/approve [post]
// @Security     BearerAuth
func (c *RequestController) Approve(ctx *gin.Context) {
	c.decide(ctx, c.requestService.Approve)
}

// Reject 拒绝数据请求
// @Summary      拒绝数据请求
// @Tags         数据请求
// @Produce      json
// @Param        id path string true "请求 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /requests/{id}/reject [post]
// @Security     BearerAuth
func (c *RequestController) Reject(ctx *gin.Context) {
	c.decide(ctx, c.requestService.Reject)
}

func (c *RequestController) decide(ctx *gin.Context, action func(context.Context, model.Principal, string) error) {
	p, ok := principal(ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")
	if err := action(ctx.Request.Context(), p, id); err != nil {
		RespondError(ctx, err)
		return
	}

	// 返回处理后的请求
	req, err := c.requestService.Get(ctx.Request.Context(), p, id)
	if err != nil {
		RespondError(ctx, err)
		return
	}
	Success(ctx, req)
}

// Delete 删除数据请求
// @Summary      删除数据请求
// @Tags         数据请求
// @Produce      json
// @Param        id path string true "请求 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /requests/{id} [delete]
// @Security     BearerAuth
func (c *RequestController) Delete(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}

	if err := c.requestService.Delete(ctx.Request.Context(), p, ctx.Param("id")); err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// History 获取请求的审计历史
// @Summary      获取请求审计历史
// @Tags         数据请求
// @Produce      json
// @Param        id path string true "请求 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /requests/{id}/history [get]
// @Security     BearerAuth
func (c *RequestController) History(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}

	entries, err := c.requestService.History(ctx.Request.Context(), p, ctx.Param("id"))
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entries)
}

// List 获取部委的发出与收到的请求
// @Summary      部委请求列表
// @Tags         数据请求
// @Produce      json
// @Param        ministry_id query string false "部委 ID,默认为调用方所属部委"
// @Param        status query string false "状态过滤: pending/approved/rejected"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /requests [get]
// @Security     BearerAuth
func (c *RequestController) List(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	filter, ok := parseListFilter(ctx)
	if !ok {
		return
	}

	result, err := c.requestService.ListForMinistry(ctx.Request.Context(), p, filter)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, result)
}

// ListOutgoing 发出的请求
// @Summary      发出的请求
// @Tags         数据请求
// @Produce      json
// @Param        ministry_id query string false "部委 ID"
// @Param        status query string false "状态过滤"
// @Success      200  {object}  Response
// @Router       /requests/outgoing [get]
// @Security     BearerAuth
func (c *RequestController) ListOutgoing(ctx *gin.Context) {
	c.listOneSide(ctx, c.requestService.ListOutgoing)
}

// ListIncoming 收到的请求
// @Summary      收到的请求
// @Tags         数据请求
// @Produce      json
// @Param        ministry_id query string false "部委 ID"
// @Param        status query string false "状态过滤"
// @Success      200  {object}  Response
// @Router       /requests/incoming [get]
// @Security     BearerAuth
func (c *RequestController) ListIncoming(ctx *gin.Context) {
	c.listOneSide(ctx, c.requestService.ListIncoming)
}

func (c *RequestController) listOneSide(ctx *gin.Context, list func(context.Context, model.Principal, service.ListFilter) ([]*model.DataRequestModel, error)) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	filter, ok := parseListFilter(ctx)
	if !ok {
		return
	}

	result, err := list(ctx.Request.Context(), p, filter)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, result)
}

// Export 导出部委相关的全部请求
// @Summary      导出请求
// @Tags         数据请求
// @Produce      json
// @Param        ministry_id query string false "部委 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /requests/export [get]
// @Security     BearerAuth
func (c *RequestController) Export(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}

	result, err := c.requestService.Export(ctx.Request.Context(), p, ctx.Query("ministry_id"))
	if err != nil {
		RespondError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", `attachment; filename="requests.json"`)
	Success(ctx, result)
}
