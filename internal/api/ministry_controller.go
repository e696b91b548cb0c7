package api

import (
	"net/http"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// MinistryController 部委目录控制器
type MinistryController struct {
	ministryService service.MinistryService
}

// NewMinistryController 创建部委目录控制器
func NewMinistryController(ministryService service.MinistryService) *MinistryController {
	return &MinistryController{
		ministryService: ministryService,
	}
}

// SetStatusRequest 修改部委状态请求
type SetStatusRequest struct {
	Status model.MinistryStatus `json:"status" binding:"required"`
}

// List 部委列表
// @Summary      部委列表
// @Description  默认只返回激活的部委,all=true 时返回全部(仅超级管理员)
// @Tags         部委目录
// @Produce      json
// @Param        all query bool false "包含未激活的部委"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /ministries [get]
// @Security     BearerAuth
func (c *MinistryController) List(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}

	var (
		list []*model.MinistryModel
		err  error
	)
	if ctx.Query("all") == "true" {
		list, err = c.ministryService.ListAll(ctx.Request.Context(), p)
	} else {
		list, err = c.ministryService.ListActive(ctx.Request.Context())
	}
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, list)
}

// Get 部委详情
// @Summary      部委详情
// @Tags         部委目录
// @Produce      json
// @Param        id path string true "部委 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /ministries/{id} [get]
// @Security     BearerAuth
func (c *MinistryController) Get(ctx *gin.Context) {
	m, err := c.ministryService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, m)
}

// Create 创建部委
// @Summary      创建部委
// @Tags         部委目录
// @Accept       json
// @Produce      json
// @Param        request body service.MinistryInput true "部委信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /ministries [post]
// @Security     BearerAuth
func (c *MinistryController) Create(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}

	var req service.MinistryInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	m, err := c.ministryService.Create(ctx.Request.Context(), p, req)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Created(ctx, m)
}

// Update 修改部委
// @Summary      修改部委
// @Tags         部委目录
// @Accept       json
// @Produce      json
// @Param        id path string true "部委 ID"
// @Param        request body service.MinistryInput true "部委信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /ministries/{id} [put]
// @Security     BearerAuth
func (c *MinistryController) Update(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}

	var req service.MinistryInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	m, err := c.ministryService.Update(ctx.Request.Context(), p, ctx.Param("id"), req)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, m)
}

// SetStatus 激活或停用部委
// @Summary      修改部委状态
// @Tags         部委目录
// @Accept       json
// @Produce      json
// @Param        id path string true "部委 ID"
// @Param        request body SetStatusRequest true "目标状态"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /ministries/{id}/status [post]
// @Security     BearerAuth
func (c *MinistryController) SetStatus(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	m, err := c.ministryService.SetStatus(ctx.Request.Context(), p, ctx.Param("id"), req.Status)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, m)
}

// Delete 删除部委
// @Summary      删除部委
// @Description  仍被用户或请求引用时返回 409
// @Tags         部委目录
// @Produce      json
// @Param        id path string true "部委 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /ministries/{id} [delete]
// @Security     BearerAuth
func (c *MinistryController) Delete(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}

	if err := c.ministryService.Delete(ctx.Request.Context(), p, ctx.Param("id")); err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, nil)
}
