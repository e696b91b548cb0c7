package api

import (
	"net/http"
	"time"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// TokenIssuer 签发会话令牌
type TokenIssuer interface {
	IssueToken(userID string, ttl time.Duration) (string, error)
}

// AuthController 登录与用户开通控制器
type AuthController struct {
	userService service.UserService
	issuer      TokenIssuer
	tokenTTL    time.Duration
}

// NewAuthController 创建认证控制器
func NewAuthController(userService service.UserService, issuer TokenIssuer, tokenTTL time.Duration) *AuthController {
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthController{
		userService: userService,
		issuer:      issuer,
		tokenTTL:    tokenTTL,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Principal model.Principal `json:"principal"`
}

// Login 登录
// @Summary      登录
// @Description  校验邮箱与密码,返回会话令牌
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "登录信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	user, err := c.userService.Authenticate(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	token, err := c.issuer.IssueToken(user.ID, c.tokenTTL)
	if err != nil {
		GetLogger().WithError(err).Error("failed to issue session token")
		Error(ctx, http.StatusInternalServerError, "failed to issue token", "")
		return
	}

	Success(ctx, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(c.tokenTTL).UTC(),
		Principal: user.Principal(),
	})
}

// CreateUser 开通用户
// @Summary      开通用户
// @Description  仅超级管理员
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request body service.UserInput true "用户信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /users [post]
// @Security     BearerAuth
func (c *AuthController) CreateUser(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}

	var req service.UserInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	user, err := c.userService.Create(ctx.Request.Context(), p, req)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Created(ctx, user)
}
