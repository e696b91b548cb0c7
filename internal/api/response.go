package api

import (
	"errors"
	"net/http"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/auth"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// Response 统一响应格式
// @Description 统一响应格式,包含状态码、消息和数据
type Response struct {
	Code    int         `json:"code" example:"0"`          // 状态码: 0 表示成功,非 0 表示失败
	Message string      `json:"message" example:"success"` // 响应消息
	Data    interface{} `json:"data"`                      // 响应数据
}

// ErrorResponse 错误响应格式
// @Description 错误响应格式,包含错误码、错误消息和错误详情
type ErrorResponse struct {
	Code    int    `json:"code" example:"400"`                           // 错误码
	Message string `json:"message" example:"invalid request"`            // 错误消息
	Detail  string `json:"detail,omitempty" example:"validation failed"` // 错误详情(可选)
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string, detail string) {
	statusCode := http.StatusInternalServerError
	if code >= 400 && code < 600 {
		statusCode = code
	}

	c.JSON(statusCode, ErrorResponse{
		Code:    code,
		Message: message,
		Detail:  detail,
	})
}

// StatusForKind 工作流错误类别到 HTTP 状态码
func StatusForKind(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindAuthorization:
		return http.StatusForbidden
	case service.KindConflict:
		return http.StatusConflict
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RespondError 将服务层错误写为响应
// 只输出面向调用方的消息,内部错误已由服务层记录
func RespondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		Error(c, http.StatusUnauthorized, "authentication required", "")
		return
	case errors.Is(err, auth.ErrIdentityUnavailable):
		Error(c, http.StatusServiceUnavailable, "service temporarily unavailable", "")
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		Error(c, http.StatusUnauthorized, service.ErrInvalidCredentials.Message, "")
		return
	}

	kind := service.KindOf(err)
	if kind == 0 {
		GetLogger().WithError(err).WithField("request_id", c.GetString(RequestIDKey)).Error("unhandled error")
		Error(c, http.StatusInternalServerError, "internal server error", "")
		return
	}
	Error(c, StatusForKind(kind), err.Error(), kind.String())
}
