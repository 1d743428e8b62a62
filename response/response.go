// Package response 提供统一的 HTTP 响应封装，支持业务错误码映射与分页数据包装。
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HTTPStatusProvider 定义能够提供 HTTP 状态码的错误接口，
// 用于跨层级的错误透传与状态码自动映射。
type HTTPStatusProvider interface {
	HTTPStatus() int
}

// BusinessCodeProvider 定义能够提供业务错误码的错误接口。
type BusinessCodeProvider interface {
	BusinessCode() int
}

// Success 发送标准成功响应：HTTP 200，业务码 0。
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"msg":  "success",
		"data": data,
	})
}

// Created 发送资源创建成功响应：HTTP 201。
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{
		"code": 0,
		"msg":  "success",
		"data": data,
	})
}

// PartialSuccess 发送部分成功响应：HTTP 207 Multi-Status。
// 用于主写入已生效但次级保证（如审计写入）失败的场景，
// 与完全成功、完全失败严格区分。
func PartialSuccess(c *gin.Context, warning string, data any) {
	c.JSON(http.StatusMultiStatus, gin.H{
		"code":    http.StatusMultiStatus,
		"msg":     "partial success",
		"warning": warning,
		"data":    data,
	})
}

// SuccessWithPagination 发送包含分页信息的成功响应。
func SuccessWithPagination(c *gin.Context, data any, total int64, page, size int) {
	c.JSON(http.StatusOK, gin.H{
		"code":  0,
		"msg":   "success",
		"data":  data,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

// SuccessWithRawData 发送原始数据响应（不包装 code 和 msg），用于健康检查等系统接口。
func SuccessWithRawData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Error 发送智能错误响应。
// 自动识别实现了 HTTPStatusProvider 的业务错误并映射状态码；
// 无法识别时兜底返回 500。
func Error(c *gin.Context, err error) {
	if err == nil {
		Success(c, nil)
		return
	}

	statusCode := http.StatusInternalServerError
	bizCode := statusCode
	msg := err.Error()
	detail := ""

	if e, ok := err.(HTTPStatusProvider); ok {
		statusCode = e.HTTPStatus()
		bizCode = statusCode
	}
	if e, ok := err.(BusinessCodeProvider); ok {
		bizCode = e.BusinessCode()
	}

	c.JSON(statusCode, gin.H{
		"code":   bizCode,
		"msg":    msg,
		"detail": detail,
	})
}

// ErrorWithStatus 发送带有指定状态码、消息和详情的错误响应。
func ErrorWithStatus(c *gin.Context, status int, msg string, detail string) {
	c.JSON(status, gin.H{
		"code":   status,
		"msg":    msg,
		"detail": detail,
	})
}
