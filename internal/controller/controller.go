package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// --- 1. 统一响应格式 (Response Format) ---

// Response 基础响应结构
type Response struct {
	Code    int         `json:"code"`    // 业务状态码
	Data    interface{} `json:"data"`    // 数据内容
	Message string      `json:"message"` // 提示信息
}

// ErrorBody 业务错误响应体，code 为稳定的错误码字符串
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success 成功响应封装
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Data:    data,
		Message: "success",
	})
}

// Fail 业务错误响应封装
func Fail(c *gin.Context, httpCode int, code string, msg string) {
	c.AbortWithStatusJSON(httpCode, ErrorBody{
		Code:    code,
		Message: msg,
	})
}
