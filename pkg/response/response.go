package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body 统一响应结构
type Body struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Stage   string `json:"stage,omitempty"`
	Data    any    `json:"data"`
}

func Success(c *gin.Context, msg string, data any) {
	c.JSON(http.StatusOK, Body{Success: true, Message: msg, Data: data})
}

// Accepted 异步处理中的请求
func Accepted(c *gin.Context, msg string, data any) {
	c.JSON(http.StatusAccepted, Body{Success: true, Message: msg, Data: data})
}

// AbortWithStatus 终止请求并写入错误
func AbortWithStatus(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Body{Success: false, Error: msg})
}

// AbortWithDetail detail 放在 message 字段
func AbortWithDetail(c *gin.Context, status int, msg, detail, stage string) {
	c.AbortWithStatusJSON(status, Body{Success: false, Message: detail, Error: msg, Stage: stage})
}
