package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"TinyTales/pkg/constants"
	"TinyTales/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/mssola/user_agent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OperationLog 记录用户的写操作
type OperationLog struct {
	ID              int64     `gorm:"primaryKey;autoIncrement;not null" json:"id"`
	UserID          string    `gorm:"size:64;index" json:"user_id"`
	UserEmail       string    `gorm:"size:255" json:"user_email"`
	UserName        string    `gorm:"size:128" json:"user_name"`
	Action          string    `gorm:"size:16;not null" json:"action"` // POST / DELETE
	Target          string    `gorm:"size:255;not null" json:"target"`
	Status          int       `json:"status"`
	IPAddress       string    `gorm:"size:64" json:"ip_address"`
	UserAgent       string    `gorm:"size:512" json:"user_agent"`
	Referer         string    `gorm:"size:512" json:"referer"`
	Device          string    `gorm:"size:64" json:"device"`
	Browser         string    `gorm:"size:128" json:"browser"`
	OperatingSystem string    `gorm:"size:128" json:"operating_system"`
	Mobile          bool      `json:"mobile"`
	LatencyMs       int64     `json:"latency_ms"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// OperationLogMiddleware 请求结束后写操作日志。只记录写请求，写入失败不影响响应
func OperationLogMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		ua := user_agent.New(c.GetHeader("User-Agent"))
		browser, version := ua.Browser()
		entry := OperationLog{
			UserID:          c.GetString(constants.UserField),
			Action:          c.Request.Method,
			Target:          routeOf(c),
			Status:          c.Writer.Status(),
			IPAddress:       clientIP(c),
			UserAgent:       c.GetHeader("User-Agent"),
			Referer:         c.GetHeader("Referer"),
			Device:          ua.Platform(),
			Browser:         fmt.Sprintf("%s %s", browser, version),
			OperatingSystem: ua.OS(),
			Mobile:          ua.Mobile(),
			LatencyMs:       time.Since(start).Milliseconds(),
		}
		if p, ok := CurrentPrincipal(c); ok {
			entry.UserEmail = p.Email
			entry.UserName = p.Name
		}
		if err := CreateOperationLog(context.WithoutCancel(c.Request.Context()), db, &entry); err != nil {
			logger.Warn("record operation log failed", zap.String("target", entry.Target), zap.Error(err))
		}
	}
}

// CreateOperationLog 创建操作日志
func CreateOperationLog(ctx context.Context, db *gorm.DB, entry *OperationLog) error {
	return db.WithContext(ctx).Create(entry).Error
}
