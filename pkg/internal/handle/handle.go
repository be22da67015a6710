// Package handle 提供请求处理器的实现，用于处理HTTP请求.
package handle

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/imagevault/pkg/internal/service"
	"github.com/yeisme/imagevault/pkg/rule"
)

func DefaultHandler(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"message": "Not Implemented"})
}

// checkCaller 提取调用方身份：X-Tenant-ID / X-User-ID Header 优先 -> query 参数
// -> 非 Release 模式下的默认值（便于测试）.
func checkCaller(c *gin.Context) (tenantID, userID string) {
	tenantID = c.GetHeader("X-Tenant-ID")
	if tenantID == "" {
		tenantID = c.Query("tenant_id")
	}

	userID = c.GetHeader("X-User-ID")
	if userID == "" {
		userID = c.Query("user_id")
	}

	if gin.Mode() != gin.ReleaseMode {
		if tenantID == "" {
			tenantID = "test-tenant"
		}

		if userID == "" {
			userID = "test-user"
		}
	}

	tenantID = strings.TrimSpace(tenantID)
	userID = strings.TrimSpace(userID)

	if err := rule.ValidateVar(tenantID, "max=128"); err != nil {
		return "", userID
	}

	if err := rule.ValidateVar(userID, "max=128"); err != nil {
		return tenantID, ""
	}

	return tenantID, userID
}

// writeServiceError 按服务层错误分类映射 HTTP 状态码.
func writeServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch service.CodeOf(err) {
	case service.CodeUnauthorized:
		status = http.StatusUnauthorized
	case service.CodeForbidden:
		status = http.StatusForbidden
	case service.CodeNotFound:
		status = http.StatusNotFound
	case service.CodeInvalidArgument:
		status = http.StatusBadRequest
	case service.CodeInternal:
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
