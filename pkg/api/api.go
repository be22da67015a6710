// Package api 定义对外 HTTP 接口的路由入口.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/imagevault/pkg/internal/router"
)

// RegisterGroup 注册资产管理相关的路由组到传入的 gin 引擎.
func RegisterGroup(e *gin.Engine) *gin.Engine {
	router.RegisterAll(e.Group("/api/v1"))

	return e
}
