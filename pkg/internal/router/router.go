// Package router 管理路由配置，用于设置HTTP服务的路由规则.
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterAll 在给定分组下注册全部业务路由.
func RegisterAll(g *gin.RouterGroup) {
	RegisterAssetsRoutes(g)
	RegisterHealthCheckRoute(g)
}
