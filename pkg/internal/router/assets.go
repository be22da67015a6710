package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/imagevault/pkg/internal/handle"
)

// RegisterAssetsRoutes 注册资产管线相关路由.
func RegisterAssetsRoutes(g *gin.RouterGroup) {
	assetsRoutes := g.Group("/assets")
	{
		// 上传协调：presign -> (客户端直传) -> confirm
		assetsRoutes.POST("/presign", handle.PresignAsset)
		assetsRoutes.POST("/confirm-upload", handle.ConfirmUpload)

		// 服务端中转上传（本地模式的唯一上传路径）
		assetsRoutes.POST("/upload", handle.UploadAssetBuffer)

		// 绑定到业务资源
		assetsRoutes.POST("/bind", handle.BindAsset)

		// 查询与删除
		assetsRoutes.GET("", handle.ListAssets)

		singleGroup := assetsRoutes.Group("/:id")
		{
			singleGroup.GET("", handle.GetAsset)
			singleGroup.DELETE("", handle.DeleteAsset)
		}
	}
}
