package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/imagevault/pkg/internal/service"
	"github.com/yeisme/imagevault/pkg/internal/types"
	"github.com/yeisme/imagevault/pkg/log"
)

// PresignAsset 申请直传槽位.
//
//	@Summary		申请预签名上传URL
//	@Description	校验资源类型/内容类型/大小后生成对象键、pending资产记录与限时PUT URL
//	@Tags			资产上传
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string						true	"租户标识"
//	@Param			X-User-ID	header		string						true	"用户标识"
//	@Param			request		body		types.PresignAssetRequest	true	"上传槽位申请"
//	@Success		200			{object}	types.PresignAssetResponse	"预签名URL与资产记录"
//	@Failure		400			{object}	map[string]string			"参数非法或本地模式不支持"
//	@Failure		401			{object}	map[string]string			"身份缺失"
//	@Router			/api/v1/assets/presign [post]
func PresignAsset(c *gin.Context) {
	l := log.Logger()

	var req types.PresignAssetRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	tenantID, userID := checkCaller(c)
	svc := service.NewAssetService(c.Request.Context())

	resp, err := svc.Presign(c.Request.Context(), tenantID, userID, &req)
	if err != nil {
		l.Warn().Err(err).Str("tenant_id", tenantID).Msg("presign failed")
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// ConfirmUpload 确认直传完成.
//
//	@Summary		确认上传完成
//	@Description	核对对象存在且大小在容差内，推进资产到uploaded并请求异步生成变体
//	@Tags			资产上传
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string						true	"租户标识"
//	@Param			X-User-ID	header		string						true	"用户标识"
//	@Param			request		body		types.ConfirmUploadRequest	true	"上传确认"
//	@Success		200			{object}	types.ConfirmUploadResponse	"确认结果"
//	@Failure		400			{object}	map[string]string			"对象缺失或大小不符"
//	@Failure		403			{object}	map[string]string			"非属主"
//	@Router			/api/v1/assets/confirm-upload [post]
func ConfirmUpload(c *gin.Context) {
	l := log.Logger()

	var req types.ConfirmUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	tenantID, userID := checkCaller(c)
	svc := service.NewAssetService(c.Request.Context())

	resp, err := svc.ConfirmUpload(c.Request.Context(), tenantID, userID, &req)
	if err != nil {
		l.Warn().Err(err).Str("asset_id", req.AssetID).Msg("confirm upload failed")
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// BindAsset 将资产绑定到业务资源.
//
//	@Summary		绑定资产
//	@Description	把已上传资产挂载到具体业务资源（resourceType/resourceId/role），可重复绑定
//	@Tags			资产管理
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string					true	"租户标识"
//	@Param			X-User-ID	header		string					true	"用户标识"
//	@Param			request		body		types.BindAssetRequest	true	"绑定请求"
//	@Success		200			{object}	types.AssetView			"更新后的资产视图"
//	@Failure		400			{object}	map[string]string		"资源类型非法或资产已删除"
//	@Failure		403			{object}	map[string]string		"非属主"
//	@Router			/api/v1/assets/bind [post]
func BindAsset(c *gin.Context) {
	l := log.Logger()

	var req types.BindAssetRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	tenantID, userID := checkCaller(c)
	svc := service.NewAssetService(c.Request.Context())

	resp, err := svc.Bind(c.Request.Context(), tenantID, userID, &req)
	if err != nil {
		l.Warn().Err(err).Str("asset_id", req.AssetID).Msg("bind failed")
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteAsset 软删除资产.
//
//	@Summary		软删除资产
//	@Description	状态置为deleted并记录删除时间，对象字节保留；重复删除幂等
//	@Tags			资产管理
//	@Produce		json
//	@Param			X-Tenant-ID	header		string				true	"租户标识"
//	@Param			X-User-ID	header		string				true	"用户标识"
//	@Param			id			path		string				true	"资产ID"
//	@Success		200			{object}	types.AssetView		"删除后的资产视图"
//	@Failure		403			{object}	map[string]string	"非属主"
//	@Failure		404			{object}	map[string]string	"资产不存在"
//	@Router			/api/v1/assets/{id} [delete]
func DeleteAsset(c *gin.Context) {
	tenantID, userID := checkCaller(c)
	svc := service.NewAssetService(c.Request.Context())

	resp, err := svc.Delete(c.Request.Context(), tenantID, userID, c.Param("id"))
	if err != nil {
		log.Logger().Warn().Err(err).Str("asset_id", c.Param("id")).Msg("delete failed")
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetAsset 获取资产视图.
//
//	@Summary		获取资产
//	@Description	返回资产视图，public_url按当前配置重新计算；软删除的资产照常返回
//	@Tags			资产管理
//	@Produce		json
//	@Param			X-Tenant-ID	header		string				true	"租户标识"
//	@Param			X-User-ID	header		string				true	"用户标识"
//	@Param			id			path		string				true	"资产ID"
//	@Success		200			{object}	types.AssetView		"资产视图"
//	@Failure		403			{object}	map[string]string	"跨租户访问"
//	@Failure		404			{object}	map[string]string	"资产不存在"
//	@Router			/api/v1/assets/{id} [get]
func GetAsset(c *gin.Context) {
	tenantID, userID := checkCaller(c)
	svc := service.NewAssetService(c.Request.Context())

	resp, err := svc.Get(c.Request.Context(), tenantID, userID, c.Param("id"))
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListAssets 租户内资产列表.
//
//	@Summary		列出资产
//	@Description	租户内分页列表，默认不含软删除的行，可按资源/状态过滤
//	@Tags			资产管理
//	@Produce		json
//	@Param			X-Tenant-ID		header		string					true	"租户标识"
//	@Param			X-User-ID		header		string					true	"用户标识"
//	@Param			page			query		int						false	"页码"
//	@Param			size			query		int						false	"页大小"
//	@Param			resource_type	query		string					false	"按资源类型过滤"
//	@Param			resource_id		query		string					false	"按资源ID过滤"
//	@Param			status			query		string					false	"按状态过滤"
//	@Param			include_deleted	query		bool					false	"包含软删除的行"
//	@Success		200				{object}	types.ListAssetsResponse	"列表"
//	@Router			/api/v1/assets [get]
func ListAssets(c *gin.Context) {
	var req types.ListAssetsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	tenantID, userID := checkCaller(c)
	svc := service.NewAssetService(c.Request.Context())

	resp, err := svc.List(c.Request.Context(), tenantID, userID, &req)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// UploadAssetBuffer 服务端中转上传（multipart）.
//
//	@Summary		中转上传
//	@Description	字节流经服务端写入存储并直接推进到uploaded；本地模式下的唯一上传路径
//	@Tags			资产上传
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			X-Tenant-ID		header		string						true	"租户标识"
//	@Param			X-User-ID		header		string						true	"用户标识"
//	@Param			file			formData	file						true	"图片文件"
//	@Param			resource_type	formData	string						true	"资源类型"
//	@Param			role			formData	string						false	"角色"
//	@Success		200				{object}	types.UploadBufferResponse	"上传结果"
//	@Failure		400				{object}	map[string]string			"文件缺失或类型/大小非法"
//	@Router			/api/v1/assets/upload [post]
func UploadAssetBuffer(c *gin.Context) {
	l := log.Logger()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		l.Warn().Err(err).Msg("missing multipart file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})

		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}
	defer file.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	resourceType := c.PostForm("resource_type")
	role := c.PostForm("role")

	tenantID, userID := checkCaller(c)
	svc := service.NewAssetService(c.Request.Context())

	resp, err := svc.UploadBuffer(c.Request.Context(), tenantID, userID,
		resourceType, role, fileHeader.Filename, mimeType, file, fileHeader.Size)
	if err != nil {
		l.Warn().Err(err).Str("tenant_id", tenantID).Msg("buffer upload failed")
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}
