// Package types 定义资产管线的请求/响应结构体.
package types

// PresignAssetRequest 申请上传槽位请求.
type PresignAssetRequest struct {
	ResourceType string `json:"resource_type" binding:"required" rule:"required"`
	Role         string `json:"role"`
	MimeType     string `json:"mime_type"     binding:"required" rule:"required"`
	Size         int64  `json:"size"          binding:"required" rule:"required,min=1"`
}

// PresignAssetResponse 返回签名上传 URL 与 pending 资产记录.
type PresignAssetResponse struct {
	UploadID        string            `json:"upload_id"`
	AssetID         string            `json:"asset_id"`
	Bucket          string            `json:"bucket"`
	ObjectKey       string            `json:"object_key"`
	URL             string            `json:"url"`
	RequiredHeaders map[string]string `json:"headers,omitempty"`
	ExpireAt        string            `json:"expire_at"` // RFC3339
}

// ConfirmUploadRequest 客户端直传完成后的确认请求.
// MimeType/宽高等字段可覆盖 presign 时的值，同样经过允许列表校验.
type ConfirmUploadRequest struct {
	AssetID      string  `json:"asset_id" binding:"required" rule:"required"`
	Size         int64   `json:"size"     binding:"required" rule:"required,min=1"`
	Hash         *string `json:"hash"`
	Width        *int    `json:"width"`
	Height       *int    `json:"height"`
	OriginalName *string `json:"original_name"`
	MimeType     *string `json:"mime_type"`
}

// ConfirmUploadResponse 确认结果；variants 在 worker 完成前为 null.
type ConfirmUploadResponse struct {
	AssetID   string            `json:"asset_id"`
	Status    string            `json:"status"`
	PublicURL string            `json:"public_url"`
	Variants  map[string]string `json:"variants"`
}

// BindAssetRequest 将已上传资产挂载到具体业务资源.
type BindAssetRequest struct {
	AssetID      string  `json:"asset_id"      binding:"required" rule:"required"`
	ResourceType string  `json:"resource_type" binding:"required" rule:"required"`
	ResourceID   string  `json:"resource_id"   binding:"required" rule:"required"`
	Role         *string `json:"role"`
}

// AssetView 对外返回的资产视图，public_url 每次按当前 bucket/objectKey 重新计算.
type AssetView struct {
	AssetID          string            `json:"asset_id"`
	TenantID         string            `json:"tenant_id"`
	OwnerID          string            `json:"owner_id"`
	ResourceType     string            `json:"resource_type"`
	ResourceID       *string           `json:"resource_id"`
	Role             *string           `json:"role"`
	Bucket           string            `json:"bucket"`
	ObjectKey        string            `json:"object_key"`
	MimeType         string            `json:"mime_type"`
	Size             int64             `json:"size"`
	Hash             *string           `json:"hash"`
	Width            *int              `json:"width"`
	Height           *int              `json:"height"`
	OriginalName     *string           `json:"original_name"`
	Status           string            `json:"status"`
	ModerationStatus string            `json:"moderation_status"`
	Visibility       string            `json:"visibility"`
	Variants         map[string]string `json:"variants"`
	PublicURL        string            `json:"public_url"`
	ProcessingError  string            `json:"processing_error,omitempty"`
	CreatedAt        string            `json:"created_at"`
	DeletedAt        *string           `json:"deleted_at"`
}

// ListAssetsRequest 租户内资产列表查询.
type ListAssetsRequest struct {
	Page           int    `form:"page"`
	Size           int    `form:"size"`
	ResourceType   string `form:"resource_type"`
	ResourceID     string `form:"resource_id"`
	Status         string `form:"status"`
	IncludeDeleted bool   `form:"include_deleted"`
}

// ListAssetsResponse 列表响应.
type ListAssetsResponse struct {
	Total  int64       `json:"total"`
	Page   int         `json:"page"`
	Size   int         `json:"size"`
	Assets []AssetView `json:"assets"`
}

// UploadBufferResponse 服务端中转上传（本地模式）的响应.
type UploadBufferResponse struct {
	AssetID   string `json:"asset_id"`
	Status    string `json:"status"`
	PublicURL string `json:"public_url"`
}
