package model

import (
	"time"
)

// AssetStatus 资产生命周期状态，只能向前推进；deleted 为终态，可从任意非 deleted 状态到达.
type AssetStatus string

const (
	AssetStatusPending  AssetStatus = "pending"
	AssetStatusUploaded AssetStatus = "uploaded"
	AssetStatusReady    AssetStatus = "ready"
	AssetStatusDeleted  AssetStatus = "deleted"
)

// ModerationStatus 审核状态占位：管线内未接入真实分类器，处理完成后无条件置 approved.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// Visibility 可见性，当前恒为 public.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ManagedAsset 托管图片资产.
// deleted 是业务状态而非 gorm 软删除：删除后的行仍需可读（Get 照常返回）.
type ManagedAsset struct {
	ID string `gorm:"primaryKey;size:26" json:"id"` // ULID
	// 租户隔离边界，所有读写都按它过滤
	TenantID string `gorm:"size:255;index:idx_tenant_status;index" json:"tenant_id"`
	// 上传者，所有变更操作都要求匹配
	OwnerID string `gorm:"size:255;index" json:"owner_id"`

	// 资源归属：presign 时记录目标类型，bind 后指向具体资源
	ResourceType string  `gorm:"size:64;index"  json:"resource_type"`
	ResourceID   *string `gorm:"size:255;index" json:"resource_id"`
	Role         *string `gorm:"size:64"        json:"role"`

	Bucket    string `gorm:"size:255"                  json:"bucket"`
	ObjectKey string `gorm:"size:1024;uniqueIndex"     json:"object_key"`

	MimeType     string  `gorm:"size:128"  json:"mime_type"`
	Size         int64   `gorm:""          json:"size"`
	Hash         *string `gorm:"size:128"  json:"hash"` // 客户端上报，服务端不校验
	Width        *int    `gorm:""          json:"width"`
	Height       *int    `gorm:""          json:"height"`
	OriginalName *string `gorm:"size:512"  json:"original_name"`

	Status           AssetStatus      `gorm:"size:16;index:idx_tenant_status;index" json:"status"`
	ModerationStatus ModerationStatus `gorm:"size:16"                               json:"moderation_status"`
	Visibility       Visibility       `gorm:"size:16"                               json:"visibility"`

	// VariantsJSON 以 JSON 字符串存储 variant 名称到对象键的映射，ready 前为空
	VariantsJSON string `gorm:"type:text" json:"variants_json"`

	// ProcessingError 最近一次入队/处理失败的原因，处理成功后清空；
	// 用于运维发现滞留在 uploaded 的资产
	ProcessingError string `gorm:"type:text" json:"processing_error"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at"`
}

// TableName 指定表名.
func (ManagedAsset) TableName() string { return "managed_assets" }

// IsDeleted 判断是否已逻辑删除.
func (a *ManagedAsset) IsDeleted() bool { return a.Status == AssetStatusDeleted }
