package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// -------------------------- 资产生命周期领域 --------------------------

// AssetRef 标识一条托管资产及其在对象存储中的位置.
type AssetRef struct {
	AssetID   string `json:"asset_id"`
	TenantID  string `json:"tenant_id,omitempty"`
	Bucket    string `json:"bucket,omitempty"`
	ObjectKey string `json:"object_key,omitempty"`
}

// AssetUploadedPayload 客户端确认上传完成，元数据已落库.
type AssetUploadedPayload struct {
	Asset       AssetRef `json:"asset"`
	SizeBytes   int64    `json:"size_bytes,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
}

// AssetBoundPayload 资产绑定到业务资源.
type AssetBoundPayload struct {
	Asset        AssetRef `json:"asset"`
	ResourceType string   `json:"resource_type,omitempty"`
	ResourceID   string   `json:"resource_id,omitempty"`
	Role         string   `json:"role,omitempty"`
}

// AssetDeletedPayload 资产被软删除（对象字节保留）.
type AssetDeletedPayload struct {
	Asset     AssetRef  `json:"asset"`
	DeletedAt time.Time `json:"deleted_at"`
}

// -------------------------- 图像处理领域 --------------------------

// ProcessRequestedPayload 请求对指定资产执行图像处理流水线：
// 解码、方向归一、规范化原图、按宽度档位生成衍生规格.
type ProcessRequestedPayload struct {
	AssetID string `json:"asset_id"`
	// Attempt 从 1 开始计数，对账巡检重新入队时递增.
	Attempt int `json:"attempt,omitempty"`
}

// ProcessedPayload 处理完成，所有衍生规格已上传并持久化.
type ProcessedPayload struct {
	Asset    AssetRef          `json:"asset"`
	Width    int               `json:"width,omitempty"`
	Height   int               `json:"height,omitempty"`
	Variants map[string]string `json:"variants,omitempty"` // 规格名 -> 对象键
}

// ProcessFailedPayload 处理失败，资产停留在 uploaded 态.
type ProcessFailedPayload struct {
	Asset  AssetRef `json:"asset"`
	Reason string   `json:"reason,omitempty"`
}
