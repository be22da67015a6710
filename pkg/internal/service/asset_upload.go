package service

import (
	"context"
	"io"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/imagevault/pkg/configs"
	"github.com/yeisme/imagevault/pkg/internal/model"
	"github.com/yeisme/imagevault/pkg/internal/types"
	"github.com/yeisme/imagevault/pkg/queue"
)

// UploadBuffer 服务端中转上传：字节流经服务写入对象存储，落库后直接推进到
// uploaded 并请求异步处理。本地模式下这是唯一的上传路径；云端模式也可用，
// 适合小文件或不便直传的调用方.
func (s *AssetService) UploadBuffer(ctx context.Context, tenantID, userID string,
	resourceType, role, originalName, mimeType string, r io.Reader, size int64,
) (*types.UploadBufferResponse, error) {
	if err := checkCaller(tenantID, userID); err != nil {
		return nil, err
	}

	if !allowedResourceTypes[resourceType] {
		return nil, errInvalid("unsupported resource type %q", resourceType)
	}

	if _, ok := allowedMimeTypes[mimeType]; !ok {
		return nil, errInvalid("unsupported mime type %q", mimeType)
	}

	cfg := configs.GetConfig()
	if size <= 0 || size > cfg.Asset.MaxSizeBytes {
		return nil, errInvalid("size %d out of range (max %d bytes)", size, cfg.Asset.MaxSizeBytes)
	}

	objectKey := buildObjectKey(cfg.Storage.Env, tenantID, resourceType, mimeType)

	publicURL, err := s.objBackend.Upload(ctx, objectKey, r, size, mimeType)
	if err != nil {
		return nil, errInternal("upload object", err)
	}

	asset := model.ManagedAsset{
		ID:               newAssetID(),
		TenantID:         tenantID,
		OwnerID:          userID,
		ResourceType:     resourceType,
		Bucket:           s.objBackend.Bucket(),
		ObjectKey:        objectKey,
		MimeType:         mimeType,
		Size:             size,
		Status:           model.AssetStatusUploaded,
		ModerationStatus: model.ModerationPending,
		Visibility:       model.VisibilityPublic,
	}

	if role != "" {
		asset.Role = &role
	}

	if originalName != "" {
		asset.OriginalName = &originalName
	}

	if err := s.dbClient.WithContext(ctx).Create(&asset).Error; err != nil {
		return nil, errInternal("create uploaded asset", err)
	}

	s.notifyLifecycle(ctx, asset.ID, func(pub message.Publisher) error {
		return queue.PublishAssetUploaded(pub, queue.AssetUploadedPayload{
			Asset:       assetRef(&asset),
			SizeBytes:   asset.Size,
			ContentType: asset.MimeType,
		}, queue.WithProducer("imagevault"))
	})

	s.enqueueProcessing(ctx, &asset, 1)

	return &types.UploadBufferResponse{
		AssetID:   asset.ID,
		Status:    string(asset.Status),
		PublicURL: publicURL,
	}, nil
}
