package service

import (
	"context"
	"errors"
	"time"

	"github.com/yeisme/imagevault/pkg/configs"
	"github.com/yeisme/imagevault/pkg/internal/model"
	"github.com/yeisme/imagevault/pkg/internal/storage/object"
	"github.com/yeisme/imagevault/pkg/internal/types"
)

// Presign 申请直传槽位：校验资源类型/内容类型/大小，生成对象键与 pending
// 资产记录，并签发限时 PUT URL。本地模式不支持预签名，调用方应改走
// UploadBuffer 中转路径.
func (s *AssetService) Presign(ctx context.Context, tenantID, userID string,
	req *types.PresignAssetRequest,
) (*types.PresignAssetResponse, error) {
	if err := checkCaller(tenantID, userID); err != nil {
		return nil, err
	}

	if !allowedResourceTypes[req.ResourceType] {
		return nil, errInvalid("unsupported resource type %q", req.ResourceType)
	}

	if _, ok := allowedMimeTypes[req.MimeType]; !ok {
		return nil, errInvalid("unsupported mime type %q", req.MimeType)
	}

	cfg := configs.GetConfig()
	if req.Size <= 0 || req.Size > cfg.Asset.MaxSizeBytes {
		return nil, errInvalid("size %d out of range (max %d bytes)", req.Size, cfg.Asset.MaxSizeBytes)
	}

	objectKey := buildObjectKey(cfg.Storage.Env, tenantID, req.ResourceType, req.MimeType)
	expire := time.Duration(cfg.Asset.PresignExpireMin) * time.Minute

	presigned, err := s.objBackend.PresignPut(ctx, objectKey, req.MimeType, expire)
	if err != nil {
		if errors.Is(err, object.ErrPresignUnsupported) {
			return nil, errInvalid("presigned upload unavailable in local storage mode, use direct upload")
		}

		return nil, errInternal("presign upload url", err)
	}

	asset := model.ManagedAsset{
		ID:               newAssetID(),
		TenantID:         tenantID,
		OwnerID:          userID,
		ResourceType:     req.ResourceType,
		Bucket:           s.objBackend.Bucket(),
		ObjectKey:        objectKey,
		MimeType:         req.MimeType,
		Size:             req.Size,
		Status:           model.AssetStatusPending,
		ModerationStatus: model.ModerationPending,
		Visibility:       model.VisibilityPublic,
	}

	if req.Role != "" {
		role := req.Role
		asset.Role = &role
	}

	if err := s.dbClient.WithContext(ctx).Create(&asset).Error; err != nil {
		return nil, errInternal("create pending asset", err)
	}

	return &types.PresignAssetResponse{
		UploadID:        asset.ID,
		AssetID:         asset.ID,
		Bucket:          asset.Bucket,
		ObjectKey:       objectKey,
		URL:             presigned.URL,
		RequiredHeaders: presigned.RequiredHeaders,
		ExpireAt:        presigned.ExpireAt.UTC().Format(time.RFC3339),
	}, nil
}
