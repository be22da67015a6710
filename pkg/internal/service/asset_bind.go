package service

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/imagevault/pkg/internal/model"
	"github.com/yeisme/imagevault/pkg/internal/types"
	"github.com/yeisme/imagevault/pkg/queue"
)

// Bind 将资产挂载到具体业务资源。逐字段合并：请求里给出的字段覆盖，
// 未给出的保持原值；重复绑定同一资源幂等.
func (s *AssetService) Bind(ctx context.Context, tenantID, userID string,
	req *types.BindAssetRequest,
) (*types.AssetView, error) {
	asset, err := s.loadOwnedAsset(ctx, tenantID, userID, req.AssetID)
	if err != nil {
		return nil, err
	}

	if asset.IsDeleted() {
		return nil, errInvalid("deleted asset cannot be bound")
	}

	if !allowedResourceTypes[req.ResourceType] {
		return nil, errInvalid("unsupported resource type %q", req.ResourceType)
	}

	asset.ResourceType = req.ResourceType
	resourceID := req.ResourceID
	asset.ResourceID = &resourceID

	if req.Role != nil {
		asset.Role = req.Role
	}

	if err := s.dbClient.WithContext(ctx).Model(asset).Select(
		"resource_type", "resource_id", "role",
	).Updates(asset).Error; err != nil {
		return nil, errInternal("persist binding", err)
	}

	role := ""
	if asset.Role != nil {
		role = *asset.Role
	}

	s.notifyLifecycle(ctx, asset.ID, func(pub message.Publisher) error {
		return queue.PublishAssetBound(pub, queue.AssetBoundPayload{
			Asset:        assetRef(asset),
			ResourceType: asset.ResourceType,
			ResourceID:   resourceID,
			Role:         role,
		}, queue.WithProducer("imagevault"))
	})

	view := s.toView(asset)

	return &view, nil
}

// Delete 软删除：状态置为 deleted 并记录删除时间，对象字节保留，
// 返回更新后的资产视图。删除后的资产仍可通过 Get 读取；重复删除幂等.
func (s *AssetService) Delete(ctx context.Context, tenantID, userID, assetID string) (*types.AssetView, error) {
	asset, err := s.loadOwnedAsset(ctx, tenantID, userID, assetID)
	if err != nil {
		return nil, err
	}

	if asset.IsDeleted() {
		view := s.toView(asset)

		return &view, nil
	}

	now := time.Now().UTC()
	asset.Status = model.AssetStatusDeleted
	asset.DeletedAt = &now

	if err := s.dbClient.WithContext(ctx).Model(asset).Select(
		"status", "deleted_at",
	).Updates(asset).Error; err != nil {
		return nil, errInternal("persist deletion", err)
	}

	s.notifyLifecycle(ctx, asset.ID, func(pub message.Publisher) error {
		return queue.PublishAssetDeleted(pub, queue.AssetDeletedPayload{
			Asset:     assetRef(asset),
			DeletedAt: now,
		}, queue.WithProducer("imagevault"))
	})

	view := s.toView(asset)

	return &view, nil
}
