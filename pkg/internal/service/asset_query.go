package service

import (
	"context"

	"github.com/yeisme/imagevault/pkg/internal/model"
	"github.com/yeisme/imagevault/pkg/internal/types"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Get 按 ID 取资产视图。软删除的资产照常返回（status=deleted），
// 跨租户访问返回 Forbidden.
func (s *AssetService) Get(ctx context.Context, tenantID, userID, assetID string) (*types.AssetView, error) {
	if err := checkCaller(tenantID, userID); err != nil {
		return nil, err
	}

	var asset model.ManagedAsset
	if err := s.dbClient.WithContext(ctx).First(&asset, "id = ?", assetID).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, errNotFound("asset not found")
		}

		return nil, errInternal("load asset", err)
	}

	// 读操作只校验租户边界，同租户内其他用户的资产可见
	if asset.TenantID != tenantID {
		return nil, errForbidden("asset belongs to another tenant")
	}

	view := s.toView(&asset)

	return &view, nil
}

// List 租户内资产分页列表，默认不含软删除的行.
func (s *AssetService) List(ctx context.Context, tenantID, userID string,
	req *types.ListAssetsRequest,
) (*types.ListAssetsResponse, error) {
	if err := checkCaller(tenantID, userID); err != nil {
		return nil, err
	}

	page := req.Page
	if page < 1 {
		page = 1
	}

	size := req.Size
	if size < 1 {
		size = defaultPageSize
	} else if size > maxPageSize {
		size = maxPageSize
	}

	query := s.dbClient.WithContext(ctx).Model(&model.ManagedAsset{}).
		Where("tenant_id = ?", tenantID)

	if req.ResourceType != "" {
		query = query.Where("resource_type = ?", req.ResourceType)
	}

	if req.ResourceID != "" {
		query = query.Where("resource_id = ?", req.ResourceID)
	}

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	} else if !req.IncludeDeleted {
		query = query.Where("status <> ?", model.AssetStatusDeleted)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, errInternal("count assets", err)
	}

	var assets []model.ManagedAsset
	if err := query.Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&assets).Error; err != nil {
		return nil, errInternal("list assets", err)
	}

	views := make([]types.AssetView, 0, len(assets))
	for i := range assets {
		views = append(views, s.toView(&assets[i]))
	}

	return &types.ListAssetsResponse{
		Total:  total,
		Page:   page,
		Size:   size,
		Assets: views,
	}, nil
}
