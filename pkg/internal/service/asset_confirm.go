package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/imagevault/pkg/configs"
	"github.com/yeisme/imagevault/pkg/internal/model"
	"github.com/yeisme/imagevault/pkg/internal/types"
	"github.com/yeisme/imagevault/pkg/queue"
)

// ConfirmUpload 客户端直传完成后的确认：核对对象确实存在且大小在容差内，
// 持久化客户端上报的元数据，状态推进到 uploaded 并请求异步处理。
// 对已 uploaded 的资产重复确认是幂等的（重新入队，元数据按本次上报更新）.
func (s *AssetService) ConfirmUpload(ctx context.Context, tenantID, userID string,
	req *types.ConfirmUploadRequest,
) (*types.ConfirmUploadResponse, error) {
	asset, err := s.loadOwnedAsset(ctx, tenantID, userID, req.AssetID)
	if err != nil {
		return nil, err
	}

	switch asset.Status {
	case model.AssetStatusPending, model.AssetStatusUploaded:
	default:
		return nil, errInvalid("asset in status %q cannot be confirmed", asset.Status)
	}

	cfg := configs.GetConfig()

	// 客户端上报的大小走与预签名相同的边界校验，不依赖实际落盘大小.
	if req.Size <= 0 || req.Size > cfg.Asset.MaxSizeBytes {
		return nil, errInvalid("reported size %d out of range (0, %d]",
			req.Size, cfg.Asset.MaxSizeBytes)
	}

	info, err := s.objBackend.Head(ctx, asset.ObjectKey)
	if err != nil {
		return nil, errInternal("stat uploaded object", err)
	}

	if info == nil {
		return nil, errInvalid("object not found in storage, upload may not have completed")
	}

	if info.Size > cfg.Asset.MaxSizeBytes {
		return nil, errInvalid("uploaded object exceeds size limit (%d > %d bytes)",
			info.Size, cfg.Asset.MaxSizeBytes)
	}

	if diff := info.Size - req.Size; diff > cfg.Asset.SizeToleranceBytes ||
		diff < -cfg.Asset.SizeToleranceBytes {
		return nil, errInvalid("reported size %d differs from stored size %d beyond tolerance",
			req.Size, info.Size)
	}

	if req.MimeType != nil {
		if _, ok := allowedMimeTypes[*req.MimeType]; !ok {
			return nil, errInvalid("unsupported mime type %q", *req.MimeType)
		}

		asset.MimeType = *req.MimeType
	}

	asset.Size = info.Size
	asset.Hash = req.Hash
	asset.Width = req.Width
	asset.Height = req.Height
	asset.OriginalName = req.OriginalName
	asset.Status = model.AssetStatusUploaded

	if err := s.dbClient.WithContext(ctx).Model(asset).Select(
		"mime_type", "size", "hash", "width", "height", "original_name", "status",
	).Updates(asset).Error; err != nil {
		return nil, errInternal("persist confirmed asset", err)
	}

	s.notifyLifecycle(ctx, asset.ID, func(pub message.Publisher) error {
		return queue.PublishAssetUploaded(pub, queue.AssetUploadedPayload{
			Asset:       assetRef(asset),
			SizeBytes:   asset.Size,
			ContentType: asset.MimeType,
		}, queue.WithProducer("imagevault"))
	})

	s.enqueueProcessing(ctx, asset, 1)

	return &types.ConfirmUploadResponse{
		AssetID:   asset.ID,
		Status:    string(asset.Status),
		PublicURL: s.objBackend.PublicURL(asset.ObjectKey),
		Variants:  nil,
	}, nil
}
