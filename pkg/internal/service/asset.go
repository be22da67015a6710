// Package service 实现资产管线的业务逻辑：申请上传槽位、确认上传、
// 绑定业务资源、软删除与查询。状态机 pending -> uploaded -> ready 单向推进，
// deleted 为终态，可从任意非 deleted 状态到达.
package service

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/oklog/ulid"

	ctxPkg "github.com/yeisme/imagevault/pkg/context"
	"github.com/yeisme/imagevault/pkg/internal/model"
	"github.com/yeisme/imagevault/pkg/internal/storage/db"
	"github.com/yeisme/imagevault/pkg/internal/storage/mq"
	"github.com/yeisme/imagevault/pkg/internal/storage/object"
	"github.com/yeisme/imagevault/pkg/internal/types"
	"github.com/yeisme/imagevault/pkg/queue"
)

var ulidEntropy = ulid.Monotonic(crand.Reader, 0)

// allowedResourceTypes 允许的业务资源类型.
var allowedResourceTypes = map[string]bool{
	"community":     true,
	"event":         true,
	"class":         true,
	"user-avatar":   true,
	"event-gallery": true,
	"banner":        true,
}

// allowedMimeTypes 允许的上传内容类型及对应对象键后缀.
var allowedMimeTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/heic": "heic",
	"image/heif": "heif",
}

type AssetService struct {
	objBackend object.Backend
	dbClient   *db.Client
	mqClient   *mq.Client
}

func NewAssetService(c context.Context) *AssetService {
	return &AssetService{
		objBackend: ctxPkg.GetObjectBackend(c),
		dbClient:   ctxPkg.GetDBClient(c),
		mqClient:   ctxPkg.GetMQClient(c),
	}
}

// newAssetID 生成按时间有序的资产 ID.
func newAssetID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), ulidEntropy).String()
}

// buildObjectKey 构建对象存储路径：{env}/{tenant}/{resourceType}/{yyyy}/{mm}/{dd}/{uuid}_orig.{ext}.
// 放在 service 层便于未来统一策略（如目录分桶、版本号等）.
func buildObjectKey(env, tenantID, resourceType, mimeType string) string {
	datePath := time.Now().UTC().Format("2006/01/02")
	ext := allowedMimeTypes[mimeType]

	return fmt.Sprintf("%s/%s/%s/%s/%s_orig.%s",
		env, tenantID, resourceType, datePath, uuid.NewString(), ext)
}

// checkCaller 校验调用方身份头，两者都必须存在.
func checkCaller(tenantID, userID string) error {
	if tenantID == "" || userID == "" {
		return errUnauthorized("missing tenant or user identity")
	}

	return nil
}

// loadOwnedAsset 按 ID 取资产并校验租户/属主；任一不匹配返回 Forbidden.
func (s *AssetService) loadOwnedAsset(ctx context.Context, tenantID, userID, assetID string) (*model.ManagedAsset, error) {
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

	if asset.TenantID != tenantID {
		return nil, errForbidden("asset belongs to another tenant")
	}

	if asset.OwnerID != userID {
		return nil, errForbidden("asset belongs to another user")
	}

	return &asset, nil
}

// toView 转换为对外视图，public_url 按当前后端配置重新计算.
func (s *AssetService) toView(asset *model.ManagedAsset) types.AssetView {
	view := types.AssetView{
		AssetID:          asset.ID,
		TenantID:         asset.TenantID,
		OwnerID:          asset.OwnerID,
		ResourceType:     asset.ResourceType,
		ResourceID:       asset.ResourceID,
		Role:             asset.Role,
		Bucket:           asset.Bucket,
		ObjectKey:        asset.ObjectKey,
		MimeType:         asset.MimeType,
		Size:             asset.Size,
		Hash:             asset.Hash,
		Width:            asset.Width,
		Height:           asset.Height,
		OriginalName:     asset.OriginalName,
		Status:           string(asset.Status),
		ModerationStatus: string(asset.ModerationStatus),
		Visibility:       string(asset.Visibility),
		PublicURL:        s.objBackend.PublicURL(asset.ObjectKey),
		ProcessingError:  asset.ProcessingError,
		CreatedAt:        asset.CreatedAt.UTC().Format(time.RFC3339),
	}

	if asset.DeletedAt != nil {
		deletedAt := asset.DeletedAt.UTC().Format(time.RFC3339)
		view.DeletedAt = &deletedAt
	}

	if variants, err := decodeVariants(asset.VariantsJSON); err == nil && len(variants) > 0 {
		urls := make(map[string]string, len(variants))
		for name, key := range variants {
			urls[name] = s.objBackend.PublicURL(key)
		}

		view.Variants = urls
	}

	return view
}

// assetRef 构造事件负载里的资产定位信息.
func assetRef(asset *model.ManagedAsset) queue.AssetRef {
	return queue.AssetRef{
		AssetID:   asset.ID,
		TenantID:  asset.TenantID,
		Bucket:    asset.Bucket,
		ObjectKey: asset.ObjectKey,
	}
}

// notifyLifecycle 发布资产生命周期事件，仅供下游旁路消费（统计、审计、缓存失效）。
// MQ 缺席或发布失败只记日志，不影响主流程.
func (s *AssetService) notifyLifecycle(ctx context.Context, assetID string, publish func(pub message.Publisher) error) {
	pub := s.mqClient.Publisher()
	if pub == nil {
		return
	}

	if err := publish(pub); err != nil {
		logger := ctxPkg.WithTraceContext(ctx, serviceLogger())
		logger.Warn().Err(err).Str("asset_id", assetID).Msg("发布资产生命周期事件失败")
	}
}

// enqueueProcessing 发布图像处理请求。发布失败不阻塞调用方：
// 吞掉错误、记录日志，并把原因写入 processing_error 供定时任务补偿.
func (s *AssetService) enqueueProcessing(ctx context.Context, asset *model.ManagedAsset, attempt int) {
	var err error

	if pub := s.mqClient.Publisher(); pub == nil {
		err = fmt.Errorf("mq publisher not initialized")
	} else {
		err = queue.PublishProcessRequested(pub, queue.ProcessRequestedPayload{
			AssetID: asset.ID,
			Attempt: attempt,
		}, queue.WithProducer("imagevault"))
	}

	if err == nil {
		return
	}

	logger := ctxPkg.WithTraceContext(ctx, serviceLogger())
	logger.Error().Err(err).
		Str("asset_id", asset.ID).
		Str("tenant_id", asset.TenantID).
		Msg("入队图像处理请求失败，等待定时任务补偿")

	reason := fmt.Sprintf("enqueue failed at %s: %v",
		time.Now().UTC().Format(time.RFC3339), err)

	if dbErr := s.dbClient.WithContext(ctx).Model(&model.ManagedAsset{}).
		Where("id = ?", asset.ID).
		Update("processing_error", reason).Error; dbErr != nil {
		logger.Error().Err(dbErr).Str("asset_id", asset.ID).Msg("记录入队失败原因时写库失败")
	}
}
