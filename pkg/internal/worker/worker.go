package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yeisme/imagevault/pkg/configs"
	ctxPkg "github.com/yeisme/imagevault/pkg/context"
	"github.com/yeisme/imagevault/pkg/internal/model"
	"github.com/yeisme/imagevault/pkg/internal/storage/db"
	"github.com/yeisme/imagevault/pkg/internal/storage/mq"
	"github.com/yeisme/imagevault/pkg/internal/storage/object"
	nlog "github.com/yeisme/imagevault/pkg/log"
	"github.com/yeisme/imagevault/pkg/queue"
)

// variantNames 处理顺序固定的规格档位，"orig" 是规范化原图.
var variantNames = []string{"sm", "md", "lg"}

type Worker struct {
	objBackend object.Backend
	dbClient   *db.Client
	mqClient   *mq.Client
	logger     zerolog.Logger
}

func New(c context.Context) *Worker {
	l := nlog.Logger().With().Str("component", "variant_worker").Logger()

	return &Worker{
		objBackend: ctxPkg.GetObjectBackend(c),
		dbClient:   ctxPkg.GetDBClient(c),
		mqClient:   ctxPkg.GetMQClient(c),
		logger:     l,
	}
}

// Run 订阅处理请求主题并循环消费，直到 ctx 取消.
// 每条消息处理完都 Ack：失败的资产停留在 uploaded 态，由定时任务补偿重入队.
func (w *Worker) Run(ctx context.Context) error {
	ch, err := w.mqClient.Subscribe(ctx, queue.TopicProcessRequested)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", queue.TopicProcessRequested, err)
	}

	w.logger.Info().Str("topic", queue.TopicProcessRequested).Msg("variant worker 开始消费")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			env, err := queue.ParseProcessRequested(msg)
			if err != nil {
				w.logger.Error().Err(err).Str("msg_id", msg.UUID).Msg("消息解析失败，丢弃")
				msg.Ack()

				continue
			}

			if err := w.Process(ctx, env.Payload.AssetID); err != nil {
				w.logger.Error().Err(err).
					Str("asset_id", env.Payload.AssetID).
					Int("attempt", env.Payload.Attempt).
					Msg("图像处理失败，资产停留在 uploaded 态")
			}

			msg.Ack()
		}
	}
}

// Process 执行一次完整的变体生成。不存在或已删除/已就绪的资产静默跳过；
// 任何中途失败都不会把资产推进到 ready，只记录 processing_error.
func (w *Worker) Process(ctx context.Context, assetID string) error {
	var asset model.ManagedAsset
	if err := w.dbClient.WithContext(ctx).First(&asset, "id = ?", assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 已删除或竞争窗口，静默结束
			w.logger.Debug().Str("asset_id", assetID).Msg("资产不存在，跳过处理")

			return nil
		}

		return fmt.Errorf("load asset: %w", err)
	}

	if asset.Status != model.AssetStatusUploaded {
		w.logger.Debug().
			Str("asset_id", assetID).
			Str("status", string(asset.Status)).
			Msg("资产不在 uploaded 态，跳过处理")

		return nil
	}

	if err := w.generate(ctx, &asset); err != nil {
		w.recordFailure(ctx, &asset, err)

		return err
	}

	return nil
}

// generate 下载原图、归一方向、生成并上传所有规格，最后一次性落库.
func (w *Worker) generate(ctx context.Context, asset *model.ManagedAsset) error {
	cfg := configs.GetConfig().Asset

	data, err := w.objBackend.Download(ctx, asset.ObjectKey)
	if err != nil {
		return fmt.Errorf("download original: %w", err)
	}

	orientation := exifOrientation(data, asset.MimeType)

	img, err := decodeImage(data, asset.MimeType)
	if err != nil {
		return err
	}

	img = normalizeOrientation(img, orientation)
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()

	// 规范化原图：统一转 JPEG，后续所有 URL 都指向它
	origBytes, err := encodeJPEG(img, cfg.OriginalJPEGQuality)
	if err != nil {
		return err
	}

	type variantOut struct {
		name string
		key  string
		data []byte
	}

	outputs := []variantOut{
		{name: "original", key: object.VariantKey(asset.ObjectKey, "orig"), data: origBytes},
	}

	for _, name := range variantNames {
		scaled := scaleToWidth(img, cfg.VariantWidths()[name])

		encoded, err := encodeJPEG(scaled, cfg.VariantJPEGQuality)
		if err != nil {
			return fmt.Errorf("encode %s variant: %w", name, err)
		}

		outputs = append(outputs, variantOut{
			name: name,
			key:  object.VariantKey(asset.ObjectKey, name),
			data: encoded,
		})
	}

	// 并行上传，任一失败则整体失败，资产保持 uploaded
	g, gctx := errgroup.WithContext(ctx)
	for _, out := range outputs {
		g.Go(func() error {
			_, err := w.objBackend.Upload(gctx, out.key, bytes.NewReader(out.data), int64(len(out.data)), "image/jpeg")
			if err != nil {
				return fmt.Errorf("upload %s variant: %w", out.name, err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	variants := make(map[string]string, len(outputs))
	for _, out := range outputs {
		variants[out.name] = out.key
	}

	variantsJSON, err := sonic.MarshalString(variants)
	if err != nil {
		return fmt.Errorf("encode variants: %w", err)
	}

	moderation := w.moderate(asset)

	// 只更新本组件负责的列，避免覆盖并发的 bind/delete 写入
	updates := map[string]any{
		"variants_json":     variantsJSON,
		"width":             width,
		"height":            height,
		"status":            model.AssetStatusReady,
		"moderation_status": moderation,
		"processing_error":  "",
	}

	if err := w.dbClient.WithContext(ctx).Model(&model.ManagedAsset{}).
		Where("id = ? AND status = ?", asset.ID, model.AssetStatusUploaded).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("persist processing result: %w", err)
	}

	w.logger.Info().
		Str("asset_id", asset.ID).
		Int("width", width).
		Int("height", height).
		Msg("变体生成完成，资产进入 ready 态")

	w.publishProcessed(asset, width, height, variants)

	return nil
}

// moderate 审核占位：没有接入真实分类器，处理成功一律通过.
func (w *Worker) moderate(_ *model.ManagedAsset) model.ModerationStatus {
	return model.ModerationApproved
}

// recordFailure 把失败原因写入 processing_error，供运维与补偿任务发现.
func (w *Worker) recordFailure(ctx context.Context, asset *model.ManagedAsset, cause error) {
	reason := fmt.Sprintf("processing failed at %s: %v",
		time.Now().UTC().Format(time.RFC3339), cause)

	if err := w.dbClient.WithContext(ctx).Model(&model.ManagedAsset{}).
		Where("id = ?", asset.ID).
		Update("processing_error", reason).Error; err != nil {
		w.logger.Error().Err(err).Str("asset_id", asset.ID).Msg("记录处理失败原因时写库失败")
	}

	w.publishProcessFailed(asset, cause)
}

// publishProcessed 发布处理完成事件，失败只记日志.
func (w *Worker) publishProcessed(asset *model.ManagedAsset, width, height int, variants map[string]string) {
	pub := w.mqClient.Publisher()
	if pub == nil {
		return
	}

	err := queue.PublishProcessed(pub, queue.ProcessedPayload{
		Asset: queue.AssetRef{
			AssetID:   asset.ID,
			TenantID:  asset.TenantID,
			Bucket:    asset.Bucket,
			ObjectKey: asset.ObjectKey,
		},
		Width:    width,
		Height:   height,
		Variants: variants,
	}, queue.WithProducer("imagevault"))
	if err != nil {
		w.logger.Warn().Err(err).Str("asset_id", asset.ID).Msg("发布处理完成事件失败")
	}
}

// publishProcessFailed 发布处理失败事件，失败只记日志.
func (w *Worker) publishProcessFailed(asset *model.ManagedAsset, cause error) {
	pub := w.mqClient.Publisher()
	if pub == nil {
		return
	}

	err := queue.PublishProcessFailed(pub, queue.ProcessFailedPayload{
		Asset: queue.AssetRef{
			AssetID:   asset.ID,
			TenantID:  asset.TenantID,
			Bucket:    asset.Bucket,
			ObjectKey: asset.ObjectKey,
		},
		Reason: cause.Error(),
	}, queue.WithProducer("imagevault"))
	if err != nil {
		w.logger.Warn().Err(err).Str("asset_id", asset.ID).Msg("发布处理失败事件失败")
	}
}
