// Package jobs 负责注册与实现业务定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/imagevault/pkg/configs"
	ctxPkg "github.com/yeisme/imagevault/pkg/context"
	"github.com/yeisme/imagevault/pkg/internal/model"
	"github.com/yeisme/imagevault/pkg/internal/storage"
	"github.com/yeisme/imagevault/pkg/internal/storage/db"
	"github.com/yeisme/imagevault/pkg/log"
	"github.com/yeisme/imagevault/pkg/queue"
	"github.com/yeisme/imagevault/pkg/scheduler"
)

// RegisterCronJobs 配置业务定时任务：
//   - 每 15 分钟扫描一次滞留在 uploaded 态的资产并重新入队
//
// 入队失败在 confirm-upload 时是被吞掉的（调用方不等队列），
// 这里的巡检就是那条约定的补偿路径.
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if mgr == nil {
		return fmt.Errorf("storage manager is nil")
	}

	// 将 storage manager 注入到 context，便于任务内使用
	baseCtx := ctxPkg.WithStorageManager(context.Background(), mgr)

	_ = sched.AddCron(JobAssetSweepStuck, CronAssetSweepStuck, func(ctx context.Context) {
		runSweepStuckAssets(ctx, mgr.GetDBClient(), mgr.GetMQClient().Publisher())
	}, baseCtx)

	return nil
}

// runSweepStuckAssets 把滞留超过阈值的 uploaded 资产重新投入处理队列。
// 单次最多处理一个批次，避免堆积时一次性风暴式入队。
func runSweepStuckAssets(ctx context.Context, dbClient *db.Client, pub message.Publisher) {
	l := log.Logger().With().Str("job", JobAssetSweepStuck).Logger()
	cfg := configs.GetConfig().Asset

	cutoff := time.Now().UTC().Add(-time.Duration(cfg.SweepAfterMin) * time.Minute)

	var stuck []model.ManagedAsset
	if err := dbClient.WithContext(ctx).
		Where("status = ? AND updated_at < ?", model.AssetStatusUploaded, cutoff).
		Order("updated_at ASC").
		Limit(cfg.SweepBatchSize).
		Find(&stuck).Error; err != nil {
		l.Error().Err(err).Msg("查询滞留资产失败")

		return
	}

	if len(stuck) == 0 {
		return
	}

	if pub == nil {
		l.Warn().Int("stuck", len(stuck)).Msg("MQ 不可用，滞留资产留待下一轮巡检")

		return
	}

	requeued := 0

	for i := range stuck {
		asset := &stuck[i]

		err := queue.PublishProcessRequested(pub, queue.ProcessRequestedPayload{
			AssetID: asset.ID,
			Attempt: 2,
		}, queue.WithProducer("imagevault"))
		if err != nil {
			l.Error().Err(err).Str("asset_id", asset.ID).Msg("重新入队失败")

			continue
		}

		requeued++

		// 刷新 updated_at，避免下一轮巡检立即再次命中
		if err := dbClient.WithContext(ctx).Model(asset).
			Update("updated_at", time.Now().UTC()).Error; err != nil {
			l.Error().Err(err).Str("asset_id", asset.ID).Msg("刷新巡检时间失败")
		}
	}

	l.Info().Int("stuck", len(stuck)).Int("requeued", requeued).Msg("滞留资产巡检完成")
}
