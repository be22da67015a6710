package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/imagevault/pkg/configs"
	"github.com/yeisme/imagevault/pkg/internal/model"
	dbc "github.com/yeisme/imagevault/pkg/internal/storage/db"
	"github.com/yeisme/imagevault/pkg/queue"
)

func setupSweep(t *testing.T) *dbc.Client {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := gdb.AutoMigrate(&model.ManagedAsset{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := configs.GetConfig()
	cfg.Asset.SweepAfterMin = 60
	cfg.Asset.SweepBatchSize = 100

	return &dbc.Client{DB: gdb}
}

var seedSeq int

// seedAsset 插入指定状态的资产并把 updated_at 改到给定时刻.
func seedAsset(t *testing.T, db *dbc.Client, status model.AssetStatus, updatedAt time.Time) string {
	t.Helper()

	seedSeq++
	id := fmt.Sprintf("01SWEEPASSET%04d", seedSeq)

	asset := model.ManagedAsset{
		ID:               id,
		TenantID:         "t1",
		OwnerID:          "u1",
		ResourceType:     "event",
		Bucket:           "test-bucket",
		ObjectKey:        fmt.Sprintf("test/t1/event/2025/01/01/%s_orig.jpg", id),
		MimeType:         "image/jpeg",
		Size:             1024,
		Status:           status,
		ModerationStatus: model.ModerationPending,
		Visibility:       model.VisibilityPublic,
	}
	if err := db.Create(&asset).Error; err != nil {
		t.Fatalf("seed asset: %v", err)
	}

	if err := db.Model(&asset).Update("updated_at", updatedAt).Error; err != nil {
		t.Fatalf("backdate asset: %v", err)
	}

	return id
}

// TestSweepRequeuesStuckAssets 滞留的 uploaded 资产被重新入队，其它状态不受影响.
func TestSweepRequeuesStuckAssets(t *testing.T) {
	db := setupSweep(t)
	old := time.Now().UTC().Add(-2 * time.Hour)
	fresh := time.Now().UTC()

	stuckID := seedAsset(t, db, model.AssetStatusUploaded, old)
	seedAsset(t, db, model.AssetStatusUploaded, fresh)
	seedAsset(t, db, model.AssetStatusReady, old)
	seedAsset(t, db, model.AssetStatusDeleted, old)

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := pubsub.Subscribe(ctx, queue.TopicProcessRequested)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	runSweepStuckAssets(ctx, db, pubsub)

	var msg *message.Message
	select {
	case msg = <-ch:
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no process request published for stuck asset")
	}

	env, err := queue.ParseProcessRequested(msg)
	if err != nil {
		t.Fatalf("parse message: %v", err)
	}

	if env.Payload.AssetID != stuckID {
		t.Errorf("requeued asset = %q, want %q", env.Payload.AssetID, stuckID)
	}

	if env.Payload.Attempt != 2 {
		t.Errorf("attempt = %d, want 2", env.Payload.Attempt)
	}

	// 只应有一条消息
	select {
	case extra := <-ch:
		e, _ := queue.ParseProcessRequested(extra)
		t.Errorf("unexpected extra requeue for asset %q", e.Payload.AssetID)
	case <-time.After(100 * time.Millisecond):
	}

	// 重新入队后 updated_at 被刷新，下一轮巡检不再命中
	var stuck model.ManagedAsset
	if err := db.First(&stuck, "id = ?", stuckID).Error; err != nil {
		t.Fatalf("reload stuck asset: %v", err)
	}

	if time.Since(stuck.UpdatedAt) > time.Minute {
		t.Errorf("updated_at not refreshed after requeue: %v", stuck.UpdatedAt)
	}
}

// TestSweepWithoutPublisher MQ 缺席时巡检静默跳过，资产保持不变.
func TestSweepWithoutPublisher(t *testing.T) {
	db := setupSweep(t)
	old := time.Now().UTC().Add(-2 * time.Hour)
	stuckID := seedAsset(t, db, model.AssetStatusUploaded, old)

	runSweepStuckAssets(context.Background(), db, nil)

	var stuck model.ManagedAsset
	if err := db.First(&stuck, "id = ?", stuckID).Error; err != nil {
		t.Fatalf("reload asset: %v", err)
	}

	if stuck.Status != model.AssetStatusUploaded {
		t.Errorf("status = %q, want uploaded", stuck.Status)
	}

	// updated_at 不应被刷新，留待下一轮巡检
	if time.Since(stuck.UpdatedAt) < time.Hour {
		t.Errorf("updated_at unexpectedly refreshed: %v", stuck.UpdatedAt)
	}
}
