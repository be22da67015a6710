package worker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/imagevault/pkg/configs"
	"github.com/yeisme/imagevault/pkg/internal/model"
	dbc "github.com/yeisme/imagevault/pkg/internal/storage/db"
	"github.com/yeisme/imagevault/pkg/internal/storage/object"
	nlog "github.com/yeisme/imagevault/pkg/log"
)

// fakeBackend 内存对象存储，测试用.
type fakeBackend struct {
	objects map[string][]byte
	failPut bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{objects: make(map[string][]byte)}
}

func (f *fakeBackend) PresignPut(_ context.Context, key, contentType string, expire time.Duration) (*object.PresignedUpload, error) {
	return nil, object.ErrPresignUnsupported
}

func (f *fakeBackend) Head(_ context.Context, key string) (*object.ObjectInfo, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, nil
	}

	return &object.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeBackend) Download(_ context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}

	return data, nil
}

func (f *fakeBackend) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if f.failPut {
		return "", fmt.Errorf("simulated upload failure")
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return "", err
	}

	f.objects[key] = buf.Bytes()

	return f.PublicURL(key), nil
}

func (f *fakeBackend) PublicURL(key string) string { return "https://cdn.test/" + key }

func (f *fakeBackend) Bucket() string { return "test-bucket" }

func (f *fakeBackend) Mode() string { return "fake" }

func setupWorker(t *testing.T) (*Worker, *fakeBackend, *gorm.DB) {
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
	cfg.Asset.VariantWidthSm = 400
	cfg.Asset.VariantWidthMd = 800
	cfg.Asset.VariantWidthLg = 1600
	cfg.Asset.OriginalJPEGQuality = 90
	cfg.Asset.VariantJPEGQuality = 85

	backend := newFakeBackend()

	return &Worker{
		objBackend: backend,
		dbClient:   &dbc.Client{DB: gdb},
		mqClient:   nil,
		logger:     *nlog.Logger(),
	}, backend, gdb
}

// makePNG 生成指定尺寸的纯色 PNG.
func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	return buf.Bytes()
}

var seedSeq int

func seedAsset(t *testing.T, gdb *gorm.DB, key string, status model.AssetStatus, mime string) *model.ManagedAsset {
	t.Helper()

	seedSeq++

	asset := &model.ManagedAsset{
		ID:               fmt.Sprintf("01TESTASSET%05d", seedSeq),
		TenantID:         "t1",
		OwnerID:          "u1",
		ResourceType:     "event",
		Bucket:           "test-bucket",
		ObjectKey:        key,
		MimeType:         mime,
		Size:             1024,
		Status:           status,
		ModerationStatus: model.ModerationPending,
		Visibility:       model.VisibilityPublic,
	}

	if err := gdb.Create(asset).Error; err != nil {
		t.Fatalf("seed asset: %v", err)
	}

	return asset
}

// TestProcessGeneratesVariants 测试完整流水线：宽图生成四个对象并推进到 ready.
func TestProcessGeneratesVariants(t *testing.T) {
	w, backend, gdb := setupWorker(t)
	ctx := context.Background()

	key := "test/t1/event/2025/09/01/abc123_orig.png"
	backend.objects[key] = makePNG(t, 2000, 1000)
	asset := seedAsset(t, gdb, key, model.AssetStatusUploaded, "image/png")

	if err := w.Process(ctx, asset.ID); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	var got model.ManagedAsset
	if err := gdb.First(&got, "id = ?", asset.ID).Error; err != nil {
		t.Fatalf("reload asset: %v", err)
	}

	if got.Status != model.AssetStatusReady {
		t.Errorf("status = %s, want ready", got.Status)
	}

	if got.ModerationStatus != model.ModerationApproved {
		t.Errorf("moderation_status = %s, want approved", got.ModerationStatus)
	}

	if got.Width == nil || *got.Width != 2000 || got.Height == nil || *got.Height != 1000 {
		t.Errorf("dimensions = %v x %v, want 2000 x 1000", got.Width, got.Height)
	}

	var variants map[string]string
	if err := sonic.UnmarshalString(got.VariantsJSON, &variants); err != nil {
		t.Fatalf("decode variants: %v", err)
	}

	wantWidths := map[string]int{"original": 2000, "sm": 400, "md": 800, "lg": 1600}
	for name, wantWidth := range wantWidths {
		vkey, ok := variants[name]
		if !ok {
			t.Errorf("variant %s missing from map", name)
			continue
		}

		if !strings.HasSuffix(vkey, ".jpg") {
			t.Errorf("variant %s key %q is not jpg", name, vkey)
		}

		data, ok := backend.objects[vkey]
		if !ok {
			t.Errorf("variant %s object %q not uploaded", name, vkey)
			continue
		}

		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			t.Errorf("variant %s is not valid jpeg: %v", name, err)
			continue
		}

		if img.Bounds().Dx() != wantWidth {
			t.Errorf("variant %s width = %d, want %d", name, img.Bounds().Dx(), wantWidth)
		}
	}
}

// TestProcessNeverUpscales 测试窄图各档位保持原宽.
func TestProcessNeverUpscales(t *testing.T) {
	w, backend, gdb := setupWorker(t)
	ctx := context.Background()

	key := "test/t1/event/2025/09/01/small1_orig.png"
	backend.objects[key] = makePNG(t, 300, 200)
	asset := seedAsset(t, gdb, key, model.AssetStatusUploaded, "image/png")

	if err := w.Process(ctx, asset.ID); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	var got model.ManagedAsset
	_ = gdb.First(&got, "id = ?", asset.ID).Error

	var variants map[string]string
	_ = sonic.UnmarshalString(got.VariantsJSON, &variants)

	for _, name := range []string{"sm", "md", "lg"} {
		data := backend.objects[variants[name]]

		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("variant %s decode: %v", name, err)
		}

		if img.Bounds().Dx() != 300 {
			t.Errorf("variant %s width = %d, want 300 (no upscale)", name, img.Bounds().Dx())
		}
	}
}

// TestProcessFailureLeavesUploaded 测试失败路径：资产停留在 uploaded，记录 processing_error.
func TestProcessFailureLeavesUploaded(t *testing.T) {
	w, backend, gdb := setupWorker(t)
	ctx := context.Background()

	// 解码失败
	badKey := "test/t1/event/2025/09/01/corrupt_orig.png"
	backend.objects[badKey] = []byte("not an image")
	bad := seedAsset(t, gdb, badKey, model.AssetStatusUploaded, "image/png")

	if err := w.Process(ctx, bad.ID); err == nil {
		t.Fatal("expected decode error, got nil")
	}

	var got model.ManagedAsset
	_ = gdb.First(&got, "id = ?", bad.ID).Error

	if got.Status != model.AssetStatusUploaded {
		t.Errorf("status = %s, want uploaded after failure", got.Status)
	}

	if got.VariantsJSON != "" {
		t.Errorf("variants should stay empty, got %q", got.VariantsJSON)
	}

	if !strings.Contains(got.ProcessingError, "processing failed") {
		t.Errorf("processing_error = %q, want failure reason", got.ProcessingError)
	}

	// 上传失败
	upKey := "test/t1/event/2025/09/01/upfail_orig.png"
	backend.objects[upKey] = makePNG(t, 500, 500)
	upAsset := seedAsset(t, gdb, upKey, model.AssetStatusUploaded, "image/png")
	backend.failPut = true

	if err := w.Process(ctx, upAsset.ID); err == nil {
		t.Fatal("expected upload error, got nil")
	}

	_ = gdb.First(&got, "id = ?", upAsset.ID).Error
	if got.Status != model.AssetStatusUploaded {
		t.Errorf("status = %s, want uploaded after upload failure", got.Status)
	}
}

// TestProcessSkipsMissingAndNonUploaded 测试缺失资产与非 uploaded 状态静默跳过.
func TestProcessSkipsMissingAndNonUploaded(t *testing.T) {
	w, backend, gdb := setupWorker(t)
	ctx := context.Background()

	if err := w.Process(ctx, "no-such-asset"); err != nil {
		t.Errorf("missing asset should be skipped silently, got %v", err)
	}

	key := "test/t1/event/2025/09/01/dele01_orig.png"
	backend.objects[key] = makePNG(t, 100, 100)
	asset := seedAsset(t, gdb, key, model.AssetStatusDeleted, "image/png")

	if err := w.Process(ctx, asset.ID); err != nil {
		t.Errorf("deleted asset should be skipped silently, got %v", err)
	}

	var got model.ManagedAsset
	_ = gdb.First(&got, "id = ?", asset.ID).Error

	if got.Status != model.AssetStatusDeleted {
		t.Errorf("status = %s, deleted asset must not be touched", got.Status)
	}
}
