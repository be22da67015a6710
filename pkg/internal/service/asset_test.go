package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/imagevault/pkg/configs"
	"github.com/yeisme/imagevault/pkg/internal/model"
	dbc "github.com/yeisme/imagevault/pkg/internal/storage/db"
	"github.com/yeisme/imagevault/pkg/internal/storage/object"
	"github.com/yeisme/imagevault/pkg/internal/types"
)

// fakeBackend 内存对象存储，测试用.
type fakeBackend struct {
	objects map[string][]byte
	ctypes  map[string]string
	local   bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		objects: make(map[string][]byte),
		ctypes:  make(map[string]string),
	}
}

func (f *fakeBackend) PresignPut(_ context.Context, key, contentType string, expire time.Duration) (*object.PresignedUpload, error) {
	if f.local {
		return nil, object.ErrPresignUnsupported
	}

	return &object.PresignedUpload{
		URL:             "https://storage.test/" + key + "?signed",
		RequiredHeaders: map[string]string{"Content-Type": contentType},
		ExpireAt:        time.Now().UTC().Add(expire),
	}, nil
}

func (f *fakeBackend) Head(_ context.Context, key string) (*object.ObjectInfo, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, nil
	}

	return &object.ObjectInfo{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: f.ctypes[key],
	}, nil
}

func (f *fakeBackend) Download(_ context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}

	return data, nil
}

func (f *fakeBackend) Upload(_ context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return "", err
	}

	f.objects[key] = buf.Bytes()
	f.ctypes[key] = contentType

	return f.PublicURL(key), nil
}

func (f *fakeBackend) PublicURL(key string) string { return "https://cdn.test/" + key }

func (f *fakeBackend) Bucket() string { return "test-bucket" }

func (f *fakeBackend) Mode() string { return "fake" }

// put 直接写入对象，模拟客户端直传完成.
func (f *fakeBackend) put(key string, size int) {
	f.objects[key] = make([]byte, size)
	f.ctypes[key] = "image/jpeg"
}

func setupService(t *testing.T) (*AssetService, *fakeBackend) {
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
	cfg.Asset.MaxSizeBytes = 20 << 20
	cfg.Asset.SizeToleranceBytes = 256 << 10
	cfg.Asset.PresignExpireMin = 15
	cfg.Storage.Env = "test"

	backend := newFakeBackend()

	return &AssetService{
		objBackend: backend,
		dbClient:   &dbc.Client{DB: gdb},
		mqClient:   nil, // 无 MQ：入队失败应被吞掉并记录 processing_error
	}, backend
}

func presignOne(t *testing.T, svc *AssetService, tenant, user string) *types.PresignAssetResponse {
	t.Helper()

	resp, err := svc.Presign(context.Background(), tenant, user, &types.PresignAssetRequest{
		ResourceType: "event",
		MimeType:     "image/jpeg",
		Size:         1024,
	})
	if err != nil {
		t.Fatalf("Presign failed: %v", err)
	}

	return resp
}

// TestPresignObjectKeyTemplate 测试对象键遵循 {env}/{tenant}/{type}/{yyyy}/{mm}/{dd}/{uuid}_orig.{ext} 模板且互不相同.
func TestPresignObjectKeyTemplate(t *testing.T) {
	svc, _ := setupService(t)

	keyPattern := regexp.MustCompile(
		`^test/t1/event/\d{4}/\d{2}/\d{2}/[0-9a-f-]{36}_orig\.jpg$`)

	first := presignOne(t, svc, "t1", "u1")
	second := presignOne(t, svc, "t1", "u1")

	for _, resp := range []*types.PresignAssetResponse{first, second} {
		if !keyPattern.MatchString(resp.ObjectKey) {
			t.Errorf("object key %q does not match template", resp.ObjectKey)
		}

		if resp.AssetID == "" || resp.URL == "" {
			t.Errorf("incomplete presign response: %+v", resp)
		}
	}

	if first.ObjectKey == second.ObjectKey {
		t.Errorf("two presigns produced the same object key %q", first.ObjectKey)
	}
}

// TestPresignValidation 测试资源类型/内容类型/大小校验.
func TestPresignValidation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  types.PresignAssetRequest
		code Code
	}{
		{"unknown resource type", types.PresignAssetRequest{ResourceType: "blog", MimeType: "image/jpeg", Size: 1024}, CodeInvalidArgument},
		{"unknown mime type", types.PresignAssetRequest{ResourceType: "event", MimeType: "image/gif", Size: 1024}, CodeInvalidArgument},
		{"over size limit", types.PresignAssetRequest{ResourceType: "event", MimeType: "image/jpeg", Size: 21 << 20}, CodeInvalidArgument},
	}

	for _, tc := range cases {
		_, err := svc.Presign(ctx, "t1", "u1", &tc.req)
		if err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
			continue
		}

		if got := CodeOf(err); got != tc.code {
			t.Errorf("%s: code = %s, want %s", tc.name, got, tc.code)
		}
	}

	// 身份缺失
	if _, err := svc.Presign(ctx, "", "u1", &types.PresignAssetRequest{
		ResourceType: "event", MimeType: "image/jpeg", Size: 1024,
	}); CodeOf(err) != CodeUnauthorized {
		t.Errorf("missing tenant: code = %s, want %s", CodeOf(err), CodeUnauthorized)
	}
}

// TestPresignLocalModeFails 测试本地模式下预签名直接失败.
func TestPresignLocalModeFails(t *testing.T) {
	svc, backend := setupService(t)
	backend.local = true

	_, err := svc.Presign(context.Background(), "t1", "u1", &types.PresignAssetRequest{
		ResourceType: "event", MimeType: "image/jpeg", Size: 1024,
	})
	if err == nil {
		t.Fatal("expected error in local mode, got nil")
	}

	if got := CodeOf(err); got != CodeInvalidArgument {
		t.Errorf("code = %s, want %s", got, CodeInvalidArgument)
	}
}

// TestConfirmUpload 测试确认流程：状态推进、元数据落库、无 MQ 时记录 processing_error.
func TestConfirmUpload(t *testing.T) {
	svc, backend := setupService(t)
	ctx := context.Background()

	resp := presignOne(t, svc, "t1", "u1")
	backend.put(resp.ObjectKey, 1024)

	hash := "sha256:abc"
	name := "photo.jpg"

	confirmed, err := svc.ConfirmUpload(ctx, "t1", "u1", &types.ConfirmUploadRequest{
		AssetID:      resp.AssetID,
		Size:         1024,
		Hash:         &hash,
		OriginalName: &name,
	})
	if err != nil {
		t.Fatalf("ConfirmUpload failed: %v", err)
	}

	if confirmed.Status != string(model.AssetStatusUploaded) {
		t.Errorf("status = %s, want uploaded", confirmed.Status)
	}

	if confirmed.Variants != nil {
		t.Errorf("variants should be nil before processing, got %v", confirmed.Variants)
	}

	view, err := svc.Get(ctx, "t1", "u1", resp.AssetID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if view.Hash == nil || *view.Hash != hash {
		t.Errorf("hash not persisted, got %v", view.Hash)
	}

	// 无 MQ 客户端：入队失败被吞掉，原因写入 processing_error
	if view.ProcessingError == "" {
		t.Error("processing_error should record the enqueue failure")
	}

	if !strings.Contains(view.ProcessingError, "enqueue failed") {
		t.Errorf("processing_error = %q, want enqueue failure reason", view.ProcessingError)
	}
}

// TestConfirmUploadSizeTolerance 测试上报大小与实际大小的容差边界.
func TestConfirmUploadSizeTolerance(t *testing.T) {
	svc, backend := setupService(t)
	ctx := context.Background()

	const stored = 1 << 20

	cases := []struct {
		name     string
		reported int64
		wantErr  bool
	}{
		{"exact", stored, false},
		{"at positive boundary", stored - (256 << 10), false},
		{"at negative boundary", stored + (256 << 10), false},
		{"beyond positive boundary", stored - (256 << 10) - 1, true},
		{"beyond negative boundary", stored + (256 << 10) + 1, true},
	}

	for _, tc := range cases {
		resp := presignOne(t, svc, "t1", "u1")
		backend.put(resp.ObjectKey, stored)

		_, err := svc.ConfirmUpload(ctx, "t1", "u1", &types.ConfirmUploadRequest{
			AssetID: resp.AssetID,
			Size:    tc.reported,
		})

		if tc.wantErr && CodeOf(err) != CodeInvalidArgument {
			t.Errorf("%s: expected invalid_argument, got %v", tc.name, err)
		}

		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
	}
}

// TestConfirmUploadReportedSizeBounds 测试上报大小本身必须落在 (0, 上限] 内，
// 与实际落盘大小无关：即使差值在容差内，超限的上报值也要拒绝.
func TestConfirmUploadReportedSizeBounds(t *testing.T) {
	svc, backend := setupService(t)
	ctx := context.Background()

	const limit = 20 << 20

	cases := []struct {
		name     string
		stored   int64
		reported int64
	}{
		{"one byte over limit", limit, limit + 1},
		{"zero", 1024, 0},
		{"negative", 1024, -1},
	}

	for _, tc := range cases {
		resp := presignOne(t, svc, "t1", "u1")
		backend.put(resp.ObjectKey, int(tc.stored))

		_, err := svc.ConfirmUpload(ctx, "t1", "u1", &types.ConfirmUploadRequest{
			AssetID: resp.AssetID,
			Size:    tc.reported,
		})
		if CodeOf(err) != CodeInvalidArgument {
			t.Errorf("%s: code = %s, want %s", tc.name, CodeOf(err), CodeInvalidArgument)
		}
	}
}

// TestConfirmUploadMissingObject 测试对象不在存储中时返回 invalid_argument.
func TestConfirmUploadMissingObject(t *testing.T) {
	svc, _ := setupService(t)

	resp := presignOne(t, svc, "t1", "u1")

	_, err := svc.ConfirmUpload(context.Background(), "t1", "u1", &types.ConfirmUploadRequest{
		AssetID: resp.AssetID,
		Size:    1024,
	})
	if CodeOf(err) != CodeInvalidArgument {
		t.Errorf("code = %s, want %s", CodeOf(err), CodeInvalidArgument)
	}
}

// TestOwnershipChecks 测试跨租户/跨用户访问被拒绝.
func TestOwnershipChecks(t *testing.T) {
	svc, backend := setupService(t)
	ctx := context.Background()

	resp := presignOne(t, svc, "t1", "u1")
	backend.put(resp.ObjectKey, 1024)

	// 跨租户确认
	_, err := svc.ConfirmUpload(ctx, "t2", "u1", &types.ConfirmUploadRequest{
		AssetID: resp.AssetID, Size: 1024,
	})
	if CodeOf(err) != CodeForbidden {
		t.Errorf("cross-tenant confirm: code = %s, want %s", CodeOf(err), CodeForbidden)
	}

	// 同租户他人确认
	_, err = svc.ConfirmUpload(ctx, "t1", "u2", &types.ConfirmUploadRequest{
		AssetID: resp.AssetID, Size: 1024,
	})
	if CodeOf(err) != CodeForbidden {
		t.Errorf("cross-user confirm: code = %s, want %s", CodeOf(err), CodeForbidden)
	}

	// 跨租户读取
	if _, err := svc.Get(ctx, "t2", "u1", resp.AssetID); CodeOf(err) != CodeForbidden {
		t.Errorf("cross-tenant get: code = %s, want %s", CodeOf(err), CodeForbidden)
	}

	// 不存在的资产
	if _, err := svc.Get(ctx, "t1", "u1", "no-such-id"); CodeOf(err) != CodeNotFound {
		t.Errorf("missing asset: code = %s, want %s", CodeOf(err), CodeNotFound)
	}
}

// TestBindIdempotent 测试绑定逐字段合并且重复绑定幂等.
func TestBindIdempotent(t *testing.T) {
	svc, backend := setupService(t)
	ctx := context.Background()

	resp := presignOne(t, svc, "t1", "u1")
	backend.put(resp.ObjectKey, 1024)

	if _, err := svc.ConfirmUpload(ctx, "t1", "u1", &types.ConfirmUploadRequest{
		AssetID: resp.AssetID, Size: 1024,
	}); err != nil {
		t.Fatalf("ConfirmUpload failed: %v", err)
	}

	role := "cover"
	req := &types.BindAssetRequest{
		AssetID:      resp.AssetID,
		ResourceType: "event",
		ResourceID:   "evt-42",
		Role:         &role,
	}

	first, err := svc.Bind(ctx, "t1", "u1", req)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	second, err := svc.Bind(ctx, "t1", "u1", req)
	if err != nil {
		t.Fatalf("repeated Bind failed: %v", err)
	}

	for _, view := range []*types.AssetView{first, second} {
		if view.ResourceID == nil || *view.ResourceID != "evt-42" {
			t.Errorf("resource_id = %v, want evt-42", view.ResourceID)
		}

		if view.Role == nil || *view.Role != "cover" {
			t.Errorf("role = %v, want cover", view.Role)
		}
	}

	// 不带 role 的再次绑定保留原 role
	third, err := svc.Bind(ctx, "t1", "u1", &types.BindAssetRequest{
		AssetID: resp.AssetID, ResourceType: "event", ResourceID: "evt-43",
	})
	if err != nil {
		t.Fatalf("Bind without role failed: %v", err)
	}

	if third.Role == nil || *third.Role != "cover" {
		t.Errorf("role should be preserved, got %v", third.Role)
	}

	if third.ResourceID == nil || *third.ResourceID != "evt-43" {
		t.Errorf("resource_id = %v, want evt-43", third.ResourceID)
	}
}

// TestSoftDelete 测试软删除后仍可读取且重复删除幂等.
func TestSoftDelete(t *testing.T) {
	svc, backend := setupService(t)
	ctx := context.Background()

	resp := presignOne(t, svc, "t1", "u1")
	backend.put(resp.ObjectKey, 1024)

	deleted, err := svc.Delete(ctx, "t1", "u1", resp.AssetID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if deleted.Status != string(model.AssetStatusDeleted) || deleted.DeletedAt == nil {
		t.Errorf("Delete view: status = %s, deleted_at = %v, want deleted with timestamp",
			deleted.Status, deleted.DeletedAt)
	}

	// 重复删除幂等，仍返回已删除视图
	again, err := svc.Delete(ctx, "t1", "u1", resp.AssetID)
	if err != nil {
		t.Fatalf("repeated Delete failed: %v", err)
	}

	if again.Status != string(model.AssetStatusDeleted) {
		t.Errorf("repeated Delete view: status = %s, want deleted", again.Status)
	}

	view, err := svc.Get(ctx, "t1", "u1", resp.AssetID)
	if err != nil {
		t.Fatalf("Get after delete failed: %v", err)
	}

	if view.Status != string(model.AssetStatusDeleted) {
		t.Errorf("status = %s, want deleted", view.Status)
	}

	if view.DeletedAt == nil {
		t.Error("deleted_at should be set")
	}

	// 删除后不可确认/绑定
	_, err = svc.ConfirmUpload(ctx, "t1", "u1", &types.ConfirmUploadRequest{
		AssetID: resp.AssetID, Size: 1024,
	})
	if CodeOf(err) != CodeInvalidArgument {
		t.Errorf("confirm after delete: code = %s, want %s", CodeOf(err), CodeInvalidArgument)
	}

	_, err = svc.Bind(ctx, "t1", "u1", &types.BindAssetRequest{
		AssetID: resp.AssetID, ResourceType: "event", ResourceID: "evt-1",
	})
	if CodeOf(err) != CodeInvalidArgument {
		t.Errorf("bind after delete: code = %s, want %s", CodeOf(err), CodeInvalidArgument)
	}
}

// TestListExcludesDeleted 测试列表默认排除软删除资产.
func TestListExcludesDeleted(t *testing.T) {
	svc, backend := setupService(t)
	ctx := context.Background()

	keep := presignOne(t, svc, "t1", "u1")
	gone := presignOne(t, svc, "t1", "u1")
	backend.put(keep.ObjectKey, 1024)
	backend.put(gone.ObjectKey, 1024)

	if _, err := svc.Delete(ctx, "t1", "u1", gone.AssetID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	list, err := svc.List(ctx, "t1", "u1", &types.ListAssetsRequest{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if list.Total != 1 || len(list.Assets) != 1 {
		t.Fatalf("total = %d, assets = %d, want 1/1", list.Total, len(list.Assets))
	}

	if list.Assets[0].AssetID != keep.AssetID {
		t.Errorf("listed asset = %s, want %s", list.Assets[0].AssetID, keep.AssetID)
	}

	all, err := svc.List(ctx, "t1", "u1", &types.ListAssetsRequest{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("List include_deleted failed: %v", err)
	}

	if all.Total != 2 {
		t.Errorf("include_deleted total = %d, want 2", all.Total)
	}
}

// TestUploadBuffer 测试服务端中转上传路径.
func TestUploadBuffer(t *testing.T) {
	svc, backend := setupService(t)
	backend.local = true

	data := bytes.Repeat([]byte{0xFF}, 2048)

	resp, err := svc.UploadBuffer(context.Background(), "t1", "u1",
		"user-avatar", "avatar", "me.jpg", "image/jpeg",
		bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("UploadBuffer failed: %v", err)
	}

	if resp.Status != string(model.AssetStatusUploaded) {
		t.Errorf("status = %s, want uploaded", resp.Status)
	}

	if resp.PublicURL == "" {
		t.Error("public_url is empty")
	}

	view, err := svc.Get(context.Background(), "t1", "u1", resp.AssetID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if view.OriginalName == nil || *view.OriginalName != "me.jpg" {
		t.Errorf("original_name = %v, want me.jpg", view.OriginalName)
	}

	if _, ok := backend.objects[view.ObjectKey]; !ok {
		t.Error("object bytes not stored in backend")
	}
}
