package object

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/yeisme/imagevault/pkg/configs"
)

func newTestLocal(t *testing.T) *LocalBackend {
	t.Helper()

	backend, err := NewLocal(configs.StorageConfig{
		LocalRoot:      t.TempDir(),
		LocalURLPrefix: "http://localhost:8080/_uploads/",
	})
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}

	return backend
}

// TestLocalPresignUnsupported 测试本地模式预签名直接失败.
func TestLocalPresignUnsupported(t *testing.T) {
	backend := newTestLocal(t)

	_, err := backend.PresignPut(context.Background(), "a/b.jpg", "image/jpeg", time.Minute)
	if err != ErrPresignUnsupported {
		t.Errorf("PresignPut error = %v, want ErrPresignUnsupported", err)
	}
}

// TestLocalHeadMissing 测试对象缺失时 Head 返回 (nil, nil).
func TestLocalHeadMissing(t *testing.T) {
	backend := newTestLocal(t)

	info, err := backend.Head(context.Background(), "no/such/object.jpg")
	if err != nil {
		t.Fatalf("Head returned error for missing object: %v", err)
	}

	if info != nil {
		t.Errorf("Head = %+v, want nil for missing object", info)
	}
}

// TestLocalUploadDownloadRoundTrip 测试上传后可读回且 Head 报告正确大小.
func TestLocalUploadDownloadRoundTrip(t *testing.T) {
	backend := newTestLocal(t)
	ctx := context.Background()

	data := []byte("hello imagevault")
	key := "dev/t1/event/2025/09/01/abc_orig.jpg"

	url, err := backend.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "image/jpeg")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if url != "http://localhost:8080/_uploads/"+key {
		t.Errorf("public url = %q", url)
	}

	info, err := backend.Head(ctx, key)
	if err != nil || info == nil {
		t.Fatalf("Head failed: info=%v err=%v", info, err)
	}

	if info.Size != int64(len(data)) {
		t.Errorf("size = %d, want %d", info.Size, len(data))
	}

	got, err := backend.Download(ctx, key)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if !bytes.Equal(got, data) {
		t.Errorf("downloaded bytes differ from uploaded")
	}

	// 同键覆盖安全
	if _, err := backend.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "image/jpeg"); err != nil {
		t.Errorf("re-upload same key failed: %v", err)
	}
}

// TestLocalPathEscapeRejected 测试越界对象键被拒绝.
func TestLocalPathEscapeRejected(t *testing.T) {
	backend := newTestLocal(t)
	ctx := context.Background()

	for _, key := range []string{"../outside.jpg", "a/../../outside.jpg"} {
		if _, err := backend.Upload(ctx, key, bytes.NewReader([]byte("x")), 1, "image/jpeg"); err == nil {
			t.Errorf("Upload(%q) should be rejected", key)
		}

		if _, err := backend.Download(ctx, key); err == nil {
			t.Errorf("Download(%q) should be rejected", key)
		}
	}
}

// TestVariantKey 测试兄弟键派生.
func TestVariantKey(t *testing.T) {
	cases := []struct {
		orig, name, want string
	}{
		{"dev/t1/event/2025/09/01/abc_orig.png", "sm", "dev/t1/event/2025/09/01/abc_sm.jpg"},
		{"dev/t1/event/2025/09/01/abc_orig.heic", "orig", "dev/t1/event/2025/09/01/abc_orig.jpg"},
		{"legacy/pic.png", "md", "legacy/pic_md.jpg"},
	}

	for _, tc := range cases {
		if got := VariantKey(tc.orig, tc.name); got != tc.want {
			t.Errorf("VariantKey(%q, %q) = %q, want %q", tc.orig, tc.name, got, tc.want)
		}
	}
}
