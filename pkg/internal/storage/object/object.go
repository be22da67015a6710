// Package object 抽象对象存储后端：同一接口覆盖云端（S3/MinIO）与本地目录两种实现.
// 模式在进程启动时确定一次（强制本地标志或缺失 bucket 配置），调用方只依赖 Backend 接口.
package object

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/yeisme/imagevault/pkg/configs"
)

// ObjectInfo 对象元数据，Head 的返回值.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// PresignedUpload 签名上传槽位.
type PresignedUpload struct {
	URL             string
	RequiredHeaders map[string]string
	ExpireAt        time.Time
}

// New 按配置选择后端实现，进程启动时调用一次.
func New(ctx context.Context, cfg configs.StorageConfig) (Backend, error) {
	if cfg.IsLocalMode() {
		return NewLocal(cfg)
	}

	return NewS3(ctx, cfg)
}

// Backend 对象存储后端统一接口.
//
// 约定：
//   - Head 在对象不存在时返回 (nil, nil)，不作为错误
//   - Upload 幂等，同键同内容覆盖安全，返回公共访问 URL
//   - PresignPut 本地模式不支持，直接返回错误（开发环境走 Upload 中转路径）
type Backend interface {
	// PresignPut 为指定对象键签发限时上传 URL，约束到精确的键与内容类型
	PresignPut(ctx context.Context, key, contentType string, expire time.Duration) (*PresignedUpload, error)
	// Head 查询对象元数据；对象缺失返回 (nil, nil)
	Head(ctx context.Context, key string) (*ObjectInfo, error)
	// Download 读取对象全部字节
	Download(ctx context.Context, key string) ([]byte, error)
	// Upload 写入对象并返回公共 URL
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	// PublicURL 根据当前配置计算对象公共 URL
	PublicURL(key string) string
	// Bucket 返回存储容器标识（本地模式为 "local"）
	Bucket() string
	// Mode 返回后端模式标识，用于日志
	Mode() string
}

// VariantKey 由原图对象键派生兄弟键：..._orig.png + "sm" -> ..._sm.jpg.
// 衍生规格一律是 JPEG，扩展名固定为 .jpg.
func VariantKey(origKey, name string) string {
	dir, base := path.Split(origKey)

	if idx := strings.LastIndex(base, "_orig."); idx >= 0 {
		return dir + base[:idx] + "_" + name + ".jpg"
	}

	// 非标准键兜底：去扩展名后追加后缀
	ext := path.Ext(base)

	return dir + strings.TrimSuffix(base, ext) + "_" + name + ".jpg"
}
