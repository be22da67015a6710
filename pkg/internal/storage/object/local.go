package object

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yeisme/imagevault/pkg/configs"
	nlog "github.com/yeisme/imagevault/pkg/log"
)

// LocalBackend 本地目录实现，仅用于开发/离线环境.
// 预签名上传不受支持，上传必须走服务端中转（Upload）路径.
type LocalBackend struct {
	root   string
	prefix string
}

// ErrPresignUnsupported 本地模式不支持签名直传.
var ErrPresignUnsupported = fmt.Errorf("presigned upload not supported in local storage mode")

// NewLocal 初始化本地后端，root 不存在则创建.
func NewLocal(cfg configs.StorageConfig) (*LocalBackend, error) {
	root, err := filepath.Abs(cfg.LocalRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve local root: %w", err)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create local root %s: %w", root, err)
	}

	nlog.Logger().Info().Str("root", root).Msg("local storage backend initialized")

	return &LocalBackend{
		root:   root,
		prefix: strings.TrimSuffix(cfg.LocalURLPrefix, "/"),
	}, nil
}

// resolve 将对象键映射到沙箱内路径，拒绝越界.
func (b *LocalBackend) resolve(key string) (string, error) {
	p := filepath.Join(b.root, filepath.FromSlash(key))
	if !strings.HasPrefix(p, b.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("object key escapes storage root: %s", key)
	}

	return p, nil
}

// PresignPut 本地模式不支持.
func (b *LocalBackend) PresignPut(_ context.Context, _, _ string, _ time.Duration) (*PresignedUpload, error) {
	return nil, ErrPresignUnsupported
}

// Head 返回文件元数据，缺失时返回 (nil, nil).
func (b *LocalBackend) Head(_ context.Context, key string) (*ObjectInfo, error) {
	p, err := b.resolve(key)
	if err != nil {
		return nil, err
	}

	st, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("stat %s: %w", key, err)
	}

	return &ObjectInfo{
		Key:          key,
		Size:         st.Size(),
		LastModified: st.ModTime(),
	}, nil
}

// Download 读取文件内容.
func (b *LocalBackend) Download(_ context.Context, key string) ([]byte, error) {
	p, err := b.resolve(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	return data, nil
}

// Upload 原子写入：先写临时文件再 rename，保证同键覆盖安全.
func (b *LocalBackend) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	p, err := b.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create dir for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return "", fmt.Errorf("write %s: %w", key, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return "", fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())

		return "", fmt.Errorf("rename into place %s: %w", key, err)
	}

	return b.PublicURL(key), nil
}

// PublicURL 本地 HTTP 前缀 + 对象键.
func (b *LocalBackend) PublicURL(key string) string {
	return b.prefix + "/" + key
}

// Bucket 本地模式没有桶的概念，返回固定标识.
func (b *LocalBackend) Bucket() string { return "local" }

// Mode 返回模式标识.
func (b *LocalBackend) Mode() string { return "local" }
