package object

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/imagevault/pkg/configs"
	nlog "github.com/yeisme/imagevault/pkg/log"
)

// S3Backend 基于 MinIO 客户端的云端实现.
type S3Backend struct {
	cli    *minio.Client
	cfg    configs.StorageConfig
	bucket string
}

// NewS3 初始化 MinIO 客户端，bucket 不存在则尝试创建.
func NewS3(ctx context.Context, cfg configs.StorageConfig) (*S3Backend, error) {
	endpoint := cfg.Endpoint
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			cfg.UseSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("imagevault", configs.AppVersion)

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}

	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}

		nlog.Logger().Info().Str("bucket", cfg.Bucket).Msg("bucket created")
	}

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("s3 backend connected")

	return &S3Backend{cli: cli, cfg: cfg, bucket: cfg.Bucket}, nil
}

// PresignPut 签发限时 PUT 上传 URL，约束 Content-Type.
func (b *S3Backend) PresignPut(ctx context.Context, key, contentType string, expire time.Duration) (*PresignedUpload, error) {
	u, err := b.cli.PresignedPutObject(ctx, b.bucket, key, expire)
	if err != nil {
		return nil, fmt.Errorf("presign put for %s: %w", key, err)
	}

	return &PresignedUpload{
		URL:             u.String(),
		RequiredHeaders: map[string]string{"Content-Type": contentType},
		ExpireAt:        time.Now().UTC().Add(expire),
	}, nil
}

// Head 查询对象元数据，NoSuchKey 归一化为 (nil, nil).
func (b *S3Backend) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	st, err := b.cli.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		var respErr minio.ErrorResponse
		if errors.As(err, &respErr) && (respErr.Code == "NoSuchKey" || respErr.StatusCode == 404) {
			return nil, nil
		}

		return nil, fmt.Errorf("stat object %s: %w", key, err)
	}

	return &ObjectInfo{
		Key:          key,
		Size:         st.Size,
		ContentType:  st.ContentType,
		ETag:         st.ETag,
		LastModified: st.LastModified,
	}, nil
}

// Download 读取对象全部内容.
func (b *S3Backend) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := b.cli.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}

	return data, nil
}

// Upload 覆盖写入对象并返回公共 URL.
func (b *S3Backend) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	opts := minio.PutObjectOptions{ContentType: contentType}

	if _, err := b.cli.PutObject(ctx, b.bucket, key, r, size, opts); err != nil {
		return "", fmt.Errorf("upload object %s: %w", key, err)
	}

	return b.PublicURL(key), nil
}

// UploadBytes 便捷字节上传.
func (b *S3Backend) UploadBytes(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return b.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
}

// PublicURL CDN 前缀优先，否则直连存储 URL.
func (b *S3Backend) PublicURL(key string) string {
	if b.cfg.CDNBaseURL != "" {
		return strings.TrimSuffix(b.cfg.CDNBaseURL, "/") + "/" + key
	}

	return fmt.Sprintf("%s/%s/%s", b.cfg.GetEndpointURL(), b.bucket, key)
}

// Bucket 返回桶名.
func (b *S3Backend) Bucket() string { return b.bucket }

// Mode 返回模式标识.
func (b *S3Backend) Mode() string { return "s3" }
