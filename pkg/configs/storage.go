package configs

import (
	"fmt"

	"github.com/spf13/viper"
)

// StorageConfig 对象存储配置，同时覆盖云端（S3/MinIO）与本地目录两种模式.
// 模式在进程启动时确定一次：ForceLocal 为 true 或未配置 Bucket 时落入本地模式.
type StorageConfig struct {
	// 云端模式（S3 兼容）
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	// CDNBaseURL 非空时公共 URL 使用 CDN 前缀，否则回退到直连存储 URL
	CDNBaseURL string `mapstructure:"cdn_base_url"`

	// 本地模式（开发/离线）
	ForceLocal bool   `mapstructure:"force_local"`
	LocalRoot  string `mapstructure:"local_root"`
	// LocalURLPrefix 本地模式下对象的 HTTP 访问前缀
	LocalURLPrefix string `mapstructure:"local_url_prefix"`

	// Env 对象键分区用的环境标签（prod/staging/dev）
	Env string `mapstructure:"env"`
}

const (
	DefaultStorageEndpoint        = "localhost:9000"                 // 默认S3端点
	DefaultStorageAccessKeyID     = "minioadmin"                     // 默认访问密钥ID
	DefaultStorageSecretAccessKey = "minioadmin"                     // 默认秘密访问密钥
	DefaultStorageUseSSL          = false                            // 默认是否使用SSL
	DefaultStorageBucket          = "imagevault"                     // 默认存储桶名称
	DefaultStorageRegion          = "us-east-1"                      // 默认区域
	DefaultStorageLocalRoot       = "./data/objects"                 // 默认本地存储根目录
	DefaultStorageLocalURLPrefix  = "http://localhost:8080/_uploads" // 默认本地访问前缀
	DefaultStorageEnv             = "dev"                            // 默认环境标签
)

// IsLocalMode 判断是否落入本地模式：强制本地或未配置 bucket.
func (c *StorageConfig) IsLocalMode() bool {
	return c.ForceLocal || c.Bucket == ""
}

// GetEndpointURL 获取完整的端点URL.
func (c *StorageConfig) GetEndpointURL() string {
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Endpoint)
}

// setDefaults 设置对象存储配置的默认值.
func (c *StorageConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("storage.endpoint", DefaultStorageEndpoint)
	v.SetDefault("storage.access_key_id", DefaultStorageAccessKeyID)
	v.SetDefault("storage.secret_access_key", DefaultStorageSecretAccessKey)
	v.SetDefault("storage.use_ssl", DefaultStorageUseSSL)
	v.SetDefault("storage.bucket", DefaultStorageBucket)
	v.SetDefault("storage.region", DefaultStorageRegion)
	v.SetDefault("storage.cdn_base_url", "")
	v.SetDefault("storage.force_local", false)
	v.SetDefault("storage.local_root", DefaultStorageLocalRoot)
	v.SetDefault("storage.local_url_prefix", DefaultStorageLocalURLPrefix)
	v.SetDefault("storage.env", DefaultStorageEnv)
}
