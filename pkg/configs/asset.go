package configs

import "github.com/spf13/viper"

const (
	DefaultAssetMaxSizeBytes      = 20 << 20  // 上传大小上限 20 MiB
	DefaultAssetSizeToleranceByte = 256 << 10 // confirm 时客户端上报与实际大小的容差 256 KiB
	DefaultPresignExpireMinutes   = 15        // 预签名 URL 有效期（分钟）
	DefaultVariantWidthSm         = 400       // sm 档目标宽度
	DefaultVariantWidthMd         = 800       // md 档目标宽度
	DefaultVariantWidthLg         = 1600      // lg 档目标宽度
	DefaultOriginalJPEGQuality    = 90        // 规范化原图 JPEG 质量
	DefaultVariantJPEGQuality     = 85        // 缩放档 JPEG 质量
	DefaultSweepAfterMinutes      = 60        // uploaded 状态滞留多久后触发重新入队
	DefaultSweepBatchSize         = 100       // 单次 sweep 最多处理的资产数
)

// AssetConfig 资产管线配置：上传限制、变体档位与滞留补偿.
type AssetConfig struct {
	MaxSizeBytes       int64 `mapstructure:"max_size_bytes"       rule:"min=1"`
	SizeToleranceBytes int64 `mapstructure:"size_tolerance_bytes" rule:"min=0"`
	PresignExpireMin   int   `mapstructure:"presign_expire_min"   rule:"min=1,max=1440"`

	VariantWidthSm int `mapstructure:"variant_width_sm" rule:"min=1"`
	VariantWidthMd int `mapstructure:"variant_width_md" rule:"min=1"`
	VariantWidthLg int `mapstructure:"variant_width_lg" rule:"min=1"`

	OriginalJPEGQuality int `mapstructure:"original_jpeg_quality" rule:"min=1,max=100"`
	VariantJPEGQuality  int `mapstructure:"variant_jpeg_quality"  rule:"min=1,max=100"`

	// 滞留在 uploaded 状态的资产多久后由定时任务重新入队
	SweepAfterMin  int `mapstructure:"sweep_after_min"  rule:"min=1"`
	SweepBatchSize int `mapstructure:"sweep_batch_size" rule:"min=1,max=1000"`
}

// VariantWidths 返回 variant 名称到目标宽度的映射.
func (c *AssetConfig) VariantWidths() map[string]int {
	return map[string]int{
		"sm": c.VariantWidthSm,
		"md": c.VariantWidthMd,
		"lg": c.VariantWidthLg,
	}
}

// setDefaults 设置资产管线配置的默认值.
func (c *AssetConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("asset.max_size_bytes", DefaultAssetMaxSizeBytes)
	v.SetDefault("asset.size_tolerance_bytes", DefaultAssetSizeToleranceByte)
	v.SetDefault("asset.presign_expire_min", DefaultPresignExpireMinutes)
	v.SetDefault("asset.variant_width_sm", DefaultVariantWidthSm)
	v.SetDefault("asset.variant_width_md", DefaultVariantWidthMd)
	v.SetDefault("asset.variant_width_lg", DefaultVariantWidthLg)
	v.SetDefault("asset.original_jpeg_quality", DefaultOriginalJPEGQuality)
	v.SetDefault("asset.variant_jpeg_quality", DefaultVariantJPEGQuality)
	v.SetDefault("asset.sweep_after_min", DefaultSweepAfterMinutes)
	v.SetDefault("asset.sweep_batch_size", DefaultSweepBatchSize)
}
