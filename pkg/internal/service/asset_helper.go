package service

import (
	"errors"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	nlog "github.com/yeisme/imagevault/pkg/log"
)

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func serviceLogger() zerolog.Logger {
	l := nlog.Logger().With().Str("component", "asset_service").Logger()

	return l
}

// decodeVariants 解析 variants JSON（名称 -> 对象键）；空串返回 nil.
func decodeVariants(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}

	var variants map[string]string
	if err := sonic.UnmarshalString(raw, &variants); err != nil {
		return nil, err
	}

	return variants, nil
}

// encodeVariants 序列化 variants 映射为 JSON 字符串.
func encodeVariants(variants map[string]string) (string, error) {
	if len(variants) == 0 {
		return "", nil
	}

	return sonic.MarshalString(variants)
}
