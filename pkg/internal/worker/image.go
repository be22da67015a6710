// Package worker 消费图像处理请求：下载原图、解码、方向归一，
// 生成规范化原图与多档宽度的衍生规格，回写资产元数据.
package worker

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "golang.org/x/image/webp"
	_ "image/png"

	"github.com/jdeng/goheif"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
)

// decodeImage 按内容类型解码。HEIC/HEIF 走专用解码器，
// 其余交给标准 image 注册表（jpeg/png/webp）.
func decodeImage(data []byte, mimeType string) (image.Image, error) {
	switch mimeType {
	case "image/heic", "image/heif":
		img, err := goheif.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode heif: %w", err)
		}

		return img, nil
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}

		return img, nil
	}
}

// exifOrientation 读取 EXIF Orientation（1-8），读不到按 1（不旋转）处理.
// HEIC 的 EXIF 块需要先行抽取.
func exifOrientation(data []byte, mimeType string) int {
	raw := data

	if mimeType == "image/heic" || mimeType == "image/heif" {
		block, err := goheif.ExtractExif(bytes.NewReader(data))
		if err != nil || len(block) == 0 {
			return 1
		}

		raw = block
	}

	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	orientation, err := tag.Int(0)
	if err != nil || orientation < 1 || orientation > 8 {
		return 1
	}

	return orientation
}

// normalizeOrientation 按 EXIF Orientation 重采样像素，输出无需方向标记的图像.
func normalizeOrientation(img image.Image, orientation int) image.Image {
	if orientation <= 1 {
		return img
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var dst *image.NRGBA

	switch orientation {
	case 3, 2, 4: // 180° 或镜像
		dst = image.NewNRGBA(image.Rect(0, 0, w, h))
	default: // 90°/270° 旋转，宽高互换
		dst = image.NewNRGBA(image.Rect(0, 0, h, w))
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			sx, sy := x-bounds.Min.X, y-bounds.Min.Y

			var dx, dy int

			switch orientation {
			case 2: // 水平镜像
				dx, dy = w-1-sx, sy
			case 3: // 180°
				dx, dy = w-1-sx, h-1-sy
			case 4: // 垂直镜像
				dx, dy = sx, h-1-sy
			case 5: // 转置
				dx, dy = sy, sx
			case 6: // 顺时针 90°
				dx, dy = h-1-sy, sx
			case 7: // 反转置
				dx, dy = h-1-sy, w-1-sx
			case 8: // 逆时针 90°
				dx, dy = sy, w-1-sx
			}

			dst.Set(dx, dy, img.At(x, y))
		}
	}

	return dst
}

// scaleToWidth 等比缩放到目标宽度；原图更窄时原样返回（从不放大）.
func scaleToWidth(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= width {
		return img
	}

	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return dst
}

// encodeJPEG 按指定质量编码.
func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return buf.Bytes(), nil
}
