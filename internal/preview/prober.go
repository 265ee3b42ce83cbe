package preview

import (
	"fmt"

	"github.com/h2non/bimg"

	"imagedrive/internal/domain"
)

// maxImageSide максимальная сторона принимаемого изображения в пикселях
const maxImageSide = 20000

// Prober определяет формат и размеры загружаемых изображений через libvips
type Prober struct{}

func NewProber() *Prober {
	return &Prober{}
}

// Probe проверяет, что данные являются изображением поддерживаемого формата
func (p *Prober) Probe(data []byte) (domain.ImageInfo, error) {
	typeName := bimg.DetermineImageTypeName(data)
	mimeType, ok := mimeTypeFor(typeName)
	if !ok {
		return domain.ImageInfo{}, fmt.Errorf("unsupported image type %q", typeName)
	}

	size, err := bimg.NewImage(data).Size()
	if err != nil {
		return domain.ImageInfo{}, fmt.Errorf("failed to get image size: %w", err)
	}
	if size.Width <= 0 || size.Height <= 0 {
		return domain.ImageInfo{}, fmt.Errorf("image has no dimensions")
	}
	if size.Width > maxImageSide || size.Height > maxImageSide {
		return domain.ImageInfo{}, fmt.Errorf("image %dx%d exceeds %d pixels per side", size.Width, size.Height, maxImageSide)
	}

	return domain.ImageInfo{
		MIMEType: mimeType,
		Width:    size.Width,
		Height:   size.Height,
	}, nil
}

func mimeTypeFor(typeName string) (string, bool) {
	switch typeName {
	case "jpeg", "png", "webp", "gif", "tiff", "heif", "avif":
		return "image/" + typeName, true
	case "svg":
		return "image/svg+xml", true
	}
	return "", false
}
