// Package imaging validates uploaded image payloads and produces resized
// variants. Only JPEG and PNG are accepted; WebP is decodable for detection
// but rejected at validation.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/timmy/picseek/internal/domain"
)

var mimeToFormat = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
}

var formatToExt = map[string]string{
	"jpeg": "jpg",
	"png":  "png",
}

// Info describes a validated image payload.
type Info struct {
	Format string // "jpeg" or "png"
	Ext    string // file extension without dot
	Width  int
	Height int
}

// Validate checks size, declared mime type, and actual encoding of an
// uploaded payload. The decoded format must match the declared type; a PNG
// uploaded as image/jpeg is rejected.
func Validate(data []byte, mimeType string, maxSizeBytes int64) (*Info, error) {
	if len(data) == 0 {
		return nil, domain.NewValidationError("empty image payload")
	}
	if maxSizeBytes > 0 && int64(len(data)) > maxSizeBytes {
		return nil, domain.NewValidationError("image size %d exceeds limit of %d bytes", len(data), maxSizeBytes)
	}

	wantFormat, ok := mimeToFormat[mimeType]
	if !ok {
		return nil, domain.NewValidationError("unsupported content type %q: only image/jpeg and image/png are accepted", mimeType)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewValidationError("payload is not a decodable image: %v", err)
	}
	if format != wantFormat {
		return nil, domain.NewValidationError("declared type %q does not match encoded format %q", mimeType, format)
	}

	return &Info{
		Format: format,
		Ext:    formatToExt[format],
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// FormatExt returns the canonical file extension for a supported mime type.
func FormatExt(mimeType string) (string, error) {
	format, ok := mimeToFormat[mimeType]
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", mimeType)
	}
	return formatToExt[format], nil
}
