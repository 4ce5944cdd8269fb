package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/timmy/picseek/internal/domain"
)

func renderImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, renderImage(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, renderImage(w, h), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestValidateAcceptsSupportedFormats(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		mime string
		ext  string
	}{
		{"png", encodePNG(t, 10, 6), "image/png", "png"},
		{"jpeg", encodeJPEG(t, 10, 6), "image/jpeg", "jpg"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info, err := Validate(tc.data, tc.mime, 1<<20)
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if info.Ext != tc.ext {
				t.Errorf("got ext %q, want %q", info.Ext, tc.ext)
			}
			if info.Width != 10 || info.Height != 6 {
				t.Errorf("got %dx%d, want 10x6", info.Width, info.Height)
			}
		})
	}
}

func TestValidateRejections(t *testing.T) {
	pngData := encodePNG(t, 4, 4)

	cases := []struct {
		name    string
		data    []byte
		mime    string
		maxSize int64
	}{
		{"empty payload", nil, "image/png", 1 << 20},
		{"oversized", pngData, "image/png", 8},
		{"unsupported mime", pngData, "image/webp", 1 << 20},
		{"garbage bytes", []byte("definitely not pixels"), "image/png", 1 << 20},
		{"format mismatch", pngData, "image/jpeg", 1 << 20},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(tc.data, tc.mime, tc.maxSize)
			if err == nil {
				t.Fatal("expected error")
			}
			if !domain.IsValidation(err) {
				t.Errorf("expected ValidationError, got %T: %v", err, err)
			}
		})
	}
}

func TestResizeShrinksOversized(t *testing.T) {
	data := encodePNG(t, 200, 100)

	out, err := Resize(data, 50, 50)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode resized: %v", err)
	}
	if format != "png" {
		t.Errorf("got format %q, want png", format)
	}
	// aspect ratio preserved: 200x100 capped at 50 wide becomes 50x25
	if cfg.Width != 50 || cfg.Height != 25 {
		t.Errorf("got %dx%d, want 50x25", cfg.Width, cfg.Height)
	}
}

func TestResizeLeavesSmallImagesAlone(t *testing.T) {
	data := encodePNG(t, 30, 20)

	out, err := Resize(data, 100, 100)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("image within bounds should be returned unchanged")
	}
}

func TestFormatExt(t *testing.T) {
	ext, err := FormatExt("image/jpeg")
	if err != nil || ext != "jpg" {
		t.Errorf("got %q, %v", ext, err)
	}
	if _, err := FormatExt("image/webp"); err == nil {
		t.Error("webp should be unsupported")
	}
}
