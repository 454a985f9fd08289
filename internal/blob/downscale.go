package blob

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"io"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

// ImageDownscaler shrinks PNG and JPEG images wider than MaxWidth before
// handing them to the wrapped uploader, re-encoding them as JPEG. Anything
// else passes through untouched.
type ImageDownscaler struct {
	Next     Uploader
	MaxWidth uint
	Log      *zap.Logger
}

func (d *ImageDownscaler) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if contentType != "image/png" && contentType != "image/jpeg" {
		return d.Next.Upload(ctx, name, contentType, r)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		d.Log.Warn("Could not decode image, uploading as is", zap.String("name", name), zap.Error(err))
		return d.Next.Upload(ctx, name, contentType, bytes.NewReader(raw))
	}
	if uint(img.Bounds().Dx()) <= d.MaxWidth {
		return d.Next.Upload(ctx, name, contentType, bytes.NewReader(raw))
	}

	// Resize image (preserve aspect ratio)
	scaled := resize.Resize(d.MaxWidth, 0, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 80}); err != nil {
		return "", err
	}

	d.Log.Debug("Downscaled image",
		zap.String("name", name),
		zap.Int("from_width", img.Bounds().Dx()),
		zap.Uint("to_width", d.MaxWidth),
	)
	return d.Next.Upload(ctx, strings.TrimSuffix(name, filepath.Ext(name))+".jpg", "image/jpeg", &buf)
}

