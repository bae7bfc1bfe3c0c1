package media

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
)

// DerivedImagePath names the processed sibling of an image upload: the path
// is cut at its first "." and suffixed with "-img.jpeg".
func DerivedImagePath(path string) string {
	if i := strings.Index(path, "."); i >= 0 {
		path = path[:i]
	}
	return path + "-img.jpeg"
}

type ImageOptions struct {
	Width         int
	Height        int
	BlurSigma     float64
	JPEGQuality   int
	WatermarkPath string
}

// ImagingTransformer resizes, blurs and watermarks images in pure Go.
type ImagingTransformer struct {
	opts      ImageOptions
	watermark image.Image
}

// NewImagingTransformer loads the watermark once. An empty WatermarkPath
// disables compositing.
func NewImagingTransformer(opts ImageOptions) (*ImagingTransformer, error) {
	t := &ImagingTransformer{opts: opts}
	if opts.WatermarkPath != "" {
		wm, err := imaging.Open(opts.WatermarkPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load watermark: %w", err)
		}
		t.watermark = wm
	}
	return t, nil
}

// Transform writes the processed JPEG next to path and returns its location.
// On failure the original path is returned with the error.
func (t *ImagingTransformer) Transform(_ context.Context, path string) (string, error) {
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return path, fmt.Errorf("failed to open image: %w", err)
	}

	var dst *image.NRGBA
	if t.opts.Height > 0 {
		fitted := imaging.Fit(src, t.opts.Width, t.opts.Height, imaging.Lanczos)
		canvas := imaging.New(t.opts.Width, t.opts.Height, color.White)
		dst = imaging.PasteCenter(canvas, fitted)
	} else {
		dst = imaging.Resize(src, t.opts.Width, 0, imaging.Lanczos)
	}

	if t.opts.BlurSigma > 0 {
		dst = imaging.Blur(dst, t.opts.BlurSigma)
	}
	if t.watermark != nil {
		dst = imaging.OverlayCenter(dst, t.watermark, 1.0)
	}

	out := DerivedImagePath(path)
	if err := imaging.Save(dst, out, imaging.JPEGQuality(t.opts.JPEGQuality)); err != nil {
		return path, fmt.Errorf("failed to save image: %w", err)
	}
	return out, nil
}
