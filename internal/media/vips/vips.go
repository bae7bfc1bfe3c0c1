//go:build vips

// Package vips is the libvips image backend. It needs cgo and libvips at
// build time and is only compiled with -tags vips.
package vips

import (
	"context"
	"fmt"

	"github.com/h2non/bimg"

	"sharedrive/internal/media"
)

type Transformer struct {
	opts      media.ImageOptions
	watermark []byte
	wmSize    bimg.ImageSize
}

func NewTransformer(opts media.ImageOptions) (*Transformer, error) {
	t := &Transformer{opts: opts}
	if opts.WatermarkPath != "" {
		buf, err := bimg.Read(opts.WatermarkPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load watermark: %w", err)
		}
		size, err := bimg.NewImage(buf).Size()
		if err != nil {
			return nil, fmt.Errorf("failed to read watermark size: %w", err)
		}
		t.watermark = buf
		t.wmSize = size
	}
	return t, nil
}

func (t *Transformer) Transform(_ context.Context, path string) (string, error) {
	buf, err := bimg.Read(path)
	if err != nil {
		return path, fmt.Errorf("failed to read image: %w", err)
	}

	opts := bimg.Options{
		Width:         t.opts.Width,
		Height:        t.opts.Height,
		Quality:       t.opts.JPEGQuality,
		Type:          bimg.JPEG,
		StripMetadata: true,
		Interlace:     true,
	}
	if t.opts.Height > 0 {
		opts.Embed = true
		opts.Background = bimg.Color{R: 255, G: 255, B: 255}
	}
	if t.opts.BlurSigma > 0 {
		opts.GaussianBlur = bimg.GaussianBlur{Sigma: t.opts.BlurSigma}
	}

	out, err := bimg.NewImage(buf).Process(opts)
	if err != nil {
		return path, fmt.Errorf("failed to process image: %w", err)
	}

	if t.watermark != nil {
		img := bimg.NewImage(out)
		size, err := img.Size()
		if err != nil {
			return path, fmt.Errorf("failed to read processed size: %w", err)
		}
		out, err = img.WatermarkImage(bimg.WatermarkImage{
			Left:    max(0, (size.Width-t.wmSize.Width)/2),
			Top:     max(0, (size.Height-t.wmSize.Height)/2),
			Buf:     t.watermark,
			Opacity: 1,
		})
		if err != nil {
			return path, fmt.Errorf("failed to apply watermark: %w", err)
		}
	}

	dst := media.DerivedImagePath(path)
	if err := bimg.Write(dst, out); err != nil {
		return path, fmt.Errorf("failed to write image: %w", err)
	}
	return dst, nil
}
