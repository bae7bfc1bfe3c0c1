//go:build vips

package main

import (
	"sharedrive/internal/config"
	"sharedrive/internal/media"
	"sharedrive/internal/media/vips"
)

func newImageTransformer(cfg config.MediaConfig) (media.ImageTransformer, error) {
	opts := media.ImageOptions{
		Width:         cfg.ImageWidth,
		Height:        cfg.ImageHeight,
		BlurSigma:     cfg.BlurSigma,
		JPEGQuality:   cfg.JPEGQuality,
		WatermarkPath: cfg.WatermarkPath,
	}
	if cfg.ImageBackend == "vips" {
		return vips.NewTransformer(opts)
	}
	return media.NewImagingTransformer(opts)
}
