//go:build !vips

package main

import (
	"fmt"

	"sharedrive/internal/config"
	"sharedrive/internal/media"
)

func newImageTransformer(cfg config.MediaConfig) (media.ImageTransformer, error) {
	if cfg.ImageBackend == "vips" {
		return nil, fmt.Errorf("image backend vips needs a binary built with -tags vips")
	}
	return media.NewImagingTransformer(imageOptions(cfg))
}

func imageOptions(cfg config.MediaConfig) media.ImageOptions {
	return media.ImageOptions{
		Width:         cfg.ImageWidth,
		Height:        cfg.ImageHeight,
		BlurSigma:     cfg.BlurSigma,
		JPEGQuality:   cfg.JPEGQuality,
		WatermarkPath: cfg.WatermarkPath,
	}
}
