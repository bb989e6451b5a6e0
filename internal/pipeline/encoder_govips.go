//go:build govips && cgo

package pipeline

import (
	"context"
	"fmt"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/dunamismax/imagemin/internal/domain"
)

type govipsEncoder struct{}

func (e govipsEncoder) Encode(ctx context.Context, inputPath string, params EncodeParams) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img, err := vips.NewImageFromFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}
	defer img.Close()

	return exportGovipsImage(img, params)
}

func exportGovipsImage(img *vips.ImageRef, params EncodeParams) ([]byte, error) {
	switch params.Format {
	case domain.FormatWebP:
		opts := vips.NewWebpExportParams()
		opts.Quality = params.Quality
		opts.Lossless = params.Lossless
		opts.ReductionEffort = params.Effort
		data, _, err := img.ExportWebp(opts)
		if err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
		return data, nil
	case domain.FormatAVIF:
		opts := vips.NewAvifExportParams()
		opts.Quality = params.Quality
		opts.Lossless = params.Lossless
		opts.Effort = params.Effort
		data, _, err := img.ExportAvif(opts)
		if err != nil {
			return nil, fmt.Errorf("encode avif: %w", err)
		}
		return data, nil
	case domain.FormatJPEG:
		opts := vips.NewJpegExportParams()
		opts.Quality = params.Quality
		opts.Interlace = params.Progressive
		if params.Mozjpeg {
			opts.OptimizeCoding = true
			opts.TrellisQuant = true
			opts.OvershootDeringing = true
			opts.OptimizeScans = true
			opts.QuantTable = mozjpegQuantTable
		}
		data, _, err := img.ExportJpeg(opts)
		if err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		return data, nil
	case domain.FormatPNG:
		opts := vips.NewPngExportParams()
		opts.Compression = params.CompressionLevel
		opts.Quality = params.Quality
		// libvips only honours quality for palette output.
		opts.Palette = params.Quality < domain.MaxQuality
		if params.AdaptiveFiltering {
			opts.Filter = vips.PngFilterAll
		}
		data, _, err := img.ExportPng(opts)
		if err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", params.Format)
	}
}
