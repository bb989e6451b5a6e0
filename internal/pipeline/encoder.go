package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dunamismax/imagemin/internal/domain"
)

var ErrFormatUnavailable = errors.New("output format unavailable in this build")

const (
	webpEffort          = 6
	avifEffort          = 9
	pngCompressionLevel = 9
	mozjpegQuantTable   = 3
)

// Encoder reads the image at inputPath and returns it re-encoded according
// to params.
type Encoder interface {
	Encode(ctx context.Context, inputPath string, params EncodeParams) ([]byte, error)
}

type EncodeParams struct {
	Format            domain.Format
	Quality           int
	Lossless          bool
	Effort            int
	Progressive       bool
	Mozjpeg           bool
	CompressionLevel  int
	AdaptiveFiltering bool
}

// ParamsFor applies the fixed per-format encoder policy.
func ParamsFor(opts domain.CompressionOptions) (EncodeParams, error) {
	if err := opts.Validate(); err != nil {
		return EncodeParams{}, err
	}

	params := EncodeParams{Format: opts.Format, Quality: opts.Quality}
	switch opts.Format {
	case domain.FormatWebP:
		params.Effort = webpEffort
		params.Lossless = opts.Quality == domain.MaxQuality
	case domain.FormatAVIF:
		params.Effort = avifEffort
		params.Lossless = opts.Quality == domain.MaxQuality
	case domain.FormatJPEG:
		params.Progressive = true
		params.Mozjpeg = true
	case domain.FormatPNG:
		params.CompressionLevel = pngCompressionLevel
		params.AdaptiveFiltering = true
	default:
		return EncodeParams{}, fmt.Errorf("%w: %q", domain.ErrInvalidFormat, opts.Format)
	}
	return params, nil
}
