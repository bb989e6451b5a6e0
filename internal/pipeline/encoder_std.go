package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/imagemin/internal/domain"
	_ "golang.org/x/image/webp"
)

type stdlibEncoder struct{}

func (e stdlibEncoder) Encode(ctx context.Context, inputPath string, params EncodeParams) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	switch params.Format {
	case domain.FormatWebP, domain.FormatAVIF:
		return nil, fmt.Errorf("%w: %s export requires govips build tag", ErrFormatUnavailable, params.Format)
	}

	img, err := imaging.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}

	var buf bytes.Buffer
	switch params.Format {
	case domain.FormatJPEG:
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(params.Quality)); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case domain.FormatPNG:
		level := pngLevel(params.CompressionLevel)
		if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(level)); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported output format: %s", params.Format)
	}

	return buf.Bytes(), nil
}

// pngLevel maps a zlib-style 0-9 level onto the levels image/png offers.
func pngLevel(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level < 4:
		return png.BestSpeed
	case level >= pngCompressionLevel:
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}
