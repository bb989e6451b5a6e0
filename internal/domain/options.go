package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

// FormatChoice is what the user picks; ChoiceOriginal must be resolved to a
// concrete Format per file before compression.
type FormatChoice string

const ChoiceOriginal FormatChoice = "original"

const (
	MinQuality     = 10
	MaxQuality     = 100
	DefaultQuality = 80
)

var (
	ErrInvalidFormat  = errors.New("unsupported format")
	ErrInvalidQuality = errors.New("quality out of range")
)

var supportedFormats = map[Format]struct{}{
	FormatWebP: {},
	FormatAVIF: {},
	FormatJPEG: {},
	FormatPNG:  {},
}

// Unknown extensions fall back to FormatJPEG.
var extensionFormats = map[string]Format{
	".webp": FormatWebP,
	".avif": FormatAVIF,
	".jpeg": FormatJPEG,
	".jpg":  FormatJPEG,
	".png":  FormatPNG,
}

const fallbackFormat = FormatJPEG

type CompressionOptions struct {
	Format  Format `json:"format"`
	Quality int    `json:"quality"`
}

func (o CompressionOptions) Validate() error {
	if _, err := ParseFormat(string(o.Format)); err != nil {
		return err
	}
	if o.Quality < MinQuality || o.Quality > MaxQuality {
		return fmt.Errorf("%w: %d (want %d-%d)", ErrInvalidQuality, o.Quality, MinQuality, MaxQuality)
	}
	return nil
}

func ParseFormat(raw string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(raw)))
	if format == "jpg" {
		format = FormatJPEG
	}
	if _, ok := supportedFormats[format]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
	}
	return format, nil
}

func ParseFormatChoice(raw string) (FormatChoice, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || trimmed == string(ChoiceOriginal) {
		return ChoiceOriginal, nil
	}
	format, err := ParseFormat(trimmed)
	if err != nil {
		return "", err
	}
	return FormatChoice(format), nil
}

func FormatForPath(path string) Format {
	if format, ok := extensionFormats[strings.ToLower(filepath.Ext(path))]; ok {
		return format
	}
	return fallbackFormat
}

// Resolve returns the concrete format to encode path with.
func (c FormatChoice) Resolve(path string) (Format, error) {
	if c == ChoiceOriginal || c == "" {
		return FormatForPath(path), nil
	}
	return ParseFormat(string(c))
}
