package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dunamismax/imagemin/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const outputSuffix = "_compressed"

var (
	ErrSourceNotFile     = errors.New("source is not a regular file")
	ErrNoOutputDirectory = errors.New("no output directory available")
)

// CompressionError carries the file that failed and the underlying cause.
type CompressionError struct {
	Path string
	Err  error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("compression failed: %s: %v", e.Path, e.Err)
}

func (e *CompressionError) Unwrap() error {
	return e.Err
}

// DirResolver returns the directory used when a request names none.
type DirResolver func(ctx context.Context) string

type Emitter interface {
	Emit(ctx context.Context, outputPath string, data []byte) (int64, error)
}

type Processor struct {
	encoder    Encoder
	emitter    Emitter
	defaultDir DirResolver
	tracer     trace.Tracer
}

func NewLocalProcessor(defaultDir DirResolver) (*Processor, error) {
	encoder, err := newEncoder()
	if err != nil {
		return nil, fmt.Errorf("build encoder: %w", err)
	}
	return NewProcessor(encoder, LocalFileEmitter{}, defaultDir), nil
}

func NewProcessor(encoder Encoder, emitter Emitter, defaultDir DirResolver) *Processor {
	if emitter == nil {
		emitter = LocalFileEmitter{}
	}
	return &Processor{
		encoder:    encoder,
		emitter:    emitter,
		defaultDir: defaultDir,
		tracer:     otel.Tracer("imagemin/pipeline"),
	}
}

// Compress recompresses one file. Any failure is returned as a
// *CompressionError; nothing is retried.
func (p *Processor) Compress(ctx context.Context, inputPath string, opts domain.CompressionOptions, outputDir string) (domain.CompressionResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.compress")
	span.SetAttributes(
		attribute.String("image.input", inputPath),
		attribute.String("image.format", string(opts.Format)),
		attribute.Int("image.quality", opts.Quality),
	)
	defer span.End()

	result, err := p.compress(ctx, inputPath, opts, outputDir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compression failed")
		return domain.CompressionResult{}, &CompressionError{Path: inputPath, Err: err}
	}

	span.SetAttributes(
		attribute.Int64("image.original_bytes", result.OriginalSize),
		attribute.Int64("image.compressed_bytes", result.CompressedSize),
	)
	span.SetStatus(codes.Ok, "compressed")
	return result, nil
}

func (p *Processor) compress(ctx context.Context, inputPath string, opts domain.CompressionOptions, outputDir string) (domain.CompressionResult, error) {
	params, err := ParamsFor(opts)
	if err != nil {
		return domain.CompressionResult{}, err
	}

	originalSize, err := sourceSize(inputPath)
	if err != nil {
		return domain.CompressionResult{}, err
	}

	dir := strings.TrimSpace(outputDir)
	if dir == "" && p.defaultDir != nil {
		dir = p.defaultDir(ctx)
	}
	if dir == "" {
		return domain.CompressionResult{}, ErrNoOutputDirectory
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.CompressionResult{}, fmt.Errorf("create output dir: %w", err)
	}

	data, err := p.encoder.Encode(ctx, inputPath, params)
	if err != nil {
		return domain.CompressionResult{}, fmt.Errorf("encode stage: %w", err)
	}

	outputPath := OutputPath(dir, inputPath, opts.Format)
	compressedSize, err := p.emitter.Emit(ctx, outputPath, data)
	if err != nil {
		return domain.CompressionResult{}, fmt.Errorf("emit stage: %w", err)
	}

	return domain.NewCompressionResult(inputPath, outputPath, originalSize, compressedSize, opts.Format), nil
}

// OutputPath derives <dir>/<name>_compressed.<format>. Repeated runs with the
// same source, directory and format land on the same path.
func OutputPath(dir, inputPath string, format domain.Format) string {
	base := filepath.Base(inputPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		name = base
	}
	return filepath.Join(dir, fmt.Sprintf("%s%s.%s", name, outputSuffix, format))
}

func sourceSize(inputPath string) (int64, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return 0, fmt.Errorf("stat input file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s", ErrSourceNotFile, inputPath)
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return 0, fmt.Errorf("open input file: %w", err)
	}
	_ = f.Close()

	return info.Size(), nil
}

type LocalFileEmitter struct{}

func (LocalFileEmitter) Emit(_ context.Context, outputPath string, data []byte) (int64, error) {
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return 0, fmt.Errorf("write output file: %w", err)
	}
	info, err := os.Stat(outputPath)
	if err != nil {
		return 0, fmt.Errorf("stat output file: %w", err)
	}
	return info.Size(), nil
}
