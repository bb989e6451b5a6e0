package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dunamismax/imagemin/internal/domain"
	"github.com/dunamismax/imagemin/internal/id"
	"github.com/dunamismax/imagemin/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrBatchInProgress = errors.New("a batch is already running")

type Policy string

const (
	PolicyAbort Policy = "abort"
	PolicySkip  Policy = "skip"
)

func ParsePolicy(raw string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("unknown batch failure policy %q", raw)
	}
}

type Compressor interface {
	Compress(ctx context.Context, inputPath string, opts domain.CompressionOptions, outputDir string) (domain.CompressionResult, error)
}

type Request struct {
	Paths     []string
	Choice    domain.FormatChoice
	Quality   int
	OutputDir string
}

type Failure struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

type Report struct {
	BatchID  string
	Results  []domain.CompressionResult
	Failures []Failure
	Aborted  bool
}

type Options struct {
	Policy     Policy
	Logger     *logrus.Logger
	Registerer prometheus.Registerer
}

// Runner compresses files one at a time. Only one Run may be active.
type Runner struct {
	compressor Compressor
	policy     Policy
	logger     *logrus.Logger
	metrics    *metrics
	tracer     trace.Tracer
	active     atomic.Bool
}

func NewRunner(compressor Compressor, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	policy := opts.Policy
	if policy == "" {
		policy = PolicyAbort
	}
	return &Runner{
		compressor: compressor,
		policy:     policy,
		logger:     logger,
		metrics:    newMetrics(opts.Registerer),
		tracer:     otel.Tracer("imagemin/batch"),
	}
}

func (r *Runner) Active() bool {
	return r.active.Load()
}

func (r *Runner) Policy() Policy {
	return r.policy
}

// Run processes req.Paths in order. Under PolicyAbort the first failure
// stops the batch and is returned; results produced before it are kept in
// the report.
func (r *Runner) Run(ctx context.Context, req Request, callback Callback) (Report, error) {
	if !r.active.CompareAndSwap(false, true) {
		return Report{}, ErrBatchInProgress
	}
	defer r.active.Store(false)

	if len(req.Paths) == 0 {
		return Report{}, nil
	}
	if callback == nil {
		callback = func(Event) {}
	}

	r.metrics.activeBatch.Set(1)
	defer r.metrics.activeBatch.Set(0)

	report := Report{BatchID: id.New()}
	total := len(req.Paths)

	ctx, span := r.tracer.Start(ctx, "batch.run")
	span.SetAttributes(
		attribute.String("batch.id", report.BatchID),
		attribute.Int("batch.files", total),
		attribute.String("batch.choice", string(req.Choice)),
		attribute.String("batch.policy", string(r.policy)),
	)
	defer span.End()

	log := r.logger.WithField("batch_id", report.BatchID)
	log.WithField("files", total).Info("batch started")
	callback(Event{Type: EventStart, BatchID: report.BatchID, Total: total})

	for i, path := range req.Paths {
		if err := ctx.Err(); err != nil {
			report.Aborted = true
			r.finish(span, log, "aborted", err)
			callback(Event{Type: EventAborted, BatchID: report.BatchID, Index: i, Total: total, Percent: percent(i, total), Error: err.Error()})
			return report, err
		}

		result, err := r.compressOne(ctx, path, req)
		if err != nil {
			report.Failures = append(report.Failures, Failure{Path: path, Err: err})
			log.WithError(err).WithField("file", path).Warn("file failed")

			if r.policy == PolicySkip {
				callback(Event{Type: EventFileFailed, BatchID: report.BatchID, Index: i, Total: total, Path: path, Percent: percent(i+1, total), Error: err.Error()})
				continue
			}

			report.Aborted = true
			callback(Event{Type: EventFileFailed, BatchID: report.BatchID, Index: i, Total: total, Path: path, Percent: percent(i, total), Error: err.Error()})
			r.finish(span, log, "aborted", err)
			callback(Event{Type: EventAborted, BatchID: report.BatchID, Index: i, Total: total, Path: path, Percent: percent(i, total), Error: err.Error()})
			return report, err
		}

		report.Results = append(report.Results, result)
		log.WithFields(logrus.Fields{
			"file":   path,
			"format": result.Format,
			"ratio":  result.CompressionRatio,
		}).Debug("file compressed")

		callback(Event{Type: EventFileComplete, BatchID: report.BatchID, Index: i, Total: total, Path: path, Percent: percent(i+1, total), Result: &result})
	}

	r.finish(span, log, "complete", nil)
	callback(Event{Type: EventComplete, BatchID: report.BatchID, Index: total - 1, Total: total, Percent: 100})
	return report, nil
}

func (r *Runner) compressOne(ctx context.Context, path string, req Request) (domain.CompressionResult, error) {
	startedAt := time.Now()
	format, err := req.Choice.Resolve(path)
	if err != nil {
		r.metrics.filesTotal.WithLabelValues("unknown", "failed").Inc()
		return domain.CompressionResult{}, &pipeline.CompressionError{Path: path, Err: err}
	}

	opts := domain.CompressionOptions{Format: format, Quality: req.Quality}
	result, err := r.compressor.Compress(ctx, path, opts, req.OutputDir)

	status := "succeeded"
	if err != nil {
		status = "failed"
		var compressionErr *pipeline.CompressionError
		if !errors.As(err, &compressionErr) {
			err = &pipeline.CompressionError{Path: path, Err: err}
		}
	}
	r.metrics.fileDuration.WithLabelValues(string(format), status).Observe(time.Since(startedAt).Seconds())
	r.metrics.filesTotal.WithLabelValues(string(format), status).Inc()
	if err != nil {
		return domain.CompressionResult{}, err
	}

	if saved := result.BytesSaved(); saved > 0 {
		r.metrics.bytesSavedTotal.Add(float64(saved))
	}
	return result, nil
}

func (r *Runner) finish(span trace.Span, log *logrus.Entry, outcome string, err error) {
	r.metrics.batchesTotal.WithLabelValues(outcome).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch "+outcome)
		log.WithError(err).Warn("batch aborted")
		return
	}
	span.SetStatus(codes.Ok, "batch "+outcome)
	log.Info("batch complete")
}

func percent(done, total int) float64 {
	return float64(done) / float64(total) * 100
}
