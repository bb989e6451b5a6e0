package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/dunamismax/imagemin/internal/batch"
	"github.com/dunamismax/imagemin/internal/compare"
	"github.com/dunamismax/imagemin/internal/domain"
	"github.com/dunamismax/imagemin/internal/localfile"
	"github.com/dunamismax/imagemin/internal/session"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const localFilePrefix = "/imagemin/"

type Compressor interface {
	Compress(ctx context.Context, inputPath string, opts domain.CompressionOptions, outputDir string) (domain.CompressionResult, error)
}

type BatchRunner interface {
	Run(ctx context.Context, req batch.Request, callback batch.Callback) (batch.Report, error)
	Active() bool
}

type OutputDirs interface {
	Get(ctx context.Context) string
	Set(ctx context.Context, dir string) error
}

type Desktop interface {
	SelectImages(ctx context.Context) ([]string, error)
	SelectDirectory(ctx context.Context, defaultPath string) (string, bool, error)
	ShowInFolder(path string) error
}

type Options struct {
	Logger         *logrus.Logger
	Registry       *prometheus.Registry
	Compressor     Compressor
	Runner         BatchRunner
	OutputDirs     OutputDirs
	Desktop        Desktop
	DefaultChoice  domain.FormatChoice
	DefaultQuality int
}

type Server struct {
	logger     *logrus.Logger
	router     *mux.Router
	metrics    *metrics
	tracer     trace.Tracer
	hub        *hub
	compressor Compressor
	runner     BatchRunner
	outputDirs OutputDirs
	desktop    Desktop
	session    *session.Session

	defaultChoice  domain.FormatChoice
	defaultQuality int

	baseCtx  context.Context
	cancel   context.CancelFunc
	encoding atomic.Bool
	batches  sync.WaitGroup
}

func NewServer(opts Options) (*Server, error) {
	if opts.Compressor == nil || opts.Runner == nil || opts.OutputDirs == nil {
		return nil, errors.New("compressor, batch runner and output dir preference are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	desktop := opts.Desktop
	if desktop == nil {
		desktop = unavailableDesktop{}
	}
	choice := opts.DefaultChoice
	if choice == "" {
		choice = domain.ChoiceOriginal
	}
	quality := opts.DefaultQuality
	if quality == 0 {
		quality = domain.DefaultQuality
	}

	m := newMetrics(opts.Registry)
	h := newHub(logger, m)
	baseCtx, cancel := context.WithCancel(context.Background())

	s := &Server{
		logger:         logger,
		router:         mux.NewRouter(),
		metrics:        m,
		tracer:         otel.Tracer("imagemin/api"),
		hub:            h,
		compressor:     opts.Compressor,
		runner:         opts.Runner,
		outputDirs:     opts.OutputDirs,
		desktop:        desktop,
		session:        session.New(func() compare.PointerCapture { return pointerCapture{hub: h} }),
		defaultChoice:  choice,
		defaultQuality: quality,
		baseCtx:        baseCtx,
		cancel:         cancel,
	}
	s.routes()
	return s, nil
}

type unavailableDesktop struct{}

var errNoDesktop = errors.New("desktop integration is unavailable")

func (unavailableDesktop) SelectImages(context.Context) ([]string, error) {
	return nil, errNoDesktop
}

func (unavailableDesktop) SelectDirectory(context.Context, string) (string, bool, error) {
	return "", false, errNoDesktop
}

func (unavailableDesktop) ShowInFolder(string) error {
	return errNoDesktop
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops a running batch at the next file boundary, waits for it and
// disconnects websocket clients.
func (s *Server) Close() {
	s.cancel()
	s.batches.Wait()
	s.hub.closeAll()
}

func (s *Server) routes() {
	// Display URLs carry an escaped absolute path in a single segment.
	s.router.UseEncodedPath()
	s.router.Use(s.metrics.withHTTPMetrics, s.withTracing, s.withLogging, s.withLocalCaller)

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.metricsHandler()).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.hub.serveWS).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/output-dir", s.handleGetOutputDir).Methods(http.MethodGet)
	api.HandleFunc("/output-dir", s.handleSetOutputDir).Methods(http.MethodPut)
	api.HandleFunc("/dialog/images", s.handleSelectImages).Methods(http.MethodPost)
	api.HandleFunc("/dialog/output-dir", s.handleSelectOutputDir).Methods(http.MethodPost)
	api.HandleFunc("/reveal", s.handleReveal).Methods(http.MethodPost)
	api.HandleFunc("/compress", s.handleCompress).Methods(http.MethodPost)
	api.HandleFunc("/batch", s.handleBatch).Methods(http.MethodPost)
	api.HandleFunc("/results", s.handleListResults).Methods(http.MethodGet)
	api.HandleFunc("/results", s.handleClearResults).Methods(http.MethodDelete)
	api.HandleFunc("/results/{index:[0-9]+}/select", s.handleSelectResult).Methods(http.MethodPost)
	api.HandleFunc("/compare", s.handleCompare).Methods(http.MethodGet)
	api.HandleFunc("/compare/pointer", s.handlePointer).Methods(http.MethodPost)
	api.HandleFunc("/compare/preview.png", s.handlePreview).Methods(http.MethodGet)

	s.router.PathPrefix(localFilePrefix).Handler(localfile.Handler{Prefix: localFilePrefix}).Methods(http.MethodGet, http.MethodHead)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(r *http.Request, into any) error {
	const maxBodyBytes = 1 << 20
	limited := io.LimitReader(r.Body, maxBodyBytes)
	decoder := json.NewDecoder(limited)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON body: multiple JSON values are not allowed")
	}
	return nil
}

// decodeOptionalJSON accepts an empty body and leaves into untouched.
func decodeOptionalJSON(r *http.Request, into any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return decodeJSON(r, into)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
