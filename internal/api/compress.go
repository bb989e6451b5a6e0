package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dunamismax/imagemin/internal/batch"
	"github.com/dunamismax/imagemin/internal/domain"
	"github.com/dunamismax/imagemin/internal/localfile"
	"github.com/dunamismax/imagemin/internal/pipeline"
	"github.com/dunamismax/imagemin/internal/session"
	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
)

type resultView struct {
	domain.CompressionResult
	OriginalSizeHuman   string `json:"originalSizeHuman"`
	CompressedSizeHuman string `json:"compressedSizeHuman"`
	OriginalURL         string `json:"originalUrl"`
	CompressedURL       string `json:"compressedUrl"`
}

func newResultView(r domain.CompressionResult) resultView {
	return resultView{
		CompressionResult:   r,
		OriginalSizeHuman:   humanize.Bytes(uint64(max(r.OriginalSize, 0))),
		CompressedSizeHuman: humanize.Bytes(uint64(max(r.CompressedSize, 0))),
		OriginalURL:         displayURL(r.OriginalPath),
		CompressedURL:       displayURL(r.CompressedPath),
	}
}

// displayURL is the HTTP form of the imagemin:// display URL.
func displayURL(path string) string {
	return localFilePrefix + strings.TrimPrefix(localfile.URL(path), localfile.Scheme+"://")
}

type optionsRequest struct {
	Format  string `json:"format"`
	Quality int    `json:"quality"`
}

type compressRequest struct {
	Path      string         `json:"path"`
	Options   optionsRequest `json:"options"`
	OutputDir string         `json:"outputDir"`
}

func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	var req compressRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, errors.New("path is required"))
		return
	}

	choice, quality, err := s.parseOptions(req.Options.Format, req.Options.Quality)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	format, err := choice.Resolve(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if s.runner.Active() || !s.encoding.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, batch.ErrBatchInProgress)
		return
	}
	result, err := s.compressor.Compress(r.Context(), req.Path, domain.CompressionOptions{Format: format, Quality: quality}, req.OutputDir)
	s.encoding.Store(false)
	if err != nil {
		var compressionErr *pipeline.CompressionError
		if errors.As(err, &compressionErr) {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		s.logger.WithError(err).WithField("file", req.Path).Error("compress failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.session.Append(result)
	writeJSON(w, http.StatusOK, newResultView(result))
}

type batchRequest struct {
	Paths     []string `json:"paths"`
	Format    string   `json:"format"`
	Quality   int      `json:"quality"`
	OutputDir string   `json:"outputDir"`
}

type batchEventView struct {
	batch.Event
	Result *resultView `json:"result,omitempty"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	choice, quality, err := s.parseOptions(req.Format, req.Quality)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Paths) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"status": "idle", "files": 0})
		return
	}

	if s.runner.Active() || !s.encoding.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, batch.ErrBatchInProgress)
		return
	}

	run := batch.Request{Paths: req.Paths, Choice: choice, Quality: quality, OutputDir: req.OutputDir}
	s.metrics.batchesStarted.Inc()
	s.batches.Add(1)
	go func() {
		defer s.batches.Done()
		defer s.encoding.Store(false)

		_, err := s.runner.Run(s.baseCtx, run, s.onBatchEvent)
		if err != nil && !errors.Is(err, batch.ErrBatchInProgress) {
			s.logger.WithError(err).Warn("batch ended with error")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "started", "files": len(req.Paths)})
}

func (s *Server) onBatchEvent(e batch.Event) {
	view := batchEventView{Event: e}
	if e.Result != nil {
		s.session.Append(*e.Result)
		rv := newResultView(*e.Result)
		view.Result = &rv
	}
	s.hub.broadcast("batch", view)
}

func (s *Server) parseOptions(rawFormat string, quality int) (domain.FormatChoice, int, error) {
	choice := s.defaultChoice
	if strings.TrimSpace(rawFormat) != "" {
		parsed, err := domain.ParseFormatChoice(rawFormat)
		if err != nil {
			return "", 0, err
		}
		choice = parsed
	}
	if quality == 0 {
		quality = s.defaultQuality
	}
	if quality < domain.MinQuality || quality > domain.MaxQuality {
		return "", 0, domain.ErrInvalidQuality
	}
	return choice, quality, nil
}

type resultsResponse struct {
	Results  []resultView `json:"results"`
	Selected int          `json:"selected"`
}

func (s *Server) handleListResults(w http.ResponseWriter, _ *http.Request) {
	results := s.session.List()
	views := make([]resultView, 0, len(results))
	for _, result := range results {
		views = append(views, newResultView(result))
	}

	_, selected, _, err := s.session.Selected()
	if err != nil {
		selected = -1
	}
	writeJSON(w, http.StatusOK, resultsResponse{Results: views, Selected: selected})
}

func (s *Server) handleClearResults(w http.ResponseWriter, _ *http.Request) {
	s.session.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectResult(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if _, err := s.session.Select(index); err != nil {
		if errors.Is(err, session.ErrOutOfRange) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeCompareState(w)
}
