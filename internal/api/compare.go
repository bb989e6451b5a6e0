package api

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strconv"

	"github.com/dunamismax/imagemin/internal/compare"
	"github.com/dunamismax/imagemin/internal/session"
)

const (
	defaultPreviewWidth  = 800
	defaultPreviewHeight = 600
	maxPreviewSide       = 4096
)

type compareResponse struct {
	Index  int            `json:"index"`
	Result resultView     `json:"result"`
	Layout compare.Layout `json:"layout"`
}

func (s *Server) writeCompareState(w http.ResponseWriter) {
	result, index, slider, err := s.session.Selected()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, compareResponse{Index: index, Result: newResultView(result), Layout: slider.Layout()})
}

func (s *Server) handleCompare(w http.ResponseWriter, _ *http.Request) {
	s.writeCompareState(w)
}

type pointerRequest struct {
	Type     compare.PointerType `json:"type"`
	X        float64             `json:"x"`
	Viewport compare.Viewport    `json:"viewport"`
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	_, _, slider, err := s.session.Selected()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	layout, err := slider.Handle(req.Type, req.X, req.Viewport)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	width, err := previewSide(r.URL.Query().Get("width"), defaultPreviewWidth)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	height, err := previewSide(r.URL.Query().Get("height"), defaultPreviewHeight)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, _, slider, err := s.session.Selected()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrNoSelection) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}

	before, err := compare.LoadImage(result.OriginalPath)
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, err)
		return
	}
	after, err := compare.LoadImage(result.CompressedPath)
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, err)
		return
	}

	canvas, err := compare.Composite(before, after, width, height, slider.Split())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func previewSide(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxPreviewSide {
		return 0, fmt.Errorf("preview size must be between 1 and %d", maxPreviewSide)
	}
	return n, nil
}
