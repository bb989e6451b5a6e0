package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

type outputDirRequest struct {
	Dir string `json:"dir"`
}

func (s *Server) handleGetOutputDir(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"dir": s.outputDirs.Get(r.Context())})
}

func (s *Server) handleSetOutputDir(w http.ResponseWriter, r *http.Request) {
	var req outputDirRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dir := strings.TrimSpace(req.Dir)
	if dir == "" || !filepath.IsAbs(dir) {
		writeError(w, http.StatusBadRequest, errors.New("dir must be an absolute path"))
		return
	}

	if err := s.outputDirs.Set(r.Context(), dir); err != nil {
		s.logger.WithError(err).Error("persist output dir")
		writeError(w, http.StatusInternalServerError, errors.New("failed to save output directory"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"dir": dir})
}

func (s *Server) handleSelectImages(w http.ResponseWriter, r *http.Request) {
	paths, err := s.desktop.SelectImages(r.Context())
	if err != nil {
		s.logger.WithError(err).Warn("image dialog failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if paths == nil {
		paths = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"paths": paths})
}

type selectDirRequest struct {
	DefaultPath string `json:"defaultPath"`
}

func (s *Server) handleSelectOutputDir(w http.ResponseWriter, r *http.Request) {
	var req selectDirRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	start := req.DefaultPath
	if start == "" {
		start = s.outputDirs.Get(r.Context())
	}

	dir, ok, err := s.desktop.SelectDirectory(r.Context(), start)
	if err != nil {
		s.logger.WithError(err).Warn("directory dialog failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"dir": ""})
		return
	}

	if err := s.outputDirs.Set(r.Context(), dir); err != nil {
		s.logger.WithError(err).Error("persist output dir")
		writeError(w, http.StatusInternalServerError, errors.New("failed to save output directory"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"dir": dir})
}

type revealRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	var req revealRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := s.desktop.ShowInFolder(req.Path); err != nil {
		s.logger.WithError(err).WithField("file", req.Path).Warn("reveal in folder failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
