package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/vbonduro/snapsync/internal/domain"
	"github.com/vbonduro/snapsync/internal/service"
)

const (
	maxUploadSize   = 512 * 1024 * 1024 // 512 MB
	maxMemoryBuffer = 32 * 1024 * 1024
)

func sessionParam(r *http.Request) domain.Session {
	return domain.Session(r.PathValue("session"))
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidSession), errors.Is(err, service.ErrInvalidFileName):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	session := sessionParam(r)
	files, err := s.service.List(r.Context(), session)
	if err != nil {
		s.logger.Error("list files failed", "session", session.String(), "error", err)
		s.writeError(w, statusFor(err), "failed to list files")
		return
	}

	type fileJSON struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
		Path string `json:"path"`
	}
	out := make([]fileJSON, len(files))
	for i, f := range files {
		out[i] = fileJSON{Name: f.Name, Size: f.Size, Path: f.Name}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"files": out})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	session := sessionParam(r)
	if err := session.Validate(); err != nil {
		s.metrics.uploadFailed()
		s.writeError(w, http.StatusBadRequest, "invalid session")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxMemoryBuffer); err != nil {
		s.metrics.uploadFailed()
		s.writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.metrics.uploadFailed()
		s.writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	res, err := s.service.Upload(r.Context(), session, header.Filename, file)
	if err != nil {
		s.metrics.uploadFailed()
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("upload failed", "session", session.String(), "file", header.Filename, "error", err)
			s.writeError(w, status, "failed to store file")
			return
		}
		s.writeError(w, status, err.Error())
		return
	}

	s.metrics.uploadSucceeded(res.Size)
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "filename": res.Name})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	session := sessionParam(r)
	name := r.PathValue("name")

	info, err := s.service.Stat(r.Context(), session, name)
	if err != nil {
		s.writeOpenError(w, session, name, err)
		return
	}
	reader, err := s.service.Open(r.Context(), session, name)
	if err != nil {
		s.writeOpenError(w, session, name, err)
		return
	}
	defer closeWithLog(reader, "download reader", s.logger)

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	if !info.ModTime.IsZero() {
		w.Header().Set("Last-Modified", info.ModTime.UTC().Format(http.TimeFormat))
	}
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write file failed", "session", session.String(), "file", name, "error", err)
	}
}

func (s *Server) writeOpenError(w http.ResponseWriter, session domain.Session, name string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("open file failed", "session", session.String(), "file", name, "error", err)
	}
	s.writeError(w, status, http.StatusText(status))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	session := sessionParam(r)
	stats, err := s.service.Stats(r.Context(), session)
	if err != nil {
		s.logger.Error("stats failed", "session", session.String(), "error", err)
		s.writeError(w, statusFor(err), "failed to compute stats")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	session := sessionParam(r)
	tree, err := s.service.Structure(r.Context(), session)
	if err != nil {
		s.logger.Error("structure failed", "session", session.String(), "error", err)
		s.writeError(w, statusFor(err), "failed to read storage")
		return
	}
	s.writeJSON(w, http.StatusOK, tree)
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	session := sessionParam(r)
	gallery, err := s.service.Gallery(r.Context(), session)
	if err != nil {
		s.logger.Error("gallery failed", "session", session.String(), "error", err)
		s.writeError(w, statusFor(err), "failed to load gallery")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"gallery": gallery})
}
