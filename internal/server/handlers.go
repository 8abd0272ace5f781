package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/KaramelBytes/sheetdash/internal/dashboard"
	"github.com/KaramelBytes/sheetdash/internal/parser"
	"github.com/KaramelBytes/sheetdash/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

type combineRequest struct {
	Name    string   `json:"name"`
	FileIDs []string `json:"file_ids"`
}

type toggleRequest struct {
	Visible *bool `json:"visible"`
}

type healthResponse struct {
	Status        string `json:"status"`
	SchemaVersion int64  `json:"schema_version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.Health(r.Context())
	if err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", SchemaVersion: v})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.svc.Files(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if files == nil {
		files = []*store.File{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.svc.File(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		s.fail(w, uploadError(err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, fmt.Errorf("%w: multipart field \"file\" is required", dashboard.ErrInvalidInput))
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, uploadError(err))
		return
	}
	opt := parser.Options{SheetName: r.FormValue("sheet_name")}
	f, err := s.svc.Upload(r.Context(), header.Filename, content, opt)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleCombine(w http.ResponseWriter, r *http.Request) {
	var req combineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, fmt.Errorf("%w: %v", dashboard.ErrInvalidInput, err))
		return
	}
	f, err := s.svc.Combine(r.Context(), req.Name, req.FileIDs)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	mode := store.ParseSource(r.URL.Query().Get("mode"))
	ws, err := s.svc.Connect(r.Context(), chi.URLParam(r, "id"), mode)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mode": mode, "widgets": ws})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	mode := store.ParseSource(r.URL.Query().Get("mode"))
	d, err := s.svc.Render(r.Context(), chi.URLParam(r, "id"), mode)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	cache, err := s.svc.Regenerate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cache)
}

func (s *Server) handleToggleWidget(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Visible == nil {
		s.fail(w, fmt.Errorf("%w: body must be {\"visible\": true|false}", dashboard.ErrInvalidInput))
		return
	}
	wd, err := s.svc.ToggleWidget(r.Context(), chi.URLParam(r, "id"), *req.Visible)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wd)
}

// errTooLarge wraps body-size failures so fail can map them to 413.
var errTooLarge = errors.New("upload too large")

func uploadError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
		return errTooLarge
	}
	return fmt.Errorf("%w: %v", dashboard.ErrInvalidInput, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, dashboard.ErrInvalidInput), errors.Is(err, parser.ErrUnsupported):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeError(w, status, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
