package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tabula/internal/core"
	"github.com/JonMunkholm/tabula/internal/logging"
	"github.com/JonMunkholm/tabula/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is the part of a multipart form held in memory; the rest
// spills to temp files.
const multipartMemory = 8 << 20

// formOverhead allows for multipart boundaries and the pipeline field on top
// of the CSV itself.
const formOverhead = 1 << 20

// handleTransform runs the pipeline in the "pipeline" field over the CSV in
// the "file" field. The output is JSON records unless ?format=csv.
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	if limit := s.cfg.Transform.MaxFileSize; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.respondError(w, r, formError(err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, _, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, core.ErrNoFile)
		return
	}
	defer file.Close()

	ctx := WithRequestMetadata(r.Context(), r)
	result, err := s.service.Transform(ctx, file, []byte(r.FormValue("pipeline")))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("X-Run-ID", result.RunID)
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="transformed.csv"`)
		// Headers and part of the body may be out already; log only.
		if err := core.EncodeCSV(w, result.Dataset); err != nil {
			logging.FromContext(r.Context()).Error("csv encode", "run_id", result.RunID, "error", err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, core.NewRecords(result.Dataset))
}

// formError classifies a multipart parse failure.
func formError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return fmt.Errorf("%w: limit %d bytes", core.ErrFileTooLarge, tooLarge.Limit)
	case strings.Contains(err.Error(), "request body too large"):
		return fmt.Errorf("%w: %v", core.ErrFileTooLarge, err)
	case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
		return core.ErrNoFile
	default:
		return fmt.Errorf("%w: %v", core.ErrInvalidInputData, err)
	}
}

// transformerEntry is one value of the "available" map.
type transformerEntry struct {
	Description string           `json:"description,omitempty"`
	Params      []core.ParamInfo `json:"params"`
}

// handleAvailableTransformers lists registered transformers keyed by name,
// plus the names in sorted order.
func (s *Server) handleAvailableTransformers(w http.ResponseWriter, r *http.Request) {
	infos := s.service.ListTransformers()
	available := make(map[string]transformerEntry, len(infos))
	names := make([]string, 0, len(infos))
	for _, t := range infos {
		available[t.Name] = transformerEntry{Description: t.Description, Params: t.Params}
		names = append(names, t.Name)
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"available": available,
		"names":     names,
	})
}

func (s *Server) handleListTransformers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.ListTransformers())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Catalogue(s.service.ListTransformers()).Render(r.Context(), w); err != nil {
		s.respondError(w, r, err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.Status())
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.ActiveRuns())
}

// handleCancelRun cancels an in-flight run by ID.
func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if err := s.service.CancelRun(runID); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "cancelled", "run_id": runID})
}
