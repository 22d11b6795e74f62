package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/manimate/manimate-api/internal/auth"
	"github.com/manimate/manimate-api/internal/render"
	"github.com/manimate/manimate-api/internal/script"
	"github.com/manimate/manimate-api/internal/video"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service   *video.Service
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *video.Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Generate handles POST /user/generate requests: prompt in, draft job and
// script out.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing owner identity", "UNAUTHORIZED")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	job, err := h.service.Generate(r.Context(), ownerID, req.Prompt)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Success: true,
		Script:  job.Script,
		VideoID: job.ID,
	})
}

// Compile handles POST /user/compile requests: renders a previously
// generated job and returns the artifact's access URLs.
func (h *Handlers) Compile(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing owner identity", "UNAUTHORIZED")
		return
	}

	var req CompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	urls, err := h.service.Render(r.Context(), ownerID, req.VideoID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CompileResponse{
		Success:     true,
		VideoURL:    urls.StreamURL,
		DownloadURL: urls.DownloadURL,
	})
}

// Videos handles GET /user/videos requests: the owner's jobs, newest first.
func (h *Handlers) Videos(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.Videos)
}

// Prompts handles GET /user/prompts requests: the owner's jobs, oldest
// first, for chat-style history display.
func (h *Handlers) Prompts(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.Prompts)
}

// Code handles GET /user/code?videoId= requests.
func (h *Handlers) Code(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing owner identity", "UNAUTHORIZED")
		return
	}

	videoID := r.URL.Query().Get("videoId")
	if videoID == "" {
		writeError(w, http.StatusBadRequest, "videoId is required", "MISSING_VIDEO_ID")
		return
	}

	source, err := h.service.Script(r.Context(), ownerID, videoID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ScriptResponse{
		Success: true,
		Script:  source,
	})
}

// ClearHistory handles DELETE /user/clear-history requests.
func (h *Handlers) ClearHistory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing owner identity", "UNAUTHORIZED")
		return
	}

	if err := h.service.ClearHistory(r.Context(), ownerID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ClearHistoryResponse{
		Success: true,
		Message: "Your prompt history and associated videos have been cleared.",
	})
}

// list renders an owner-scoped job listing produced by fetch.
func (h *Handlers) list(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, ownerID string) ([]*video.Job, error)) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing owner identity", "UNAUTHORIZED")
		return
	}

	jobs, err := fetch(r.Context(), ownerID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]VideoItem, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, VideoItem{
			ID:        job.ID,
			Prompt:    job.Prompt,
			Filename:  job.ArtifactKey,
			CreatedAt: job.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, items)
}

// writeServiceError maps pipeline errors onto HTTP responses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, video.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "video not found", "JOB_NOT_FOUND")
	case errors.Is(err, video.ErrNotOwner):
		writeError(w, http.StatusForbidden, "video does not belong to you", "NOT_OWNER")
	case errors.Is(err, script.ErrNoSceneFound):
		writeError(w, http.StatusBadRequest, "no scene class found in the script", "NO_SCENE_FOUND")
	case errors.Is(err, script.ErrGenerationFailed):
		writeError(w, http.StatusBadGateway, err.Error(), "GENERATION_FAILED")
	case errors.Is(err, render.ErrRenderFailed):
		writeError(w, http.StatusBadGateway, err.Error(), "RENDER_FAILED")
	default:
		h.logger.Error("request failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
