package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spellbank/backend/internal/audio"
	"github.com/spellbank/backend/internal/metadata"
	"github.com/spellbank/backend/internal/models"
	"github.com/spellbank/backend/internal/services"
	"github.com/spellbank/backend/internal/store"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Ingester accepts one upload and returns the stored record's identity.
type Ingester interface {
	Submit(ctx context.Context, req models.UploadRequest) (*services.SubmitResult, error)
}

// Querier is the read side consumed by the HTTP surface.
type Querier interface {
	Counts(ctx context.Context, groupBy store.GroupBy) (map[string]int, error)
	List(ctx context.Context, filter store.Filter, limit, offset int) ([]models.RecordSummary, error)
	Get(ctx context.Context, id string) (*models.Record, error)
	Delete(ctx context.Context, id string) error
}

// RecordingHandler handles recording-related HTTP requests
type RecordingHandler struct {
	BaseHandler
	ingester     Ingester
	querier      Querier
	labels       *models.LabelSet
	storeTimeout time.Duration
}

// NewRecordingHandler creates a new recording handler
func NewRecordingHandler(ingester Ingester, querier Querier, labels *models.LabelSet, storeTimeout time.Duration, logger *zap.Logger) *RecordingHandler {
	return &RecordingHandler{
		BaseHandler:  BaseHandler{Logger: logger},
		ingester:     ingester,
		querier:      querier,
		labels:       labels,
		storeTimeout: storeTimeout,
	}
}

// RegisterRoutes registers all recording handler routes
func (h *RecordingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/recordings", func(r chi.Router) {
		r.Post("/", h.Upload)
		r.Get("/", h.List)
		r.Get("/{id}", h.GetMetadata)
		r.Get("/{id}/audio", h.DownloadAudio)
		r.Delete("/{id}", h.Delete)
	})
	r.Get("/stats", h.Stats)
	r.Get("/labels", h.Labels)
}

// Upload handles POST /recordings with multipart fields file, label
// and username.
func (h *RecordingHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		h.Logger.Error("failed to read upload", zap.Error(err))
		h.RespondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	req := models.UploadRequest{
		Payload:  payload,
		Filename: header.Filename,
		Label:    models.Label(r.FormValue("label")),
		Username: r.FormValue("username"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.storeTimeout)
	defer cancel()

	result, err := h.ingester.Submit(ctx, req)
	if err != nil {
		h.respondSubmitError(w, err)
		return
	}

	h.Logger.Info("recording stored",
		zap.String("id", result.ID),
		zap.String("label", result.Label),
		zap.String("username", result.Username),
	)
	h.RespondJSON(w, http.StatusCreated, result)
}

func (h *RecordingHandler) respondSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, audio.ErrUnsupportedFormat):
		h.RespondError(w, http.StatusBadRequest, "unsupported audio format")
	case errors.Is(err, audio.ErrDecode):
		h.RespondError(w, http.StatusBadRequest, "could not decode audio payload")
	case errors.Is(err, metadata.ErrInvalidUsername):
		h.RespondError(w, http.StatusBadRequest, "username is empty after sanitization")
	case errors.Is(err, metadata.ErrInvalidLabel):
		h.RespondError(w, http.StatusBadRequest, "label is not in the configured set")
	case errors.Is(err, store.ErrWriteConflict):
		h.RespondError(w, http.StatusConflict, "identifier conflict, submission not stored")
	case errors.Is(err, store.ErrUnavailable):
		h.Logger.Error("storage unavailable", zap.Error(err))
		h.RespondError(w, http.StatusServiceUnavailable, "storage unavailable, retry later")
	default:
		h.Logger.Error("submit failed", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to store recording")
	}
}

// List handles GET /recordings with optional label, username, limit and
// offset query parameters.
func (h *RecordingHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	filter := store.Filter{
		Label:    models.Label(r.URL.Query().Get("label")),
		Username: r.URL.Query().Get("username"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.storeTimeout)
	defer cancel()

	summaries, err := h.querier.List(ctx, filter, limit, offset)
	if err != nil {
		h.respondReadError(w, err, "failed to list recordings")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]any{
		"items":  summaries,
		"limit":  limit,
		"offset": offset,
	})
}

// GetMetadata handles GET /recordings/{id}
func (h *RecordingHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), h.storeTimeout)
	defer cancel()

	record, err := h.querier.Get(ctx, id)
	if err != nil {
		h.respondReadError(w, err, "failed to get recording")
		return
	}

	h.RespondJSON(w, http.StatusOK, models.RecordSummary{
		ID:       record.ID,
		Metadata: record.Metadata,
	})
}

// DownloadAudio handles GET /recordings/{id}/audio
func (h *RecordingHandler) DownloadAudio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), h.storeTimeout)
	defer cancel()

	record, err := h.querier.Get(ctx, id)
	if err != nil {
		h.respondReadError(w, err, "failed to get recording")
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.ID+".wav"))
	w.Header().Set("Content-Length", strconv.Itoa(len(record.Payload)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(record.Payload); err != nil {
		h.Logger.Error("failed to write audio response", zap.Error(err), zap.String("id", id))
	}
}

// Delete handles DELETE /recordings/{id}. Payload and metadata are
// removed together.
func (h *RecordingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), h.storeTimeout)
	defer cancel()

	if err := h.querier.Delete(ctx, id); err != nil {
		h.respondReadError(w, err, "failed to delete recording")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /stats?by=label|username|none
func (h *RecordingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	groupBy := store.GroupBy(r.URL.Query().Get("by"))
	if groupBy == "" {
		groupBy = store.GroupByLabel
	}
	if groupBy != store.GroupByLabel && groupBy != store.GroupByUsername && groupBy != store.GroupByNone {
		h.RespondError(w, http.StatusBadRequest, "by must be label, username or none")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.storeTimeout)
	defer cancel()

	counts, err := h.querier.Counts(ctx, groupBy)
	if err != nil {
		h.respondReadError(w, err, "failed to count recordings")
		return
	}

	h.RespondJSON(w, http.StatusOK, counts)
}

// Labels handles GET /labels, exposing the configured label set so the
// UI can constrain the choices it offers.
func (h *RecordingHandler) Labels(w http.ResponseWriter, r *http.Request) {
	h.RespondJSON(w, http.StatusOK, map[string]any{"labels": h.labels.Labels()})
}

func (h *RecordingHandler) respondReadError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.RespondError(w, http.StatusNotFound, "recording not found")
	case errors.Is(err, store.ErrUnavailable):
		h.Logger.Error("storage unavailable", zap.Error(err))
		h.RespondError(w, http.StatusServiceUnavailable, "storage unavailable, retry later")
	default:
		h.Logger.Error(message, zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, message)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
