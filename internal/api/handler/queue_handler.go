package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/request-queue/internal/api/middleware"
	"github.com/notifyhub/request-queue/internal/domain"
	"github.com/notifyhub/request-queue/internal/service"
)

// QueueHandler exposes the request queue operations over HTTP.
type QueueHandler struct {
	svc    *service.RequestService
	logger *zap.Logger
}

func NewQueueHandler(svc *service.RequestService, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/queue
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	items := h.svc.List(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{
		"size":  len(items),
		"items": items,
	})
}

// Enqueue handles POST /api/v1/queue/items
func (h *QueueHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req domain.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item, err := h.svc.Enqueue(r.Context(), req)
	if err != nil {
		h.warn(r, "enqueue failed", err)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, item)
}

// InsertAt handles POST /api/v1/queue/items/{index}
func (h *QueueHandler) InsertAt(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	var req domain.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item, err := h.svc.InsertAt(r.Context(), req, index)
	if err != nil {
		h.warn(r, "insert failed", err)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, item)
}

// Get handles GET /api/v1/queue/items/{index}
func (h *QueueHandler) Get(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	item, err := h.svc.Get(r.Context(), index)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// Remove handles DELETE /api/v1/queue/items/{index}
func (h *QueueHandler) Remove(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	item, err := h.svc.Remove(r.Context(), index)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// Register handles POST /api/v1/queue/register
func (h *QueueHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.warn(r, "register failed", err)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *QueueHandler) warn(r *http.Request, msg string, err error) {
	h.logger.Warn(msg,
		zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
		zap.Error(err),
	)
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "index must be an integer")
		return 0, false
	}
	return index, true
}
