package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"go.uber.org/zap"
)

// ConsentService: очередь решений (Human-in-the-loop).
type ConsentService interface {
	GetConsent(ctx context.Context, id string) (*domain.ConsentRequest, error)
	ListConsents(ctx context.Context, status domain.ConsentStatus) ([]*domain.ConsentRequest, error)
	ResolveConsent(ctx context.Context, id string, approved bool, actor string) (*domain.ConsentRequest, error)
}

type ConsentHandler struct {
	service ConsentService
	logger  *zap.Logger
}

func NewConsentHandler(s ConsentService, logger *zap.Logger) *ConsentHandler {
	return &ConsentHandler{service: s, logger: logger}
}

// List GET /v1/consents?status=pending
func (h *ConsentHandler) List(w http.ResponseWriter, r *http.Request) {
	status, ok := domain.ParseConsentStatus(r.URL.Query().Get("status"))
	if !ok {
		badRequest(w, "status must be one of pending, approved, denied")
		return
	}

	list, err := h.service.ListConsents(r.Context(), status)
	if err != nil {
		h.logger.Error("failed to list consents", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ConsentHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.GetConsent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type ResolveRequest struct {
	Approved *bool `json:"approved"`
}

// Resolve POST /v1/consents/{id}/resolve. Только фиксирует решение, действие не перезапускается.
func (h *ConsentHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var body ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Approved == nil {
		badRequest(w, "body must be {\"approved\": true|false}")
		return
	}

	req, err := h.service.ResolveConsent(r.Context(), chi.URLParam(r, "id"), *body.Approved, actorOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
