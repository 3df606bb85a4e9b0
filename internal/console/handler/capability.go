package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"go.uber.org/zap"
)

// CapabilityService: discovery и runtime-переключатели capability.
type CapabilityService interface {
	Capabilities() []domain.CapabilityDescriptor
	SwitchStates() (disabled, sandboxed []string)
	SetDisabled(ctx context.Context, name string, on bool, actor string) error
	SetSandbox(ctx context.Context, name string, on bool, actor string) error
}

type CapabilityHandler struct {
	service CapabilityService
	logger  *zap.Logger
}

func NewCapabilityHandler(s CapabilityService, logger *zap.Logger) *CapabilityHandler {
	return &CapabilityHandler{service: s, logger: logger}
}

// List GET /v1/capabilities: discovery payload в порядке регистрации.
func (h *CapabilityHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Capabilities())
}

// States GET /v1/capabilities/states
func (h *CapabilityHandler) States(w http.ResponseWriter, _ *http.Request) {
	disabled, sandboxed := h.service.SwitchStates()
	writeJSON(w, http.StatusOK, map[string][]string{"disabled": disabled, "sandboxed": sandboxed})
}

func (h *CapabilityHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.service.SetDisabled, true)
}

func (h *CapabilityHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.service.SetDisabled, false)
}

func (h *CapabilityHandler) SandboxOn(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.service.SetSandbox, true)
}

func (h *CapabilityHandler) SandboxOff(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.service.SetSandbox, false)
}

type switchFunc func(ctx context.Context, name string, on bool, actor string) error

func (h *CapabilityHandler) apply(w http.ResponseWriter, r *http.Request, set switchFunc, on bool) {
	name := chi.URLParam(r, "name")
	// Ждем и RAM, и Redis: оператор должен знать, что переключение разошлось по инстансам
	if err := set(r.Context(), name, on, actorOf(r)); err != nil {
		h.logger.Error("capability switch failed", zap.String("capability", name), zap.Error(err))
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
