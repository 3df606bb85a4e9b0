package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"go.uber.org/zap"
)

// Orchestrator описываем, что нам нужно от ядра
type Orchestrator interface {
	HandleMessage(ctx context.Context, text, providerName string) (*domain.AgentResponse, error)
	Capabilities() []domain.CapabilityDescriptor
}

type ChatHandler struct {
	core   Orchestrator
	logger *zap.Logger
}

func NewChatHandler(core Orchestrator, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{core: core, logger: logger}
}

type ChatRequest struct {
	Message  string `json:"message"`
	Provider string `json:"provider"`
}

// VoiceRequest: текст уже распознан внешним STT-пайплайном.
type VoiceRequest struct {
	Transcript string `json:"transcript"`
	Provider   string `json:"provider"`
}

type ChatResponse struct {
	*domain.AgentResponse
	AvailableTools []domain.CapabilityDescriptor `json:"available_tools"`
}

// Chat POST /v1/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		badRequest(w, "message is required")
		return
	}
	h.respond(w, r, req.Message, req.Provider)
}

// Voice POST /v1/voice
func (h *ChatHandler) Voice(w http.ResponseWriter, r *http.Request) {
	var req VoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		badRequest(w, "transcript is required")
		return
	}
	h.respond(w, r, req.Transcript, req.Provider)
}

func (h *ChatHandler) respond(w http.ResponseWriter, r *http.Request, text, provider string) {
	resp, err := h.core.HandleMessage(r.Context(), text, provider)
	if err != nil {
		h.logger.Error("message handling failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{AgentResponse: resp, AvailableTools: h.core.Capabilities()})
}
