package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xela07ax/spaceai-assistant/internal/memory"
)

// MemoryHandler: прямой доступ клиента к задачам и заметкам, мимо агента.
type MemoryHandler struct {
	store *memory.VectorStore
	tasks *memory.TaskStore
}

func NewMemoryHandler(store *memory.VectorStore, tasks *memory.TaskStore) *MemoryHandler {
	return &MemoryHandler{store: store, tasks: tasks}
}

type TaskCreateRequest struct {
	Title    string         `json:"title"`
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata"`
}

type MemoryCreateRequest struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

func (h *MemoryHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tasks.List(r.Context()))
}

func (h *MemoryHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		badRequest(w, "title is required")
		return
	}
	writeJSON(w, http.StatusOK, h.tasks.Add(r.Context(), req.Title, req.Status, req.Metadata))
}

func (h *MemoryHandler) ListMemory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Export(r.Context()))
}

func (h *MemoryHandler) CreateMemory(w http.ResponseWriter, r *http.Request) {
	var req MemoryCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		badRequest(w, "content is required")
		return
	}
	writeJSON(w, http.StatusOK, h.store.Add(r.Context(), req.Content, req.Metadata, memory.TypeNote))
}
