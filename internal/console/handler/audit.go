package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"go.uber.org/zap"
)

const defaultAuditLimit = 100

type AuditLog interface {
	ListAuditLog(ctx context.Context, limit int) ([]domain.AuditLogEntry, error)
}

type AuditHandler struct {
	service AuditLog
	logger  *zap.Logger
}

func NewAuditHandler(s AuditLog, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{service: s, logger: logger}
}

// GetLogs GET /v1/audit?limit=N: последние N записей, старшая первой.
func (h *AuditHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	logs, err := h.service.ListAuditLog(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to fetch audit log", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
