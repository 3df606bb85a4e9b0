package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"github.com/xela07ax/spaceai-assistant/internal/engine"
	"github.com/xela07ax/spaceai-assistant/internal/infra/auth"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError разделяет типы ошибок: 404, 409, 503, остальное 500 без деталей.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrAlreadyResolved):
		status, message = http.StatusConflict, "consent request already resolved"
	case errors.Is(err, engine.ErrSwitchUnavailable):
		status, message = http.StatusServiceUnavailable, err.Error()
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": message})
}

// actorOf: id согласующего из токена или оператор по умолчанию, если auth выключен.
func actorOf(r *http.Request) string {
	if id := auth.UserID(r.Context()); id != "" {
		return id
	}
	return domain.ActorOperator
}
