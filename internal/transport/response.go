package transport

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"pairchat/internal/observability"
)

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		observability.GetLogger(context.Background()).Error("failed to encode response", zap.Error(err))
	}
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
