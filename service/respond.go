package service

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// writeJSON writes JSON response with the given status code
func writeJSON(w http.ResponseWriter, logger *zap.SugaredLogger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorw("failed to encode json response", "error", err)
	}
}

// writeJSONError writes JSON error response: {"error": msg}
func writeJSONError(w http.ResponseWriter, logger *zap.SugaredLogger, status int, msg string) {
	writeJSON(w, logger, status, map[string]string{"error": msg})
}
