package httpapi

import (
	"encoding/json"
	"net/http"
)

// writeDialectMError renders relay's own dialect-M error envelope without
// going through a translator. It covers a /v1/messages request when no
// dialect-M translator is registered, and the passthrough route's own
// failures (unreadable request body, unreachable upstream).
func writeDialectMError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"type": "error",
		"error": map[string]string{
			"type":    "api_error",
			"message": message,
		},
	})
}
