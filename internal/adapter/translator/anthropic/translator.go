package anthropic

import (
	"encoding/json"
	"net/http"

	"github.com/sparrowhq/relay/internal/adapter/translator"
	"github.com/sparrowhq/relay/internal/logger"
)

// Translator is relay's dialect-M implementation of translator.RequestTranslator.
// It holds no per-request state; all per-stream state lives in the
// StreamTranslator instances it mints via NewStreamTranslator.
type Translator struct {
	logger logger.StyledLogger
}

// NewTranslator builds the Anthropic (dialect-M) translator.
func NewTranslator(log logger.StyledLogger) *Translator {
	return &Translator{logger: log}
}

func (t *Translator) Name() string {
	return "anthropic"
}

// NewStreamTranslator returns a fresh, single-use stream state machine for
// one streaming request. Never shared across goroutines or requests.
func (t *Translator) NewStreamTranslator(model string) translator.StreamTranslator {
	return newStreamTranslator(model)
}

// WriteError renders the dialect-M error envelope: {"type":"error","error":
// {"type":"api_error","message":...}}.
func (t *Translator) WriteError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(NewErrorResponse(message)); err != nil {
		t.logger.Error("Failed to write error response", "error", err)
	}
}
