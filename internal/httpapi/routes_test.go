package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparrowhq/relay/internal/adapter/translator"
	"github.com/sparrowhq/relay/internal/adapter/translator/anthropic"
	"github.com/sparrowhq/relay/internal/config"
	"github.com/sparrowhq/relay/internal/logger"
	"github.com/sparrowhq/relay/internal/upstream"
)

func newTestLogger() logger.StyledLogger {
	log, _, _ := logger.New(&logger.Config{Level: "error", Theme: "default"})
	return logger.NewPlainStyledLogger(log)
}

// newTestHandler wires the full route stack against a mock upstream.
func newTestHandler(t *testing.T, upstreamHandler http.HandlerFunc) (http.Handler, *httptest.Server) {
	t.Helper()

	mock := httptest.NewServer(upstreamHandler)
	t.Cleanup(mock.Close)

	log := newTestLogger()
	client := upstream.New(config.UpstreamConfig{
		BaseURL:         mock.URL,
		ConnectTimeout:  time.Second,
		ResponseTimeout: 5 * time.Second,
	})

	registry := translator.NewRegistry(log)
	registry.Register("", anthropic.NewTranslator(log))

	server := NewServer(registry, client, log, config.StreamingConfig{ChannelCapacity: 8}, 10<<20)
	return server.Routes(), mock
}

func TestMessages_NonStreaming(t *testing.T) {
	handler, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"model":"test-model"`)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model":"test-model",
			"choices":[{"message":{"role":"assistant","content":"Hello"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":4,"completion_tokens":1}
		}`))
	})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("POST", "/v1/messages", strings.NewReader(`{
		"model":"test-model",
		"messages":[{"role":"user","content":"Hi"}]
	}`)))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "message", resp["type"])
	assert.Equal(t, "assistant", resp["role"])
	assert.Equal(t, "end_turn", resp["stop_reason"])

	content := resp["content"].([]interface{})
	require.Len(t, content, 1)
	block := content[0].(map[string]interface{})
	assert.Equal(t, "text", block["type"])
	assert.Equal(t, "Hello", block["text"])
}

func TestMessages_Streaming(t *testing.T) {
	handler, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"include_usage":true`)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("POST", "/v1/messages", strings.NewReader(`{
		"model":"test-model",
		"stream":true,
		"messages":[{"role":"user","content":"Hi"}]
	}`)))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "text/event-stream", recorder.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", recorder.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", recorder.Header().Get("Connection"))

	body := recorder.Body.String()
	for _, event := range []string{
		"event: message_start",
		"event: content_block_start",
		"event: content_block_delta",
		"event: content_block_stop",
		"event: message_delta",
		"event: message_stop",
	} {
		assert.Contains(t, body, event)
	}
	assert.Contains(t, body, `"text":"Hel"`)
	assert.Contains(t, body, `"text":"lo"`)
	assert.Contains(t, body, `"stop_reason":"end_turn"`)

	// message_start first, message_stop last.
	assert.True(t, strings.HasPrefix(body, "event: message_start\n"))
	assert.True(t, strings.HasSuffix(strings.TrimRight(body, "\n"), `data: {"type":"message_stop"}`))
}

func TestMessages_UpstreamErrorForwarded(t *testing.T) {
	handler, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, "slow down")
	})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("POST", "/v1/messages", strings.NewReader(`{
		"model":"test-model",
		"messages":[{"role":"user","content":"Hi"}]
	}`)))

	require.Equal(t, http.StatusTooManyRequests, recorder.Code)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, "error", envelope["type"])

	detail := envelope["error"].(map[string]interface{})
	assert.Equal(t, "api_error", detail["type"])
	assert.Contains(t, detail["message"], "slow down")
}

func TestMessages_UpstreamUnreachable(t *testing.T) {
	handler, mock := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {})
	mock.Close()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("POST", "/v1/messages", strings.NewReader(`{
		"model":"test-model",
		"messages":[{"role":"user","content":"Hi"}]
	}`)))

	require.Equal(t, http.StatusBadGateway, recorder.Code)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, "error", envelope["type"])
}

func TestMessages_BadRequestBody(t *testing.T) {
	handler, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called for an unparseable request")
	})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("POST", "/v1/messages", strings.NewReader(`{broken`)))

	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, "error", envelope["type"])
}

func TestMessages_NonJSONUpstreamResponse(t *testing.T) {
	handler, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>definitely not json</html>")
	})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("POST", "/v1/messages", strings.NewReader(`{
		"model":"test-model",
		"messages":[{"role":"user","content":"Hi"}]
	}`)))

	require.Equal(t, http.StatusBadGateway, recorder.Code)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	detail := envelope["error"].(map[string]interface{})
	assert.Contains(t, detail["message"], "parse")
}

func TestPassthrough_ForwardsVerbatim(t *testing.T) {
	const requestBody = `{"model":"test-model","messages":[{"role":"user","content":"Hi"}]}`
	const responseBody = `{"model":"test-model","choices":[{"message":{"content":"Hello"}}]}`

	var upstreamSaw string
	handler, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		upstreamSaw = string(body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, responseBody)
	})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(requestBody)))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, requestBody, upstreamSaw)
	assert.Equal(t, responseBody, recorder.Body.String())
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
}

func TestPassthrough_ForwardsUpstreamStatus(t *testing.T) {
	handler, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"bad key"}`)
	})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(`{"model":"m"}`)))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, `{"error":"bad key"}`, recorder.Body.String())
}

func TestHealth_OK(t *testing.T) {
	handler, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		// Any HTTP response means reachable, even an error status.
		w.WriteHeader(http.StatusNotFound)
	})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
}

func TestHealth_Unreachable(t *testing.T) {
	handler, mock := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {})
	mock.Close()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &health))
	assert.Equal(t, "unreachable", health["status"])
}
