// Package httpapi is relay's HTTP surface: the three routes a client talks
// to, the reader-goroutine/bounded-channel pattern that drives a streaming
// /v1/messages call, and the dialect-appropriate error envelopes.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sparrowhq/relay/internal/adapter/sse"
	"github.com/sparrowhq/relay/internal/adapter/translator"
	"github.com/sparrowhq/relay/internal/config"
	"github.com/sparrowhq/relay/internal/logger"
	"github.com/sparrowhq/relay/internal/upstream"
	"github.com/sparrowhq/relay/internal/util"
	"github.com/sparrowhq/relay/pkg/pool"
)

const dialectM = "anthropic"

// Server wires the translator registry and upstream client into the three
// routes relay exposes.
type Server struct {
	translators     *translator.Registry
	upstreamClient  *upstream.Client
	logger          logger.StyledLogger
	channelCapacity int
	maxBodySize     int64

	// frameBuffers is shared by every streaming request's SSE re-encoding;
	// each frame borrows a buffer instead of allocating one.
	frameBuffers *pool.Pool[*bytes.Buffer]
}

func NewServer(translators *translator.Registry, upstreamClient *upstream.Client, log logger.StyledLogger, streamingCfg config.StreamingConfig, maxBodySize int64) *Server {
	capacity := streamingCfg.ChannelCapacity
	if capacity <= 0 {
		capacity = 128
	}
	return &Server{
		translators:     translators,
		upstreamClient:  upstreamClient,
		logger:          log,
		channelCapacity: capacity,
		maxBodySize:     maxBodySize,
		frameBuffers: pool.NewLitePool(func() *bytes.Buffer {
			return bytes.NewBuffer(make([]byte, 0, 4096))
		}),
	}
}

// Routes builds the mux relay serves on. Patterns are plain paths and each
// route checks its own method, so matching works under the pre-1.22
// http.ServeMux rules that go.mod's go 1.21 line selects.
func (s *Server) Routes() http.Handler {
	only := func(method string, h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				w.Header().Set("Allow", method)
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/messages", only(http.MethodPost, s.handleMessages))
	mux.HandleFunc("/v1/chat/completions", only(http.MethodPost, s.handlePassthrough))
	mux.HandleFunc("/health", only(http.MethodGet, s.handleHealth))
	return mux
}

// handleMessages serves the dialect-M route: translate the request, forward
// it, and translate the response back -- streaming or not.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tr, err := s.translators.Get(dialectM)
	if err != nil {
		writeDialectMError(w, http.StatusInternalServerError, err.Error())
		return
	}

	transformed, err := tr.TransformRequest(ctx, r)
	if err != nil {
		tr.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, headers, body, err := s.upstreamClient.Post(ctx, transformed.Body)
	if err != nil {
		s.logger.Error("Upstream request failed", "error", err)
		tr.WriteError(w, http.StatusBadGateway, "upstream request failed: "+err.Error())
		return
	}
	defer body.Close()

	if status < 200 || status >= 300 {
		s.forwardUpstreamFailure(w, tr, status, body)
		return
	}

	if transformed.IsStreaming {
		s.streamMessages(ctx, w, tr, transformed.ModelName, body)
		return
	}

	s.respondMessages(ctx, w, tr, body, headers)
}

func (s *Server) forwardUpstreamFailure(w http.ResponseWriter, tr translator.RequestTranslator, status int, body io.Reader) {
	text, _ := io.ReadAll(io.LimitReader(body, 64<<10))
	s.logger.Warn("Upstream returned error status",
		"status", status,
		"body", util.TruncateString(string(text), util.DefaultTruncateLengthPII))
	tr.WriteError(w, status, fmt.Sprintf("upstream returned %d: %s", status, string(text)))
}

func (s *Server) respondMessages(ctx context.Context, w http.ResponseWriter, tr translator.RequestTranslator, body io.Reader, _ http.Header) {
	raw, err := io.ReadAll(io.LimitReader(body, s.maxBodySize))
	if err != nil {
		tr.WriteError(w, http.StatusBadGateway, "failed to read upstream response")
		return
	}

	result, err := tr.TransformResponse(ctx, raw)
	if err != nil {
		tr.WriteError(w, http.StatusBadGateway, "failed to parse response: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}

// streamMessages drives the reader-goroutine/bounded-channel pattern: one
// goroutine owns the upstream byte stream and the stream translator, the
// HTTP handler goroutine drains the channel and writes SSE to the client.
func (s *Server) streamMessages(ctx context.Context, w http.ResponseWriter, tr translator.RequestTranslator, model string, body io.ReadCloser) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		tr.WriteError(w, http.StatusInternalServerError, "streaming unsupported by response writer")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan translator.Frame, s.channelCapacity)
	go s.runStreamReader(streamCtx, tr, model, body, frames)

	for frame := range frames {
		if err := s.writeFrame(w, frame); err != nil {
			s.logger.Warn("Failed to write streaming frame, client likely disconnected", "error", err)
			cancel()
			return
		}
		flusher.Flush()
	}
}

// writeFrame re-encodes one frame as SSE through a pooled buffer so a long
// stream doesn't allocate per frame.
func (s *Server) writeFrame(w io.Writer, frame translator.Frame) error {
	buf := s.frameBuffers.Get()
	defer s.frameBuffers.Put(buf)

	if err := sse.Encode(buf, frame.Event, frame.Data); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// runStreamReader owns the upstream byte stream and the single stream
// translator instance for one request. It is never shared across goroutines.
// If ctx is cancelled (client disconnected), it stops without synthesizing
// terminal frames.
func (s *Server) runStreamReader(ctx context.Context, tr translator.RequestTranslator, model string, body io.ReadCloser, frames chan<- translator.Frame) {
	defer close(frames)
	defer body.Close()

	st := tr.NewStreamTranslator(model)

	if !sendFrames(ctx, frames, st.Start()) {
		return
	}

	decoder := sse.NewDecoder(body)
	for {
		payload, ok, err := decoder.Next()
		if err != nil {
			s.logger.Warn("Upstream stream read failed", "error", err)
			return
		}
		if !ok {
			if !sendFrames(ctx, frames, st.Finish()) {
				return
			}
			return
		}

		if !sendFrames(ctx, frames, st.Process([]byte(payload))) {
			return
		}
	}
}

// sendFrames pushes each frame onto the channel, returning false the moment
// ctx is cancelled so the caller can stop reading upstream immediately.
func sendFrames(ctx context.Context, frames chan<- translator.Frame, batch []translator.Frame) bool {
	for _, f := range batch {
		select {
		case frames <- f:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// handlePassthrough serves /v1/chat/completions: both client and upstream
// already speak dialect C, so the body is forwarded unmodified in both
// directions.
func (s *Server) handlePassthrough(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := io.ReadAll(io.LimitReader(r.Body, s.maxBodySize))
	defer r.Body.Close()
	if err != nil {
		writeDialectMError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if model, err := translator.ExtractModelName(raw); err == nil {
		s.logger.Debug("Passthrough chat completion request", "model", model)
	}

	status, headers, body, err := s.upstreamClient.Post(ctx, raw)
	if err != nil {
		s.logger.Error("Upstream passthrough request failed", "error", err)
		writeDialectMError(w, http.StatusBadGateway, "upstream request failed: "+err.Error())
		return
	}
	defer body.Close()

	if ct := headers.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(status)

	if flusher, ok := w.(http.Flusher); ok {
		copyAndFlush(w, flusher, body)
		return
	}
	_, _ = io.Copy(w, body)
}

func copyAndFlush(w io.Writer, flusher http.Flusher, body io.Reader) {
	buf := make([]byte, 32*1024)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return
			}
			flusher.Flush()
		}
		if err != nil {
			return
		}
	}
}

// healthResponse is the small status document /health returns.
type healthResponse struct {
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	if err := s.upstreamClient.HealthCheck(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(healthResponse{Status: "unreachable", CheckedAt: time.Now()})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: "ok", CheckedAt: time.Now()})
}
