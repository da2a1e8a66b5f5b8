// Package translator defines the narrow, dialect-agnostic surface relay's
// HTTP layer programs against: something that turns an incoming request into
// upstream bytes, turns an upstream response back into the client's dialect,
// and can mint a per-request streaming state machine. relay registers exactly
// one implementation (package anthropic, dialect M) today; the interface
// stays dialect-agnostic so a second one could be added without touching
// httpapi.
package translator

import (
	"context"
	"net/http"
)

// TransformedRequest is the result of translating an incoming client request
// into the bytes relay sends upstream.
type TransformedRequest struct {
	Body        []byte // upstream request body, already marshalled
	ModelName   string // extracted for logging
	IsStreaming bool   // selects the streaming vs non-streaming response path
}

// Frame is one named, JSON-payload streaming event. httpapi re-encodes each
// Frame as an SSE `event:`/`data:` pair (package sse) before writing it to
// the client.
type Frame struct {
	Event string
	Data  interface{}
}

// StreamTranslator is a single-request, single-writer state machine that
// turns upstream SSE payloads into Frames. A fresh instance is created per
// streaming request (see RequestTranslator.NewStreamTranslator) and is never
// shared across goroutines or reused across requests.
type StreamTranslator interface {
	// Start emits the frames that open the response (message_start). Called
	// exactly once before any Process call.
	Start() []Frame

	// Process consumes one decoded upstream `data:` payload and returns the
	// frames it produces. A malformed payload yields no frames and no error;
	// nothing here can abort the stream.
	Process(payload []byte) []Frame

	// Finish emits the terminal frames (closing any open block, then
	// message_delta/message_stop) if the stream ended without ever seeing a
	// `[DONE]` payload. A no-op if Process already saw `[DONE]`.
	Finish() []Frame
}

// RequestTranslator converts between a client-facing wire dialect and the
// dialect-C shape the upstream speaks.
type RequestTranslator interface {
	Name() string

	// TransformRequest reads and converts an incoming client request body.
	TransformRequest(ctx context.Context, r *http.Request) (*TransformedRequest, error)

	// TransformResponse converts a complete, non-streaming upstream response
	// body into the client-facing dialect.
	TransformResponse(ctx context.Context, upstreamBody []byte) (interface{}, error)

	// NewStreamTranslator returns a fresh streaming state machine for one
	// request. model is echoed into the message_start frame.
	NewStreamTranslator(model string) StreamTranslator

	// WriteError renders message (at the given HTTP status) in this dialect's
	// error envelope.
	WriteError(w http.ResponseWriter, statusCode int, message string)
}
