package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparrowhq/relay/internal/adapter/translator"
	"github.com/sparrowhq/relay/internal/logger"
)

// Setup Helpers
// -------------

// newTestLogger creates an error-level plain logger so tests stay quiet.
func newTestLogger() logger.StyledLogger {
	log, _, _ := logger.New(&logger.Config{Level: "error", Theme: "default"})
	return logger.NewPlainStyledLogger(log)
}

// newTestTranslator creates a configured translator for testing.
func newTestTranslator() *Translator {
	return NewTranslator(newTestLogger())
}

// Stream Helpers
// --------------

// runStream drives a fresh stream translator through Start and one Process
// call per payload, collecting every emitted frame in order.
func runStream(t *testing.T, model string, payloads ...string) []translator.Frame {
	t.Helper()

	st := newTestTranslator().NewStreamTranslator(model)
	frames := st.Start()
	for _, p := range payloads {
		frames = append(frames, st.Process([]byte(p))...)
	}
	return frames
}

// eventSequence extracts the ordered event names from a frame slice.
func eventSequence(frames []translator.Frame) []string {
	names := make([]string, 0, len(frames))
	for _, f := range frames {
		names = append(names, f.Event)
	}
	return names
}

// deltaOf unwraps a content_block_delta frame's inner delta, failing the test
// if the frame is anything else.
func deltaOf(t *testing.T, f translator.Frame) interface{} {
	t.Helper()

	payload, ok := f.Data.(contentBlockDeltaPayload)
	require.True(t, ok, "expected a content_block_delta frame, got %s", f.Event)
	return payload.Delta
}

// verifyStreamInvariants checks the framing invariants every stream transcript
// must satisfy: one message_start first, message_delta then message_stop last,
// bracketed blocks with contiguous indices, at most one block open at a time,
// and exactly one signature_delta immediately before each thinking block's
// stop.
func verifyStreamInvariants(t *testing.T, frames []translator.Frame) {
	t.Helper()

	require.NotEmpty(t, frames)
	assert.Equal(t, eventMessageStart, frames[0].Event, "first frame must be message_start")
	require.GreaterOrEqual(t, len(frames), 3)
	assert.Equal(t, eventMessageDelta, frames[len(frames)-2].Event, "penultimate frame must be message_delta")
	assert.Equal(t, eventMessageStop, frames[len(frames)-1].Event, "last frame must be message_stop")

	openIndex := -1
	openIsThinking := false
	sawSignature := false
	nextIndex := 0

	for i, f := range frames {
		switch payload := f.Data.(type) {
		case messageStartPayload:
			assert.Equal(t, 0, i, "message_start must be the first frame")
		case contentBlockStartPayload:
			assert.Equal(t, -1, openIndex, "a block opened while another was still open")
			assert.Equal(t, nextIndex, payload.Index, "block indices must be contiguous from 0")
			openIndex = payload.Index
			openIsThinking = payload.ContentBlock.Type == blockTypeThinking
			sawSignature = false
			nextIndex++
		case contentBlockDeltaPayload:
			assert.Equal(t, openIndex, payload.Index, "delta outside an open block")
			if _, isSig := payload.Delta.(signatureDelta); isSig {
				assert.True(t, openIsThinking, "signature_delta on a non-thinking block")
				assert.False(t, sawSignature, "more than one signature_delta for one thinking block")
				sawSignature = true
			}
		case contentBlockStopPayload:
			assert.Equal(t, openIndex, payload.Index, "stop index does not match the open block")
			if openIsThinking {
				assert.True(t, sawSignature, "thinking block stopped without a signature_delta")
				prev, ok := frames[i-1].Data.(contentBlockDeltaPayload)
				require.True(t, ok)
				_, isSig := prev.Delta.(signatureDelta)
				assert.True(t, isSig, "signature_delta must immediately precede the thinking stop")
			}
			openIndex = -1
			openIsThinking = false
		}
	}

	assert.Equal(t, -1, openIndex, "stream ended with a block still open")
}
