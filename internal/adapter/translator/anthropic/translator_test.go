package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparrowhq/relay/internal/adapter/translator/chatcompletions"
)

func TestTranslator_Name(t *testing.T) {
	assert.Equal(t, "anthropic", newTestTranslator().Name())
}

func TestTranslator_WriteError(t *testing.T) {
	recorder := httptest.NewRecorder()
	newTestTranslator().WriteError(recorder, 502, "upstream request failed")

	assert.Equal(t, 502, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var envelope ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, "error", envelope.Type)
	assert.Equal(t, "api_error", envelope.Error.Type)
	assert.Equal(t, "upstream request failed", envelope.Error.Message)
}

func TestNewMessageID_Format(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newMessageID()
		assert.Regexp(t, `^msg_[0-9a-f]{24}$`, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestNewToolUseID_Format(t *testing.T) {
	assert.Regexp(t, `^toolu_[0-9a-f]{24}$`, newToolUseID())
}

// TestRoundTrip_TextOnly checks the round-trip law: translating a text-only
// request out and a matching response back recovers the text.
func TestRoundTrip_TextOnly(t *testing.T) {
	tr := newTestTranslator()

	req := httptest.NewRequest("POST", "/v1/messages", strings.NewReader(`{
		"model":"test-model",
		"messages":[{"role":"user","content":"What is the weather?"}]
	}`))
	transformed, err := tr.TransformRequest(context.Background(), req)
	require.NoError(t, err)

	var upstream chatcompletions.Request
	require.NoError(t, json.Unmarshal(transformed.Body, &upstream))
	require.Len(t, upstream.Messages, 1)
	echoed := upstream.Messages[0].Content.(string)

	upstreamResp := fmt.Sprintf(`{
		"model":"test-model",
		"choices":[{"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]
	}`, echoed)

	result, err := tr.TransformResponse(context.Background(), []byte(upstreamResp))
	require.NoError(t, err)

	resp := result.(Response)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, "What is the weather?", resp.Content[0].Text)
}

// TestStreamTranscriptMatchesNonStreaming reconstructs a document from a
// stream transcript and checks the non-streaming translator produces
// structurally equivalent blocks.
func TestStreamTranscriptMatchesNonStreaming(t *testing.T) {
	tr := newTestTranslator()

	frames := runStream(t, "test-model",
		`{"choices":[{"delta":{"content":"Hi"}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"t1","function":{"name":"f"}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"a\":1}"}}]}}]}`,
		`{"choices":[{"finish_reason":"tool_calls","delta":{}}]}`,
		"[DONE]",
	)

	// Reconstruct the blocks the stream described.
	var streamed []ContentBlock
	var args strings.Builder
	for _, f := range frames {
		switch payload := f.Data.(type) {
		case contentBlockStartPayload:
			streamed = append(streamed, payload.ContentBlock)
		case contentBlockDeltaPayload:
			switch d := payload.Delta.(type) {
			case textDelta:
				streamed[len(streamed)-1].Text += d.Text
			case inputJSONDelta:
				args.WriteString(d.PartialJSON)
			}
		}
	}
	require.Len(t, streamed, 2)

	result, err := tr.TransformResponse(context.Background(), []byte(`{
		"model":"test-model",
		"choices":[{"message":{"content":"Hi","tool_calls":[{"id":"t1","function":{"name":"f","arguments":"{\"a\":1}"}}]},"finish_reason":"tool_calls"}]
	}`))
	require.NoError(t, err)
	resp := result.(Response)
	require.Len(t, resp.Content, 2)

	assert.Equal(t, resp.Content[0].Type, streamed[0].Type)
	assert.Equal(t, resp.Content[0].Text, streamed[0].Text)
	assert.Equal(t, resp.Content[1].Type, streamed[1].Type)
	assert.Equal(t, resp.Content[1].ID, streamed[1].ID)
	assert.Equal(t, resp.Content[1].Name, streamed[1].Name)

	var streamedInput map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(args.String()), &streamedInput))
	assert.Equal(t, resp.Content[1].Input, streamedInput)
}
