package anthropic

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparrowhq/relay/internal/adapter/translator/chatcompletions"
)

// transformRequest runs the translator over a raw dialect-M body and decodes
// the dialect-C body it produced.
func transformRequest(t *testing.T, body string) (chatcompletions.Request, bool) {
	t.Helper()

	tr := newTestTranslator()
	req := httptest.NewRequest("POST", "/v1/messages", strings.NewReader(body))

	transformed, err := tr.TransformRequest(context.Background(), req)
	if err != nil {
		return chatcompletions.Request{}, false
	}

	var out chatcompletions.Request
	require.NoError(t, json.Unmarshal(transformed.Body, &out))
	return out, true
}

func TestTransformRequest_Defaults(t *testing.T) {
	out, ok := transformRequest(t, `{"model":"test-model","messages":[{"role":"user","content":"Hi"}]}`)
	require.True(t, ok)

	assert.Equal(t, "test-model", out.Model)
	assert.Equal(t, 1024, out.MaxTokens)
	assert.False(t, out.Stream)
	assert.Nil(t, out.StreamOptions)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "user", out.Messages[0].Role)
	assert.Equal(t, "Hi", out.Messages[0].Content)
}

func TestTransformRequest_PassthroughFields(t *testing.T) {
	out, ok := transformRequest(t, `{
		"model":"test-model",
		"max_tokens":512,
		"temperature":0.7,
		"top_p":0.9,
		"stop_sequences":["END","STOP"],
		"messages":[{"role":"user","content":"Hi"}]
	}`)
	require.True(t, ok)

	assert.Equal(t, 512, out.MaxTokens)
	require.NotNil(t, out.Temperature)
	assert.InDelta(t, 0.7, *out.Temperature, 1e-9)
	require.NotNil(t, out.TopP)
	assert.InDelta(t, 0.9, *out.TopP, 1e-9)
	assert.Equal(t, []string{"END", "STOP"}, out.Stop)
}

func TestTransformRequest_MissingModel(t *testing.T) {
	tr := newTestTranslator()
	req := httptest.NewRequest("POST", "/v1/messages", strings.NewReader(`{"messages":[]}`))

	_, err := tr.TransformRequest(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model")
}

func TestTransformRequest_InvalidJSON(t *testing.T) {
	tr := newTestTranslator()
	req := httptest.NewRequest("POST", "/v1/messages", strings.NewReader(`{not json`))

	_, err := tr.TransformRequest(context.Background(), req)
	require.Error(t, err)
}

func TestTransformRequest_SystemString(t *testing.T) {
	out, ok := transformRequest(t, `{
		"model":"test-model",
		"system":"You are terse.",
		"messages":[{"role":"user","content":"Hi"}]
	}`)
	require.True(t, ok)

	require.Len(t, out.Messages, 2)
	assert.Equal(t, "system", out.Messages[0].Role)
	assert.Equal(t, "You are terse.", out.Messages[0].Content)
}

func TestTransformRequest_SystemBlocksJoined(t *testing.T) {
	out, ok := transformRequest(t, `{
		"model":"test-model",
		"system":[{"type":"text","text":"Line one."},{"type":"text","text":"Line two."}],
		"messages":[{"role":"user","content":"Hi"}]
	}`)
	require.True(t, ok)

	require.Len(t, out.Messages, 2)
	assert.Equal(t, "system", out.Messages[0].Role)
	assert.Equal(t, "Line one.\nLine two.", out.Messages[0].Content)
}

func TestTransformRequest_EmptySystemBlocksOmitted(t *testing.T) {
	out, ok := transformRequest(t, `{
		"model":"test-model",
		"system":[],
		"messages":[{"role":"user","content":"Hi"}]
	}`)
	require.True(t, ok)

	require.Len(t, out.Messages, 1)
	assert.Equal(t, "user", out.Messages[0].Role)
}

func TestTransformRequest_UserBlocksTextAndImage(t *testing.T) {
	out, ok := transformRequest(t, `{
		"model":"test-model",
		"messages":[{"role":"user","content":[
			{"type":"text","text":"What is this?"},
			{"type":"image","source":{"type":"base64","media_type":"image/png","data":"iVBORw0KGgo="}}
		]}]
	}`)
	require.True(t, ok)

	require.Len(t, out.Messages, 1)
	parts, ok := out.Messages[0].Content.([]interface{})
	require.True(t, ok)
	require.Len(t, parts, 2)

	text := parts[0].(map[string]interface{})
	assert.Equal(t, "text", text["type"])
	assert.Equal(t, "What is this?", text["text"])

	image := parts[1].(map[string]interface{})
	assert.Equal(t, "image_url", image["type"])
	imageURL := image["image_url"].(map[string]interface{})
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", imageURL["url"])
}

// TestTransformRequest_ToolResultFlushesParts verifies the flush rule: text
// accumulated before a tool_result becomes its own user message, the tool
// result becomes a separate {role:"tool"} message, and trailing text flushes
// at the end.
func TestTransformRequest_ToolResultFlushesParts(t *testing.T) {
	out, ok := transformRequest(t, `{
		"model":"test-model",
		"messages":[{"role":"user","content":[
			{"type":"text","text":"before"},
			{"type":"tool_result","tool_use_id":"call_1","content":"42"},
			{"type":"text","text":"after"}
		]}]
	}`)
	require.True(t, ok)

	require.Len(t, out.Messages, 3)

	assert.Equal(t, "user", out.Messages[0].Role)
	assert.Equal(t, "tool", out.Messages[1].Role)
	assert.Equal(t, "call_1", out.Messages[1].ToolCallID)
	assert.Equal(t, "42", out.Messages[1].Content)
	assert.Equal(t, "user", out.Messages[2].Role)
}

func TestTransformRequest_ToolResultBlockContentJoined(t *testing.T) {
	out, ok := transformRequest(t, `{
		"model":"test-model",
		"messages":[{"role":"user","content":[
			{"type":"tool_result","tool_use_id":"call_1","content":[
				{"type":"text","text":"first"},
				{"type":"text","text":"second"}
			]}
		]}]
	}`)
	require.True(t, ok)

	require.Len(t, out.Messages, 1)
	assert.Equal(t, "tool", out.Messages[0].Role)
	assert.Equal(t, "first\nsecond", out.Messages[0].Content)
}

// TestTransformRequest_AssistantBlocks checks text concatenation (no
// separator), tool_use conversion, and thinking discard.
func TestTransformRequest_AssistantBlocks(t *testing.T) {
	out, ok := transformRequest(t, `{
		"model":"test-model",
		"messages":[{"role":"assistant","content":[
			{"type":"thinking","thinking":"private"},
			{"type":"text","text":"Let me "},
			{"type":"text","text":"check."},
			{"type":"tool_use","id":"call_1","name":"lookup","input":{"q":"weather"}}
		]}]
	}`)
	require.True(t, ok)

	require.Len(t, out.Messages, 1)
	msg := out.Messages[0]
	assert.Equal(t, "assistant", msg.Role)
	assert.Equal(t, "Let me check.", msg.Content)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "call_1", msg.ToolCalls[0].ID)
	assert.Equal(t, "function", msg.ToolCalls[0].Type)
	assert.Equal(t, "lookup", msg.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"q":"weather"}`, msg.ToolCalls[0].Function.Arguments)

	body, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "private")
}

func TestTransformRequest_Tools(t *testing.T) {
	out, ok := transformRequest(t, `{
		"model":"test-model",
		"messages":[{"role":"user","content":"Hi"}],
		"tools":[{"name":"lookup","description":"find things","input_schema":{"type":"object","properties":{"q":{"type":"string"}}}}]
	}`)
	require.True(t, ok)

	require.Len(t, out.Tools, 1)
	assert.Equal(t, "function", out.Tools[0].Type)
	assert.Equal(t, "lookup", out.Tools[0].Function.Name)
	assert.Equal(t, "find things", out.Tools[0].Function.Description)
	assert.Equal(t, "object", out.Tools[0].Function.Parameters["type"])
}

func TestTransformRequest_ToolChoice(t *testing.T) {
	tests := []struct {
		name       string
		toolChoice string
		want       interface{}
	}{
		{"auto string", `"auto"`, "auto"},
		{"any string maps to required", `"any"`, "required"},
		{"auto object", `{"type":"auto"}`, "auto"},
		{"any object maps to required", `{"type":"any"}`, "required"},
		{
			"named tool",
			`{"type":"tool","name":"lookup"}`,
			map[string]interface{}{
				"type":     "function",
				"function": map[string]interface{}{"name": "lookup"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := transformRequest(t, `{
				"model":"test-model",
				"messages":[{"role":"user","content":"Hi"}],
				"tool_choice":`+tt.toolChoice+`
			}`)
			require.True(t, ok)
			assert.Equal(t, tt.want, out.ToolChoice)
		})
	}
}

func TestTransformRequest_NamedToolChoiceRequiresName(t *testing.T) {
	tr := newTestTranslator()
	req := httptest.NewRequest("POST", "/v1/messages", strings.NewReader(`{
		"model":"test-model",
		"messages":[{"role":"user","content":"Hi"}],
		"tool_choice":{"type":"tool"}
	}`))

	_, err := tr.TransformRequest(context.Background(), req)
	require.Error(t, err)
}

func TestTransformRequest_ThinkingEnablesReasoning(t *testing.T) {
	out, ok := transformRequest(t, `{
		"model":"test-model",
		"messages":[{"role":"user","content":"Hi"}],
		"thinking":{"enabled":true,"budget_tokens":2048}
	}`)
	require.True(t, ok)

	require.NotNil(t, out.Reasoning)
	assert.Equal(t, 2048, out.Reasoning.MaxTokens)
	assert.NotNil(t, out.ThinkingVerbose)
}

func TestTransformRequest_ThinkingDisabledIgnored(t *testing.T) {
	out, ok := transformRequest(t, `{
		"model":"test-model",
		"messages":[{"role":"user","content":"Hi"}],
		"thinking":{"enabled":false,"budget_tokens":2048}
	}`)
	require.True(t, ok)

	assert.Nil(t, out.Reasoning)
	assert.Nil(t, out.ThinkingVerbose)
}

func TestTransformRequest_StreamingEnablesUsageReporting(t *testing.T) {
	tr := newTestTranslator()
	req := httptest.NewRequest("POST", "/v1/messages", strings.NewReader(`{
		"model":"test-model",
		"stream":true,
		"messages":[{"role":"user","content":"Hi"}]
	}`))

	transformed, err := tr.TransformRequest(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, transformed.IsStreaming)
	assert.Equal(t, "test-model", transformed.ModelName)

	var out chatcompletions.Request
	require.NoError(t, json.Unmarshal(transformed.Body, &out))
	assert.True(t, out.Stream)
	require.NotNil(t, out.StreamOptions)
	assert.True(t, out.StreamOptions.IncludeUsage)
}
