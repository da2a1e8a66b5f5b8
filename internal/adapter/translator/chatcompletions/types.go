// Package chatcompletions is the dialect-C data model: the OpenAI-compatible
// chat-completions request/response/streaming shapes the upstream speaks
// natively. relay's Anthropic-facing translator builds these types on the way
// in and decodes upstream responses and streaming deltas into them on the way
// back.
package chatcompletions

import "encoding/json"

// Request is the dialect-C document relay sends upstream. Built by the
// anthropic package's request translator. The passthrough
// /v1/chat/completions route does not use it: that route forwards the raw
// body unmodified and only extracts the model name for logging.
type Request struct {
	Model           string         `json:"model"`
	Messages        []Message      `json:"messages"`
	MaxTokens       int            `json:"max_tokens"`
	Stream          bool           `json:"stream"`
	Temperature     *float64       `json:"temperature,omitempty"`
	TopP            *float64       `json:"top_p,omitempty"`
	Stop            []string       `json:"stop,omitempty"`
	Tools           []Tool         `json:"tools,omitempty"`
	ToolChoice      interface{}    `json:"tool_choice,omitempty"`
	Reasoning       *Reasoning     `json:"reasoning,omitempty"`
	StreamOptions   *StreamOptions `json:"stream_options,omitempty"`
	ThinkingVerbose interface{}    `json:"thinking,omitempty"` // preserved verbatim from dialect M, see request.go
}

// Reasoning carries the effort budget translated from dialect M's thinking
// config. Only MaxTokens is populated; upstream ignores the rest.
type Reasoning struct {
	MaxTokens int `json:"max_tokens"`
}

// StreamOptions controls whether the final streaming chunk carries usage
// totals. relay always sets IncludeUsage when the request is streaming,
// since the stream translator needs token counts for the terminal frame.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// Message is one entry of a dialect-C messages array. Content is either a
// plain string or a slice of parts (text/image_url), matching what the
// request translator's user-block conversion produces.
type Message struct {
	Role       string      `json:"role"`
	Content    interface{} `json:"content,omitempty"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
}

// MessagePart is one element of a Message.Content slice, used when a user
// message mixes text and image blocks.
type MessagePart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// Tool wraps a dialect-M tool definition in the OpenAI function-calling
// envelope.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// ToolChoiceFunction is the object form of tool_choice that pins a single
// named function.
type ToolChoiceFunction struct {
	Type     string                   `json:"type"`
	Function ToolChoiceFunctionByName `json:"function"`
}

type ToolChoiceFunctionByName struct {
	Name string `json:"name"`
}

// ToolCall is an assistant-authored function call, either complete (as built
// by the request translator from a tool_use block) or accumulating mid-call
// delta fields during streaming.
type ToolCall struct {
	Index    *int         `json:"index,omitempty"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function ToolCallFunc `json:"function"`
}

type ToolCallFunc struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Response is a complete, non-streaming dialect-C document.
type Response struct {
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

type Choice struct {
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

// ResponseMessage is the assistant turn inside a non-streaming Choice.
// Content is read as a string; reasoning_content and tool_call_id carry the
// reasoning/tool-result extensions this proxy's dialect M needs to surface.
type ResponseMessage struct {
	Role             string     `json:"role,omitempty"`
	Content          string     `json:"content,omitempty"`
	ReasoningContent string     `json:"reasoning_content,omitempty"`
	ToolCalls        []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID       string     `json:"tool_call_id,omitempty"`
	IsError          bool       `json:"is_error,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// StreamChunk is a single decoded `data:` payload of a streaming dialect-C
// response. Its Choices[i].Delta carries only the fields that changed since
// the previous chunk, per the OpenAI streaming convention.
type StreamChunk struct {
	Model   string         `json:"model,omitempty"`
	Choices []StreamChoice `json:"choices"`
	Usage   *Usage         `json:"usage,omitempty"`
}

type StreamChoice struct {
	Delta        Delta  `json:"delta"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Delta is a streaming fragment. Content/ReasoningContent/ToolCallID use
// plain strings rather than pointers: the upstream never distinguishes ""
// from absent for these fields in practice, and the stream translator only
// reacts to non-empty values.
type Delta struct {
	Role             string     `json:"role,omitempty"`
	Content          string     `json:"content,omitempty"`
	ReasoningContent string     `json:"reasoning_content,omitempty"`
	ToolCalls        []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID       string     `json:"tool_call_id,omitempty"`
	IsError          bool       `json:"is_error,omitempty"`
}

// ParseStreamChunk decodes one SSE payload into a StreamChunk. Returns false
// (no error) for payloads that aren't valid JSON objects -- the stream
// translator treats malformed payloads as silently discarded, not fatal.
func ParseStreamChunk(payload []byte) (*StreamChunk, bool) {
	var chunk StreamChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, false
	}
	return &chunk, true
}
