package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sparrowhq/relay/internal/adapter/translator"
	"github.com/sparrowhq/relay/internal/adapter/translator/chatcompletions"
)

const defaultMaxTokens = 1024

// TransformRequest reads an incoming /v1/messages body, decodes it as a
// dialect-M request, and builds the dialect-C request relay sends upstream.
func (t *Translator) TransformRequest(ctx context.Context, r *http.Request) (*translator.TransformedRequest, error) {
	limited := io.LimitReader(r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req Request
	if err := json.NewDecoder(limited).Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}

	if req.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	messages, err := convertMessages(req.Messages, req.System)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	out := chatcompletions.Request{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Stream:      req.Stream,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}

	if len(req.StopSequences) > 0 {
		out.Stop = req.StopSequences
	}

	if len(req.Tools) > 0 {
		out.Tools = convertTools(req.Tools)
	}

	if len(req.ToolChoice) > 0 {
		choice, tcErr := convertToolChoice(req.ToolChoice)
		if tcErr != nil {
			return nil, fmt.Errorf("failed to convert tool_choice: %w", tcErr)
		}
		out.ToolChoice = choice
	}

	if req.Thinking != nil && req.Thinking.Enabled {
		out.Reasoning = &chatcompletions.Reasoning{MaxTokens: req.Thinking.BudgetTokens}
		out.ThinkingVerbose = req.Thinking
	}

	if req.Stream {
		out.StreamOptions = &chatcompletions.StreamOptions{IncludeUsage: true}
	}

	body, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upstream request: %w", err)
	}

	t.logger.Debug("Transformed dialect-M request to dialect-C",
		"model", req.Model,
		"message_count", len(messages),
		"has_tools", len(req.Tools) > 0,
		"streaming", req.Stream)

	return &translator.TransformedRequest{
		Body:        body,
		ModelName:   req.Model,
		IsStreaming: req.Stream,
	}, nil
}

// convertMessages builds the dialect-C messages array: an optional leading
// system message, then one or more messages per dialect-M message (a single
// user/assistant message can expand into several -- see convertUserBlocks).
func convertMessages(messages []Message, system json.RawMessage) ([]chatcompletions.Message, error) {
	out := make([]chatcompletions.Message, 0, len(messages)+1)

	if systemContent := convertSystemPrompt(system); systemContent != "" {
		out = append(out, chatcompletions.Message{Role: "system", Content: systemContent})
	}

	for _, msg := range messages {
		converted, err := convertSingleMessage(msg)
		if err != nil {
			return nil, err
		}
		out = append(out, converted...)
	}

	return out, nil
}

// convertSystemPrompt accepts system as either a bare JSON string or an
// array of text content blocks joined with "\n".
func convertSystemPrompt(system json.RawMessage) string {
	if len(system) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(system, &asString); err == nil {
		return asString
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(system, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if b.Type == blockTypeText && b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		return strings.Join(parts, "\n")
	}

	return ""
}

// convertSingleMessage converts one dialect-M message. A string-content
// message maps 1:1; a block-content message may expand into several
// dialect-C messages (user text + flushed tool results, or a single
// assistant message carrying text and tool calls).
func convertSingleMessage(msg Message) ([]chatcompletions.Message, error) {
	var asString string
	if err := json.Unmarshal(msg.Content, &asString); err == nil {
		return []chatcompletions.Message{{Role: msg.Role, Content: asString}}, nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(msg.Content, &blocks); err != nil {
		return nil, fmt.Errorf("message content is neither a string nor a block array: %w", err)
	}

	switch msg.Role {
	case "user":
		return convertUserBlocks(blocks), nil
	case "assistant":
		return convertAssistantBlocks(blocks), nil
	default:
		return nil, nil
	}
}

// convertUserBlocks iterates blocks in order, accumulating text/image parts.
// A tool_result block flushes any accumulated parts as one user message,
// then becomes its own {role:"tool"} message -- OpenAI requires tool results
// as separate messages, not inline content.
func convertUserBlocks(blocks []ContentBlock) []chatcompletions.Message {
	var out []chatcompletions.Message
	var parts []chatcompletions.MessagePart

	flush := func() {
		if len(parts) > 0 {
			out = append(out, chatcompletions.Message{Role: "user", Content: parts})
			parts = nil
		}
	}

	for _, b := range blocks {
		switch b.Type {
		case blockTypeText:
			if b.Text != "" {
				parts = append(parts, chatcompletions.MessagePart{Type: "text", Text: b.Text})
			}
		case blockTypeImage:
			if b.Source != nil {
				url := fmt.Sprintf("data:%s;base64,%s", b.Source.MediaType, b.Source.Data)
				parts = append(parts, chatcompletions.MessagePart{
					Type:     "image_url",
					ImageURL: &chatcompletions.ImageURL{URL: url},
				})
			}
		case blockTypeToolResult:
			flush()
			out = append(out, chatcompletions.Message{
				Role:       "tool",
				Content:    toolResultContentString(b),
				ToolCallID: b.ToolUseID,
			})
		}
	}

	flush()
	return out
}

// toolResultContentString renders a tool_result block's content as the
// string or joined-text form OpenAI's tool message expects.
func toolResultContentString(b ContentBlock) string {
	if s, ok := b.Content.(string); ok {
		return s
	}

	raw, err := json.Marshal(b.Content)
	if err != nil {
		return ""
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, sub := range blocks {
			if sub.Type == blockTypeText && sub.Text != "" {
				parts = append(parts, sub.Text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}

	return string(raw)
}

// convertAssistantBlocks concatenates text (no separator) and collects tool
// calls; thinking blocks are discarded -- the upstream doesn't accept
// reasoning as input, and echoing it back invites mimicry rather than fresh
// reasoning.
func convertAssistantBlocks(blocks []ContentBlock) []chatcompletions.Message {
	var text strings.Builder
	var toolCalls []chatcompletions.ToolCall

	for _, b := range blocks {
		switch b.Type {
		case blockTypeText:
			text.WriteString(b.Text)
		case blockTypeToolUse:
			toolCalls = append(toolCalls, convertToolUse(b))
		case blockTypeThinking:
			// discarded by design
		}
	}

	msg := chatcompletions.Message{Role: "assistant"}
	if text.Len() > 0 {
		msg.Content = text.String()
	}
	if len(toolCalls) > 0 {
		msg.ToolCalls = toolCalls
	}

	return []chatcompletions.Message{msg}
}

func convertToolUse(b ContentBlock) chatcompletions.ToolCall {
	inputJSON, err := json.Marshal(b.Input)
	if err != nil {
		inputJSON = []byte("{}")
	}

	return chatcompletions.ToolCall{
		ID:   b.ID,
		Type: chatToolTypeFunction,
		Function: chatcompletions.ToolCallFunc{
			Name:      b.Name,
			Arguments: string(inputJSON),
		},
	}
}
