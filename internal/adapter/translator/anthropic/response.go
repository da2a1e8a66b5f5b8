package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sparrowhq/relay/internal/adapter/translator/chatcompletions"
)

// TransformResponse converts a complete, non-streaming dialect-C document
// into its dialect-M equivalent.
func (t *Translator) TransformResponse(ctx context.Context, upstreamBody []byte) (interface{}, error) {
	var resp chatcompletions.Response
	if err := json.Unmarshal(upstreamBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse upstream response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("upstream response has no choices")
	}

	choice := resp.Choices[0]
	message := choice.Message

	content := make([]ContentBlock, 0, 2)

	if message.ReasoningContent != "" {
		content = append(content, ContentBlock{Type: blockTypeThinking, Thinking: message.ReasoningContent})
	}

	switch {
	case len(message.ToolCalls) > 0:
		if message.Content != "" {
			if sanitized := sanitizeLeadingMarkup(message.Content); sanitized != "" {
				content = append(content, ContentBlock{Type: blockTypeText, Text: sanitized})
			}
		}
		for _, tc := range message.ToolCalls {
			content = append(content, toolCallToBlock(tc))
		}

	case message.Role == "tool" || message.ToolCallID != "":
		content = append(content, ContentBlock{
			Type:      blockTypeToolResult,
			ToolUseID: message.ToolCallID,
			Content:   message.Content,
			IsError:   message.IsError,
		})

	default:
		content = append(content, ContentBlock{Type: blockTypeText, Text: sanitizeLeadingMarkup(message.Content)})
	}

	usage := Usage{}
	if resp.Usage != nil {
		usage.InputTokens = resp.Usage.PromptTokens
		usage.OutputTokens = resp.Usage.CompletionTokens
	}

	out := Response{
		ID:           newMessageID(),
		Type:         "message",
		Role:         "assistant",
		Model:        resp.Model,
		Content:      content,
		StopReason:   mapFinishReasonToStopReason(choice.FinishReason),
		StopSequence: nil,
		Usage:        usage,
	}

	return out, nil
}

// toolCallToBlock converts a dialect-C tool call into a tool_use block,
// parsing the arguments JSON string back into a map. Unparseable or empty
// arguments default to an empty object, matching the non-streaming path's
// tolerance for malformed upstream output.
func toolCallToBlock(tc chatcompletions.ToolCall) ContentBlock {
	id := tc.ID
	if id == "" {
		id = newToolUseID()
	}

	input := map[string]interface{}{}
	if tc.Function.Arguments != "" {
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
	}

	return ContentBlock{
		Type:  blockTypeToolUse,
		ID:    id,
		Name:  tc.Function.Name,
		Input: input,
	}
}
