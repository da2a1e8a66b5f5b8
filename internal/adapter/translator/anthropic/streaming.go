package anthropic

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"

	"github.com/sparrowhq/relay/internal/adapter/translator"
	"github.com/sparrowhq/relay/internal/adapter/translator/chatcompletions"
)

const doneMarker = "[DONE]"

// blockKind tags which variant, if any, is currently open on the stream
// translator. Only one block is ever open at a time.
type blockKind int

const (
	blockNone blockKind = iota
	blockText
	blockThinking
	blockToolCall
	blockToolResult
)

// StreamTranslator is the per-request state machine that turns decoded
// dialect-C `data:` payloads into dialect-M frames. Never shared across
// goroutines or reused across requests -- a fresh one is minted per
// streaming call by Translator.NewStreamTranslator.
type StreamTranslator struct {
	msgID string
	model string

	contentIndex int
	active       blockKind

	toolCallID    string
	toolCallName  string
	toolCallArgs  bytes.Buffer
	toolResultID  string
	toolResultErr bool
	thinkingBuf   bytes.Buffer

	inputTokens      int
	outputTokens     int
	lastFinishReason string

	started  bool
	finished bool
}

func newStreamTranslator(model string) *StreamTranslator {
	return &StreamTranslator{
		msgID:        newMessageID(),
		model:        model,
		contentIndex: -1,
		active:       blockNone,
	}
}

// Start emits the opening message_start frame. Called exactly once before
// any Process call.
func (s *StreamTranslator) Start() []translator.Frame {
	s.started = true
	return []translator.Frame{
		{
			Event: eventMessageStart,
			Data: messageStartPayload{
				Type: "message_start",
				Message: messageStartMessage{
					ID:      s.msgID,
					Type:    "message",
					Role:    "assistant",
					Model:   s.model,
					Content: []ContentBlock{},
					Usage:   Usage{},
				},
			},
		},
	}
}

// Process consumes one decoded upstream payload and returns the frames it
// produces. A malformed payload yields no frames.
func (s *StreamTranslator) Process(payload []byte) []translator.Frame {
	if s.finished {
		return nil
	}

	trimmed := bytes.TrimSpace(payload)
	if string(trimmed) == doneMarker {
		return s.terminate()
	}

	chunk, ok := chatcompletions.ParseStreamChunk(trimmed)
	if !ok {
		return nil
	}

	var frames []translator.Frame

	if chunk.Usage != nil {
		if chunk.Usage.PromptTokens != 0 {
			s.inputTokens = chunk.Usage.PromptTokens
		}
		if chunk.Usage.CompletionTokens != 0 {
			s.outputTokens = chunk.Usage.CompletionTokens
		}
	}

	for _, choice := range chunk.Choices {
		if choice.FinishReason != "" {
			s.lastFinishReason = choice.FinishReason
		}

		delta := choice.Delta

		if delta.ReasoningContent != "" {
			frames = append(frames, s.thinkingTransition(delta.ReasoningContent)...)
		}
		for _, tc := range delta.ToolCalls {
			frames = append(frames, s.toolCallTransition(tc)...)
		}
		if delta.Role == "tool" || delta.ToolCallID != "" {
			frames = append(frames, s.toolResultStart(delta.ToolCallID, delta.IsError)...)
		}
		if s.active == blockToolResult && delta.Content != "" {
			frames = append(frames, s.toolResultContent(delta.Content)...)
		} else if delta.Content != "" {
			frames = append(frames, s.textTransition(delta.Content)...)
		}
	}

	return frames
}

// Finish emits the terminal frames if the upstream byte stream ended
// without ever sending [DONE]. A no-op once finished is already set.
func (s *StreamTranslator) Finish() []translator.Frame {
	if s.finished {
		return nil
	}
	return s.terminate()
}

func (s *StreamTranslator) terminate() []translator.Frame {
	frames := s.closeCurrentBlock()

	stopReason := "end_turn"
	if s.lastFinishReason != "" {
		stopReason = mapFinishReasonToStopReason(s.lastFinishReason)
	}

	frames = append(frames,
		translator.Frame{
			Event: eventMessageDelta,
			Data: messageDeltaPayload{
				Type: "message_delta",
				Delta: messageDeltaInner{
					StopReason:   stopReason,
					StopSequence: nil,
				},
				Usage: messageDeltaUsage{OutputTokens: s.outputTokens},
			},
		},
		translator.Frame{
			Event: eventMessageStop,
			Data:  messageStopPayload{Type: "message_stop"},
		},
	)

	s.finished = true
	return frames
}

// closeCurrentBlock implements the close-current-block rule: a thinking
// block emits its signature_delta first, then any open block gets its
// content_block_stop. Returns to idle either way.
func (s *StreamTranslator) closeCurrentBlock() []translator.Frame {
	var frames []translator.Frame

	if s.active == blockThinking {
		sum := sha256.Sum256(s.thinkingBuf.Bytes())
		frames = append(frames, translator.Frame{
			Event: eventContentBlockDelta,
			Data: contentBlockDeltaPayload{
				Type:  "content_block_delta",
				Index: s.contentIndex,
				Delta: signatureDelta{
					Type:      "signature_delta",
					Signature: base64.StdEncoding.EncodeToString(sum[:]),
				},
			},
		})
	}

	if s.active != blockNone {
		frames = append(frames, translator.Frame{
			Event: eventContentBlockStop,
			Data:  contentBlockStopPayload{Type: "content_block_stop", Index: s.contentIndex},
		})
	}

	s.active = blockNone
	return frames
}

func (s *StreamTranslator) textTransition(fragment string) []translator.Frame {
	if s.active != blockText {
		sanitized := sanitizeLeadingMarkup(fragment)
		if sanitized == "" {
			return nil
		}

		frames := s.closeCurrentBlock()
		s.contentIndex++
		s.active = blockText

		frames = append(frames,
			translator.Frame{
				Event: eventContentBlockStart,
				Data: contentBlockStartPayload{
					Type:         "content_block_start",
					Index:        s.contentIndex,
					ContentBlock: ContentBlock{Type: blockTypeText, Text: ""},
				},
			},
			translator.Frame{
				Event: eventContentBlockDelta,
				Data: contentBlockDeltaPayload{
					Type:  "content_block_delta",
					Index: s.contentIndex,
					Delta: textDelta{Type: "text_delta", Text: sanitized},
				},
			},
		)
		return frames
	}

	return []translator.Frame{
		{
			Event: eventContentBlockDelta,
			Data: contentBlockDeltaPayload{
				Type:  "content_block_delta",
				Index: s.contentIndex,
				Delta: textDelta{Type: "text_delta", Text: fragment},
			},
		},
	}
}

func (s *StreamTranslator) thinkingTransition(fragment string) []translator.Frame {
	var frames []translator.Frame

	if s.active != blockThinking {
		frames = append(frames, s.closeCurrentBlock()...)
		s.contentIndex++
		s.active = blockThinking
		s.thinkingBuf.Reset()

		frames = append(frames, translator.Frame{
			Event: eventContentBlockStart,
			Data: contentBlockStartPayload{
				Type:         "content_block_start",
				Index:        s.contentIndex,
				ContentBlock: ContentBlock{Type: blockTypeThinking, Thinking: ""},
			},
		})
	}

	s.thinkingBuf.WriteString(fragment)
	frames = append(frames, translator.Frame{
		Event: eventContentBlockDelta,
		Data: contentBlockDeltaPayload{
			Type:  "content_block_delta",
			Index: s.contentIndex,
			Delta: thinkingDelta{Type: "thinking_delta", Thinking: fragment},
		},
	})
	return frames
}

func (s *StreamTranslator) toolCallTransition(tc chatcompletions.ToolCall) []translator.Frame {
	var frames []translator.Frame

	startsNewBlock := tc.ID != ""
	if startsNewBlock {
		frames = append(frames, s.closeCurrentBlock()...)
		s.contentIndex++
		s.active = blockToolCall
		s.toolCallID = tc.ID
		s.toolCallName = tc.Function.Name
		s.toolCallArgs.Reset()

		frames = append(frames, translator.Frame{
			Event: eventContentBlockStart,
			Data: contentBlockStartPayload{
				Type:  "content_block_start",
				Index: s.contentIndex,
				ContentBlock: ContentBlock{
					Type:  blockTypeToolUse,
					ID:    s.toolCallID,
					Name:  s.toolCallName,
					Input: map[string]interface{}{},
				},
			},
		})
	}

	if tc.Function.Arguments != "" {
		s.toolCallArgs.WriteString(tc.Function.Arguments)
		frames = append(frames, translator.Frame{
			Event: eventContentBlockDelta,
			Data: contentBlockDeltaPayload{
				Type:  "content_block_delta",
				Index: s.contentIndex,
				Delta: inputJSONDelta{Type: "input_json_delta", PartialJSON: tc.Function.Arguments},
			},
		})
	}

	return frames
}

func (s *StreamTranslator) toolResultStart(toolCallID string, isError bool) []translator.Frame {
	if s.active == blockToolResult {
		return nil
	}

	frames := s.closeCurrentBlock()

	if toolCallID == "" {
		return frames
	}

	s.contentIndex++
	s.active = blockToolResult
	s.toolResultID = toolCallID
	s.toolResultErr = isError

	frames = append(frames, translator.Frame{
		Event: eventContentBlockStart,
		Data: contentBlockStartPayload{
			Type:  "content_block_start",
			Index: s.contentIndex,
			ContentBlock: ContentBlock{
				Type:      blockTypeToolResult,
				ToolUseID: s.toolResultID,
				Content:   "",
				IsError:   s.toolResultErr,
			},
		},
	})
	return frames
}

func (s *StreamTranslator) toolResultContent(fragment string) []translator.Frame {
	return []translator.Frame{
		{
			Event: eventContentBlockDelta,
			Data: contentBlockDeltaPayload{
				Type:  "content_block_delta",
				Index: s.contentIndex,
				Delta: contentDelta{Type: "content_delta", PartialJSON: fragment},
			},
		},
	}
}
