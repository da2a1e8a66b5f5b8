package anthropic

// mapFinishReasonToStopReason is the total function from dialect-C finish
// reasons to dialect-M stop reasons, shared by the non-streaming response
// translator and the stream translator's terminal frame.
func mapFinishReasonToStopReason(finishReason string) string {
	switch finishReason {
	case "stop":
		return "end_turn"
	case "tool_calls":
		return blockTypeToolUse
	case "length":
		return "max_tokens"
	case "content_filter":
		return "end_turn"
	default:
		return "end_turn"
	}
}
