package anthropic

// Content-block type tags, shared by the request translator (reading
// dialect-M input), the response translator (writing dialect-M output) and
// the stream translator (writing dialect-M frames).
const (
	blockTypeText       = "text"
	blockTypeImage      = "image"
	blockTypeToolUse    = "tool_use"
	blockTypeToolResult = "tool_result"
	blockTypeThinking   = "thinking"
)

// tool_choice string forms (dialect M) and their chatcompletions mapping.
const (
	toolChoiceAuto = "auto"
	toolChoiceAny  = "any"
	toolChoiceTool = "tool"

	chatToolChoiceAuto     = "auto"
	chatToolChoiceRequired = "required"
)

const chatToolTypeFunction = "function"

// maxRequestBodySize bounds how much of an incoming request body the
// request translator will read, guarding against a client streaming an
// unbounded body at relay.
const maxRequestBodySize = 10 << 20 // 10 MiB
