package anthropic

// The stream translator's Start/Process/Finish methods return
// []translator.Frame directly (package anthropic has no frame type of its
// own); the payload structs below are what goes in each Frame's Data field.

const (
	eventMessageStart      = "message_start"
	eventContentBlockStart = "content_block_start"
	eventContentBlockDelta = "content_block_delta"
	eventContentBlockStop  = "content_block_stop"
	eventMessageDelta      = "message_delta"
	eventMessageStop       = "message_stop"
)

type messageStartPayload struct {
	Type    string              `json:"type"`
	Message messageStartMessage `json:"message"`
}

type messageStartMessage struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Role    string         `json:"role"`
	Model   string         `json:"model"`
	Content []ContentBlock `json:"content"`
	Usage   Usage          `json:"usage"`
}

type contentBlockStartPayload struct {
	Type         string       `json:"type"`
	Index        int          `json:"index"`
	ContentBlock ContentBlock `json:"content_block"`
}

type contentBlockDeltaPayload struct {
	Type  string      `json:"type"`
	Index int         `json:"index"`
	Delta interface{} `json:"delta"`
}

type textDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type inputJSONDelta struct {
	Type        string `json:"type"`
	PartialJSON string `json:"partial_json"`
}

type thinkingDelta struct {
	Type     string `json:"type"`
	Thinking string `json:"thinking"`
}

type signatureDelta struct {
	Type      string `json:"type"`
	Signature string `json:"signature"`
}

// contentDelta streams tool-result content verbatim. relay does not attempt
// to reconstruct structured tool-result content mid-stream; fragments are
// forwarded as opaque partial_json.
type contentDelta struct {
	Type        string `json:"type"`
	PartialJSON string `json:"partial_json"`
}

type contentBlockStopPayload struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

type messageDeltaPayload struct {
	Type  string            `json:"type"`
	Delta messageDeltaInner `json:"delta"`
	Usage messageDeltaUsage `json:"usage"`
}

type messageDeltaInner struct {
	StopReason   string  `json:"stop_reason,omitempty"`
	StopSequence *string `json:"stop_sequence"`
}

type messageDeltaUsage struct {
	OutputTokens int `json:"output_tokens"`
}

type messageStopPayload struct {
	Type string `json:"type"`
}
