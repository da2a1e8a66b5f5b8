package anthropic

import "github.com/google/uuid"

// idSuffixLength matches the 24-hex-character suffix Anthropic's own ids use
// ("msg_" + 24 hex, "toolu_" + 24 hex).
const idSuffixLength = 24

// newHexSuffix returns idSuffixLength hex characters taken from a fresh
// UUIDv4 with its hyphens stripped.
func newHexSuffix() string {
	raw := uuid.NewString()
	hex := make([]byte, 0, 32)
	for i := 0; i < len(raw); i++ {
		if raw[i] != '-' {
			hex = append(hex, raw[i])
		}
	}
	return string(hex[:idSuffixLength])
}

// newMessageID generates a fresh "msg_..." identifier for a dialect-M
// response or streaming message.
func newMessageID() string {
	return "msg_" + newHexSuffix()
}

// newToolUseID generates a fallback "toolu_..." identifier for a tool call
// the upstream didn't assign an id to.
func newToolUseID() string {
	return "toolu_" + newHexSuffix()
}
