package anthropic

import "strings"

// sanitizeLeadingMarkup strips hallucinated reasoning markup that some
// upstream models prepend to their first text fragment -- models trained
// alongside a visible scratchpad sometimes leak its closing tag into the
// answer channel. Only ever applied to the first fragment of a text block
// (see the stream translator and the non-streaming response translator);
// applying it further in would eat legitimate leading whitespace.
var sanitizeTokens = []string{
	"</thinking>",
	"<thinking>",
	"</thought>",
	"<thought>",
	"</reasoning>",
	"<reasoning>",
	"[End of Reasoning]",
	"[Reasoning]:",
	"Reasoning:",
	"Thought:",
	"\n\n",
	"\n",
}

// sanitizeLeadingMarkup repeatedly strips leading whitespace and any token in
// sanitizeTokens (case-insensitively) from the front of s until nothing more
// matches. Idempotent: sanitizeLeadingMarkup(sanitizeLeadingMarkup(x)) ==
// sanitizeLeadingMarkup(x), since the loop only stops once no prefix
// matches.
func sanitizeLeadingMarkup(s string) string {
	for {
		s = strings.TrimLeft(s, " \t\r\n")

		stripped := false
		for _, token := range sanitizeTokens {
			if len(s) >= len(token) && strings.EqualFold(s[:len(token)], token) {
				s = s[len(token):]
				stripped = true
				break
			}
		}

		if !stripped {
			return s
		}
	}
}
