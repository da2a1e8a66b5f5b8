// Package sse implements the narrow slice of server-sent events relay
// needs: decoding an upstream byte stream into `data:` payloads, and
// encoding a named dialect-M frame back into `event:`/`data:` wire format.
package sse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const dataPrefix = "data: "

// Decoder splits an upstream byte stream into SSE payloads. A frame ends at
// the first blank line; every `data: ` line within a frame yields one
// payload, in order. Any other line kind (event:, id:, comments, blank
// padding) is ignored. Leftover bytes at stream end are flushed through the
// same line-splitting rule, so a final frame without a trailing blank line
// still yields its payloads.
type Decoder struct {
	scanner *bufio.Scanner
	pending []string
}

// NewDecoder wraps r. The scanner buffer starts at 64 KiB and may grow to
// 1 MiB per frame, so long tool-argument chunks don't fail with "token too
// long" errors.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1<<20)
	scanner.Split(splitFrames)
	return &Decoder{scanner: scanner}
}

// Next returns the next payload and true, or ("", false, nil) once the
// stream is exhausted. A read error from the underlying reader is returned
// as err with ok=false.
func (d *Decoder) Next() (payload string, ok bool, err error) {
	for len(d.pending) == 0 {
		if !d.scanner.Scan() {
			if err := d.scanner.Err(); err != nil {
				return "", false, err
			}
			return "", false, nil
		}
		d.pending = extractPayloads(d.scanner.Text())
	}

	payload, d.pending = d.pending[0], d.pending[1:]
	return payload, true, nil
}

// extractPayloads pulls every `data: ` line out of one frame's raw text, in
// order.
func extractPayloads(frame string) []string {
	var payloads []string
	for _, line := range strings.Split(frame, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, dataPrefix) {
			payloads = append(payloads, strings.TrimPrefix(line, dataPrefix))
		}
	}
	return payloads
}

// splitFrames is a bufio.SplitFunc that breaks the stream on the first
// "\n\n" (a blank line terminating a frame). At EOF, any remaining bytes are
// returned as a final frame.
func splitFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.Index(data, []byte("\n\n")); i >= 0 {
		return i + 2, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Encode writes one SSE frame: "event: <name>\ndata: <compact-json>\n\n".
func Encode(w io.Writer, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal event %q: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("sse: write event %q: %w", event, err)
	}
	return nil
}
