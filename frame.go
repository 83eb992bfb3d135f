package ssestream

import "strings"

// frame is a single tagged message, ready to be encoded onto the event stream.
type frame struct {
	Tag  string // channel tag, sent as the SSE event name
	Data []byte // JSON encoded Envelope
}

// keepaliveMsg is a SSE comment line, ignored by every conforming client.
// https://html.spec.whatwg.org/multipage/server-sent-events.html#event-stream-interpretation
var keepaliveMsg = []byte(":keepalive\n")

// sseFormat is the formatted bytestring for a frame, ready to be written.
//
// The event line and the data line are coalesced into one buffer so the frame
// reaches the transport in a single write.
func (f frame) sseFormat() []byte {
	b := make([]byte, 0, 7+len(f.Tag)+1+6+len(f.Data)+2)
	b = append(b, "event: "...)
	b = append(b, f.Tag...)
	b = append(b, '\n')
	b = append(b, "data: "...)
	b = append(b, f.Data...)
	b = append(b, '\n', '\n')
	return b
}

// validTag reports whether tag can be framed without corrupting the stream.
// An empty tag is rejected too: parsers dispatch an empty event field as
// "message", so nothing listening for "" would ever see it.
func validTag(tag string) bool {
	return tag != "" && !strings.ContainsAny(tag, "\r\n")
}
