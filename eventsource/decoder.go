// Package eventsource is a minimal text/event-stream client: a line decoder
// and a connection that dispatches decoded events to per-event listeners.
//
// Message ids and the retry field are parsed over but not acted on; there is
// no reconnection.
package eventsource

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// DefaultEvent is the event type of a message that carries no event field.
const DefaultEvent = "message"

// MaxLineSize is the longest line a Decoder accepts. Longer lines fail with
// bufio.ErrTooLong.
const MaxLineSize = 1 << 20

var errPartialLine = errors.New("eventsource: stream ended mid-line")

// Event is a single dispatched message.
type Event struct {
	Type string // event field, DefaultEvent if none was sent
	ID   string // last id field seen, if any
	Data string // data lines joined by "\n"
}

// Decoder reads events from a text/event-stream.
type Decoder struct {
	s      *bufio.Scanner
	skipLF bool
	lastID string
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	d := &Decoder{s: bufio.NewScanner(r)}
	d.s.Buffer(make([]byte, 0, 4096), MaxLineSize)
	d.s.Split(d.splitLines)
	return d
}

// splitLines ends a line at CRLF, LF or a lone CR. A CR ends the line as soon
// as it is seen so a CR-only stream never waits on the next byte; a LF directly
// after it is then dropped with the following line.
func (d *Decoder) splitLines(data []byte, atEOF bool) (int, []byte, error) {
	skip := 0
	if d.skipLF && len(data) > 0 && data[0] == '\n' {
		skip = 1
	}
	if i := bytes.IndexAny(data[skip:], "\r\n"); i >= 0 {
		d.skipLF = data[skip+i] == '\r'
		return skip + i + 1, data[skip : skip+i], nil
	}
	if !atEOF {
		return 0, nil, nil
	}
	if len(data) > skip {
		return 0, nil, errPartialLine
	}
	return len(data), nil, nil
}

// Next returns the next event with at least one data line. It returns io.EOF
// when the stream ends cleanly between events, and io.ErrUnexpectedEOF when it
// ends partway through one.
func (d *Decoder) Next() (Event, error) {
	var (
		eventType string
		dataLines []string
		pending   bool
	)
	for d.s.Scan() {
		line := d.s.Text()

		if line == "" {
			if dataLines == nil {
				// nothing to dispatch, reset and keep going
				eventType, pending = "", false
				continue
			}
			if eventType == "" {
				eventType = DefaultEvent
			}
			return Event{
				Type: eventType,
				ID:   d.lastID,
				Data: strings.Join(dataLines, "\n"),
			}, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseField(line)
		pending = true
		switch field {
		case "event":
			eventType = value
		case "data":
			dataLines = append(dataLines, value)
		case "id":
			if !strings.ContainsRune(value, 0) {
				d.lastID = value
			}
		}
	}

	switch err := d.s.Err(); {
	case err == errPartialLine:
		return Event{}, io.ErrUnexpectedEOF
	case err != nil:
		return Event{}, err
	case pending:
		return Event{}, io.ErrUnexpectedEOF
	}
	return Event{}, io.EOF
}

// parseField splits a line into field name and value, dropping a single space
// after the colon.
func parseField(line string) (field, value string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
