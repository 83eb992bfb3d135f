package ssestream

import "encoding/json"

// Status is the discriminant carried by every Envelope.
type Status string

const (
	StatusRunning   Status = "running"   // envelope carries an application payload
	StatusTerminate Status = "terminate" // end of stream, payload is always null
)

// Envelope is the unit of information carried by a single frame.
//
// Payload is an application defined value; anything encoding/json can marshal
// works, whether a struct, a map[string]any or a scalar.
type Envelope[T any] struct {
	Payload T      `json:"payload"`
	Status  Status `json:"status"`
}

// terminateEnvelope is the same for every channel and every Emitter.
var terminateEnvelope = []byte(`{"payload":null,"status":"terminate"}`)

// IsTerminate reports whether the envelope marks the end of a stream.
func (e Envelope[T]) IsTerminate() bool {
	return e.Status == StatusTerminate
}

// rawEnvelope defers payload decoding until the status is known, so a
// termination envelope is recognized regardless of the receiver's payload type.
type rawEnvelope struct {
	Payload json.RawMessage `json:"payload"`
	Status  Status          `json:"status"`
}
