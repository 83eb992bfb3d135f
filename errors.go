package ssestream

import "errors"

var (
	// ErrNotOpen is returned by Push or Close on an Emitter that was never opened.
	ErrNotOpen = errors.New("ssestream: emitter not open")

	// ErrAlreadyOpen is returned by a second call to Open.
	ErrAlreadyOpen = errors.New("ssestream: emitter already open")

	// ErrClosed is returned by Push, Close or Open once an Emitter is closed,
	// whether by an explicit Close or because the peer went away.
	ErrClosed = errors.New("ssestream: emitter closed")

	// ErrInvalidTag is returned when a channel tag cannot be framed.
	ErrInvalidTag = errors.New("ssestream: channel tag is empty or contains a line break")

	// ErrAbortedByPeer is reported to an Emitter's error handler when the
	// request context ends before Close. It is a diagnostic, not a failure.
	ErrAbortedByPeer = errors.New("ssestream: aborted by peer")

	// ErrMalformedPayload is reported by a Receiver for an inbound message it
	// could not decode. The message is skipped and the subscription continues.
	ErrMalformedPayload = errors.New("ssestream: malformed payload")

	// ErrUnterminated is the Receiver's Err when the stream ended without a
	// termination envelope.
	ErrUnterminated = errors.New("ssestream: stream ended without termination")
)
