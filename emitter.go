package ssestream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/azer/debug"
)

// DefaultKeepalive is how often an idle stream gets a keepalive comment, to
// prevent the connection from being closed by an intermediary's timeout.
const DefaultKeepalive = 15 * time.Second

// State is the lifecycle position of an Emitter.
type State int

const (
	Unopened State = iota
	Opened
	Closed
)

func (s State) String() string {
	switch s {
	case Unopened:
		return "unopened"
	case Opened:
		return "open"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Observer receives lifecycle notifications from an Emitter. Calls are made
// while the Emitter holds its lock, so implementations must not call back
// into it.
type Observer interface {
	Opened(tag string)
	Pushed(tag string, size int)
	Closed(tag string, aborted bool)
}

type emitterConfig struct {
	onError   func(error)
	observers []Observer
	keepalive time.Duration
}

// EmitterOption configures an Emitter.
type EmitterOption func(c *emitterConfig)

// WithErrorHandler sets the side channel for errors the Emitter cannot return
// to a caller, such as a failed termination write during an abort.
func WithErrorHandler(fn func(error)) EmitterOption {
	return func(c *emitterConfig) {
		c.onError = fn
	}
}

// WithObserver adds o to the Emitter's observers. It may be given more than once.
func WithObserver(o Observer) EmitterOption {
	return func(c *emitterConfig) {
		c.observers = append(c.observers, o)
	}
}

// WithKeepalive sets the keepalive interval of the Response returned by Open.
// A value <= 0 disables keepalives.
func WithKeepalive(d time.Duration) EmitterOption {
	return func(c *emitterConfig) {
		c.keepalive = d
	}
}

// Emitter is the server side of a connection pairing. It owns the write end of
// a pipe whose read end is handed out by Open, and writes one frame per Push.
//
// An Emitter moves from unopened to open via Open, and to closed via Close or
// when the context it was created with is done. Closed is terminal.
//
// The Response returned by Open must be served (or closed) for Push and Close
// to make progress, since each write blocks until it is read.
type Emitter[T any] struct {
	tag  string
	conf emitterConfig

	mu    sync.Mutex
	state State
	pw    *io.PipeWriter
	stop  func() bool // unregisters the abort callback
}

// NewEmitter returns an unopened Emitter for the channel tag.
//
// When ctx is done the Emitter is closed through the same path as Close, so a
// disconnecting peer still gets a termination frame written if the stream is
// being served.
func NewEmitter[T any](ctx context.Context, tag string, opts ...EmitterOption) *Emitter[T] {
	e := &Emitter[T]{
		tag:  tag,
		conf: emitterConfig{keepalive: DefaultKeepalive},
	}
	for _, opt := range opts {
		opt(&e.conf)
	}
	e.stop = context.AfterFunc(ctx, e.abort)
	return e
}

// Tag returns the channel tag the Emitter frames its messages with.
func (e *Emitter[T]) Tag() string {
	return e.tag
}

// State returns the current lifecycle state.
func (e *Emitter[T]) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Open transitions the Emitter to open and returns the Response carrying the
// read side of the stream. It may only succeed once.
func (e *Emitter[T]) Open() (*Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case Opened:
		return nil, ErrAlreadyOpen
	case Closed:
		return nil, ErrClosed
	}
	if !validTag(e.tag) {
		return nil, ErrInvalidTag
	}

	pr, pw := io.Pipe()
	e.pw = pw
	e.state = Opened
	for _, o := range e.conf.observers {
		o.Opened(e.tag)
	}
	debug.Debug("emitter opened for " + e.tag)
	return newResponse(pr, e.conf.keepalive), nil
}

// Push wraps v in a running envelope and writes it as a single frame.
//
// If the read side of the stream has already been closed, Push closes the
// Emitter and returns an error matching ErrClosed.
func (e *Emitter[T]) Push(v T) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case Unopened:
		return ErrNotOpen
	case Closed:
		return ErrClosed
	}

	data, err := json.Marshal(Envelope[T]{Payload: v, Status: StatusRunning})
	if err != nil {
		return fmt.Errorf("ssestream: encode payload: %w", err)
	}
	msg := frame{Tag: e.tag, Data: data}.sseFormat()
	if _, err := e.pw.Write(msg); err != nil {
		// the read side is gone, so a termination frame has nowhere to go
		debug.Debug("error writing frame for " + e.tag + ": " + err.Error())
		e.stop()
		e.state = Closed
		e.pw.Close()
		for _, o := range e.conf.observers {
			o.Closed(e.tag, true)
		}
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	for _, o := range e.conf.observers {
		o.Pushed(e.tag, len(msg))
	}
	return nil
}

// Close writes the termination frame and closes the write side of the stream.
//
// Only the first Close does anything; later calls return ErrClosed without
// touching the stream again. Close on an unopened Emitter returns ErrNotOpen.
func (e *Emitter[T]) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case Unopened:
		return ErrNotOpen
	case Closed:
		return ErrClosed
	}
	e.stop()
	return e.closeLocked(false)
}

// abort runs when the Emitter's context is done.
func (e *Emitter[T]) abort() {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case Closed:
		return
	case Unopened:
		// nobody can be listening yet, there is nothing to terminate
		e.state = Closed
		debug.Debug("context done before open for " + e.tag)
		return
	}

	debug.Debug("peer went away, closing " + e.tag)
	e.report(ErrAbortedByPeer)
	if err := e.closeLocked(true); err != nil {
		e.report(err)
	}
}

func (e *Emitter[T]) closeLocked(aborted bool) error {
	e.state = Closed
	_, werr := e.pw.Write(frame{Tag: e.tag, Data: terminateEnvelope}.sseFormat())
	e.pw.Close()
	for _, o := range e.conf.observers {
		o.Closed(e.tag, aborted)
	}
	if werr != nil {
		debug.Debug("error writing termination frame for " + e.tag + ": " + werr.Error())
		return fmt.Errorf("ssestream: write termination frame: %w", werr)
	}
	return nil
}

func (e *Emitter[T]) report(err error) {
	if e.conf.onError != nil {
		e.conf.onError(err)
	}
}
