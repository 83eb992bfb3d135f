package ssestream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/azer/debug"
	"github.com/mroth/ssestream/eventsource"
)

type receiverConfig struct {
	client  *http.Client
	onError func(error)
}

// ReceiverOption configures a Receiver.
type ReceiverOption func(c *receiverConfig)

// WithHTTPClient sets the client used to open the subscription.
func WithHTTPClient(client *http.Client) ReceiverOption {
	return func(c *receiverConfig) {
		c.client = client
	}
}

// WithReceiverErrorHandler sets where per-message decode errors are reported.
// Without one they are only visible in debug output.
func WithReceiverErrorHandler(fn func(error)) ReceiverOption {
	return func(c *receiverConfig) {
		c.onError = fn
	}
}

// Receiver is the client side of a connection pairing. It calls onData once for
// every running envelope on its channel tag, in wire order, and tears the
// subscription down when the termination envelope arrives.
//
// A Receiver has no timeout of its own: if the connection is lost silently,
// onData is simply never called again. Use Close, or cancel the context given
// to Subscribe, to give up on a stream early.
type Receiver[T any] struct {
	tag    string
	conn   *eventsource.Conn
	onData func(T)
	conf   receiverConfig

	terminated atomic.Bool
}

// Subscribe opens url and starts delivering the payloads of messages framed
// with tag to onData.
func Subscribe[T any](ctx context.Context, url, tag string, onData func(T), opts ...ReceiverOption) (*Receiver[T], error) {
	var conf receiverConfig
	for _, opt := range opts {
		opt(&conf)
	}
	if !validTag(tag) {
		return nil, ErrInvalidTag
	}

	conn, err := eventsource.Dial(ctx, conf.client, url)
	if err != nil {
		return nil, fmt.Errorf("ssestream: subscribe: %w", err)
	}

	r := &Receiver[T]{
		tag:    tag,
		conn:   conn,
		onData: onData,
		conf:   conf,
	}
	conn.AddEventListener(tag, r.handle)
	conn.Start()
	debug.Debug("subscribed to " + tag + " at " + url)
	return r, nil
}

func (r *Receiver[T]) handle(ev eventsource.Event) {
	var env rawEnvelope
	if err := json.Unmarshal([]byte(ev.Data), &env); err != nil {
		r.report(fmt.Errorf("%w: %s: %v", ErrMalformedPayload, r.tag, err))
		return
	}

	switch env.Status {
	case StatusTerminate:
		debug.Debug("termination received for " + r.tag)
		r.terminated.Store(true)
		r.conn.Close()
		return
	case StatusRunning:
	default:
		r.report(fmt.Errorf("%w: %s: unknown status %q", ErrMalformedPayload, r.tag, env.Status))
		return
	}

	var v T
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			r.report(fmt.Errorf("%w: %s: %v", ErrMalformedPayload, r.tag, err))
			return
		}
	}
	if r.onData != nil {
		r.onData(v)
	}
}

func (r *Receiver[T]) report(err error) {
	debug.Debug(err.Error())
	if r.conf.onError != nil {
		r.conf.onError(err)
	}
}

// Close abandons the subscription. It is safe to call more than once, and
// after the stream has terminated.
func (r *Receiver[T]) Close() error {
	return r.conn.Close()
}

// Done is closed once the subscription has been released, whether by the
// termination envelope, Close, or the connection ending.
func (r *Receiver[T]) Done() <-chan struct{} {
	return r.conn.Done()
}

// Terminated reports whether the termination envelope has been received.
func (r *Receiver[T]) Terminated() bool {
	return r.terminated.Load()
}

// Err reports why the subscription ended. It is nil after a termination
// envelope or Close, and wraps ErrUnterminated if the connection ended first.
// Only meaningful once Done is closed.
func (r *Receiver[T]) Err() error {
	if err := r.conn.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnterminated, err)
	}
	return nil
}
