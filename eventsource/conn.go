package eventsource

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
)

// Conn is an open subscription to an event stream.
//
// Register listeners with AddEventListener, then call Start. Listeners run one
// at a time on the connection's reader goroutine, in the order events arrive.
type Conn struct {
	body   interface{ Close() error }
	dec    *Decoder
	cancel context.CancelFunc

	mu        sync.Mutex
	listeners map[string][]func(Event)
	err       error

	startOnce sync.Once
	closeOnce sync.Once
	closed    atomic.Bool
	done      chan struct{}
}

// Dial issues a GET for url and returns a Conn once the response headers have
// arrived. A nil client means http.DefaultClient.
func Dial(ctx context.Context, client *http.Client, url string) (*Conn, error) {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("eventsource: GET %s failed: %s", url, resp.Status)
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/event-stream" {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("eventsource: GET %s: unexpected content type %q", url, mt)
	}

	return &Conn{
		body:      resp.Body,
		dec:       NewDecoder(resp.Body),
		cancel:    cancel,
		listeners: make(map[string][]func(Event)),
		done:      make(chan struct{}),
	}, nil
}

// AddEventListener registers fn for events of the given type. Events with no
// listener are dropped.
func (c *Conn) AddEventListener(event string, fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[event] = append(c.listeners[event], fn)
}

// Start begins reading the stream in a new goroutine. Calls after the first,
// or after Close, do nothing.
func (c *Conn) Start() {
	c.startOnce.Do(func() {
		go c.run()
	})
}

// Close tears the subscription down. It is safe to call from a listener and
// more than once. It does not wait for the reader goroutine; use Done for that.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()
		// never started, nobody else will release the body
		c.startOnce.Do(func() {
			c.body.Close()
			close(c.done)
		})
	})
	return nil
}

// Done is closed once the Conn has stopped reading and released the response.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err reports why the stream stopped: nil after Close, io.EOF if the server
// ended the stream between events, or the read error otherwise.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Conn) run() {
	defer close(c.done)
	defer c.cancel()
	defer c.body.Close()

	for {
		ev, err := c.dec.Next()
		if err != nil {
			if !c.closed.Load() {
				c.mu.Lock()
				c.err = err
				c.mu.Unlock()
			}
			return
		}
		for _, fn := range c.listenersFor(ev.Type) {
			fn(ev)
			if c.closed.Load() {
				return
			}
		}
	}
}

func (c *Conn) listenersFor(event string) []func(Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.listeners[event])
}
