package ssestream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/azer/debug"
	"github.com/mroth/ssestream/internal/metrics"
	"github.com/mroth/ssestream/router"
)

// Server is a http.Handler that opens one stream pairing per request.
//
// Producers are registered with Handle at hierarchical paths; a request is
// served by the producer registered at the deepest path that is a prefix of
// the request path. Every request gets its own Emitter, nothing is shared
// between pairings.
//
// Server does not strip any prefix from the request path, so when mounting it
// under a sub-path wrap it with http.StripPrefix.
type Server struct {
	hub *hub

	mu     sync.RWMutex
	routes *router.Node[route]

	conf serverConfig
}

// serverConfig defines configurable options that can be customized for a Server.
type serverConfig struct {
	CORSAllowOrigin string        // Access-Control-Allow-Origin header value (dont send header if blank)
	Keepalive       time.Duration // keepalive comment interval for new streams
	Metrics         bool          // record Prometheus metrics for pairings
}

// route is the type-erased form of a producer registered with Handle.
type route struct {
	tag   string
	serve func(s *Server, w http.ResponseWriter, r *http.Request)
}

// NewServer creates a new Server with optional ServerOptions for configuration.
func NewServer(opts ...ServerOption) (*Server, error) {
	s := &Server{
		hub:    newHub(),
		routes: router.New[route](),
		conf: serverConfig{
			CORSAllowOrigin: "*",
			Keepalive:       DefaultKeepalive,
			Metrics:         true,
		},
	}

	// set configuration from provided options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.hub.Start()
	return s, nil
}

// ServerOption defines a set of high-level user options that can be customized
type ServerOption func(s *Server) error

// WithCORSAllowOrigin sets the Access-Control-Allow-Origin header value to
// origin. The default is "*". If set to the zero value (""), the header will
// not be sent.
//
// See https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Access-Control-Allow-Origin.
func WithCORSAllowOrigin(origin string) ServerOption {
	return func(s *Server) error {
		s.conf.CORSAllowOrigin = origin
		return nil
	}
}

// WithKeepaliveInterval sets how often idle streams get a keepalive comment.
// Zero disables keepalives.
func WithKeepaliveInterval(d time.Duration) ServerOption {
	return func(s *Server) error {
		if d < 0 {
			return fmt.Errorf("ssestream: negative keepalive interval %v", d)
		}
		s.conf.Keepalive = d
		return nil
	}
}

// WithMetrics turns Prometheus instrumentation of pairings on or off. It is on
// by default.
func WithMetrics(enabled bool) ServerOption {
	return func(s *Server) error {
		s.conf.Metrics = enabled
		return nil
	}
}

// StreamFunc produces the messages of one pairing. It runs in its own goroutine
// while the response is being served, and the Emitter is closed when it
// returns. It must return once the request context is done; Push returns
// ErrClosed from then on.
type StreamFunc[T any] func(r *http.Request, e *Emitter[T]) error

// Handle registers fn to serve streams tagged tag for requests under path.
// Registering the same path again replaces the previous producer.
func Handle[T any](s *Server, path, tag string, fn StreamFunc[T]) error {
	if !validTag(tag) {
		return ErrInvalidTag
	}
	rt := route{
		tag: tag,
		serve: func(s *Server, w http.ResponseWriter, r *http.Request) {
			serveStream(s, w, r, tag, fn)
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes.InsertAt(router.NS(path), rt)
	return nil
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	n, ok := s.routes.Lookup(router.NS(r.URL.Path))
	var rt route
	if ok {
		rt, _ = n.Value()
	}
	s.mu.RUnlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	rt.serve(s, w, r)
}

func serveStream[T any](s *Server, w http.ResponseWriter, r *http.Request, tag string, fn StreamFunc[T]) {
	// the pairing context ends with the request, or earlier on Shutdown
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	p := newPairing(r, tag, cancel)
	if !s.hub.add(p) {
		http.Error(w, "503 server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.hub.remove(p)

	opts := []EmitterOption{
		WithObserver(p),
		WithKeepalive(s.conf.Keepalive),
		WithErrorHandler(func(err error) {
			debug.Debug("pairing " + p.id + ": " + err.Error())
		}),
	}
	if s.conf.Metrics {
		opts = append(opts, WithObserver(metrics.Observer{}))
	}
	e := NewEmitter[T](ctx, tag, opts...)
	resp, err := e.Open()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if s.conf.CORSAllowOrigin == "" {
		resp.Header.Del("Access-Control-Allow-Origin")
	} else {
		resp.Header.Set("Access-Control-Allow-Origin", s.conf.CORSAllowOrigin)
	}

	log.Println("CONNECT\t", tag, "\t", p.clientIP)
	defer log.Println("DISCONNECT\t", tag, "\t", p.clientIP)

	produced := make(chan struct{})
	go func() {
		defer close(produced)
		err := fn(r.WithContext(ctx), e)
		if err != nil && !errors.Is(err, ErrClosed) && !errors.Is(err, context.Canceled) {
			log.Printf("stream %s: producer error: %v", tag, err)
		}
		if err := e.Close(); err != nil && !errors.Is(err, ErrClosed) {
			debug.Debug("pairing " + p.id + ": close: " + err.Error())
		}
	}()

	// served against the request, not the pairing context, so a Shutdown
	// still lets the termination frame through
	resp.ServeHTTP(w, r)

	cancel()
	<-produced
}

// Shutdown a server gracefully, ending every active pairing with a
// termination frame. New requests get 503 afterwards.
//
// Currently, this returns once pairings have been told to end, and does not
// wait for their responses to finish in the background.
func (s *Server) Shutdown() {
	s.hub.Shutdown()
}
