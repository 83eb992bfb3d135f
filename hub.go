package ssestream

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/azer/debug"
	"github.com/google/uuid"
)

// A pairing is the server's record of one live stream, kept for reporting and
// so Shutdown can end it. It observes its Emitter to count frames.
type pairing struct {
	id        string
	tag       string
	path      string
	clientIP  string
	userAgent string
	created   time.Time
	cancel    context.CancelFunc
	sent      atomic.Uint64
}

func newPairing(r *http.Request, tag string, cancel context.CancelFunc) *pairing {
	// trust proxy IP headers if they exist
	// pattern taken from http://git.io/xDD3Mw
	ip := r.Header.Get("X-Real-IP")
	if ip == "" {
		ip = r.Header.Get("X-Forwarded-For")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	return &pairing{
		id:        uuid.NewString(),
		tag:       tag,
		path:      r.URL.Path,
		clientIP:  ip,
		userAgent: r.UserAgent(),
		created:   time.Now(),
		cancel:    cancel,
	}
}

func (p *pairing) Opened(string)       {}
func (p *pairing) Pushed(string, int)  { p.sent.Add(1) }
func (p *pairing) Closed(string, bool) {}

func (p *pairing) Status() PairingStatus {
	return PairingStatus{
		ID:        p.id,
		Tag:       p.tag,
		Path:      p.path,
		Created:   p.created.Unix(),
		ClientIP:  p.clientIP,
		UserAgent: p.userAgent,
		MsgsSent:  p.sent.Load(),
	}
}

// A hub keeps track of all the active pairings of a Server. Pairings never talk
// to each other through it; it exists for status reporting and shutdown.
type hub struct {
	pairings    map[*pairing]struct{} // Registered pairings.
	register    chan *pairing         // Register requests from new streams.
	unregister  chan *pairing         // Unregister requests from finished streams.
	status      chan chan hubSnapshot // Snapshot requests.
	shutdown    chan struct{}         // Closed to stop the hub.
	done        chan struct{}         // Closed once the run loop has exited.
	stopOnce    sync.Once
	retiredMsgs uint64    // Msgs sent by pairings that have since unregistered
	startupTime time.Time // Time hub was created
}

type hubSnapshot struct {
	pairings []PairingStatus
	sentMsgs uint64
	running  bool
}

func newHub() *hub {
	return &hub{
		pairings:    make(map[*pairing]struct{}),
		register:    make(chan *pairing),
		unregister:  make(chan *pairing),
		status:      make(chan chan hubSnapshot),
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		startupTime: time.Now(),
	}
}

// Start runs the hub's event loop in a new goroutine.
func (h *hub) Start() {
	go h.run()
}

// Shutdown cancels every registered pairing and stops the hub. Safe to call
// more than once; blocks until the event loop has exited.
func (h *hub) Shutdown() {
	h.stopOnce.Do(func() {
		close(h.shutdown)
	})
	<-h.done
}

func (h *hub) run() {
	defer close(h.done)
	for {
		select {
		case p := <-h.register:
			debug.Debug("new pairing being registered for " + p.tag)
			h.pairings[p] = struct{}{}
		case p := <-h.unregister:
			if _, ok := h.pairings[p]; ok {
				debug.Debug("pairing told us to unregister for " + p.tag)
				delete(h.pairings, p)
				h.retiredMsgs += p.sent.Load()
			}
		case reply := <-h.status:
			reply <- h.snapshot()
		case <-h.shutdown:
			debug.Debug("hub shutting down, ending all pairings")
			for p := range h.pairings {
				p.cancel()
				delete(h.pairings, p)
			}
			return
		}
	}
}

func (h *hub) snapshot() hubSnapshot {
	s := hubSnapshot{
		pairings: make([]PairingStatus, 0, len(h.pairings)),
		sentMsgs: h.retiredMsgs,
		running:  true,
	}
	for p := range h.pairings {
		st := p.Status()
		s.pairings = append(s.pairings, st)
		s.sentMsgs += st.MsgsSent
	}
	return s
}

// add registers p, returning false once the hub has shut down.
func (h *hub) add(p *pairing) bool {
	select {
	case h.register <- p:
		return true
	case <-h.done:
		return false
	}
}

// remove unregisters p. Removing twice, or after shutdown, is a no-op.
func (h *hub) remove(p *pairing) {
	select {
	case h.unregister <- p:
	case <-h.done:
	}
}

func (h *hub) snapshotNow() hubSnapshot {
	reply := make(chan hubSnapshot, 1)
	select {
	case h.status <- reply:
		return <-reply
	case <-h.done:
		return hubSnapshot{pairings: []PairingStatus{}}
	}
}
