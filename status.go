package ssestream

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/mroth/ssestream/router"
)

// ServerStatus is snapshot of metadata describing the status of a Server.
//
// It can be serialized to JSON and is what gets reported to the admin endpoint.
type ServerStatus struct {
	Node        string          `json:"node"`
	Status      string          `json:"status"`
	Reported    int64           `json:"reported_at"`
	StartupTime int64           `json:"startup_time"`
	SentMsgs    uint64          `json:"msgs_sent"`
	Routes      []RouteStatus   `json:"routes"`
	Pairings    []PairingStatus `json:"pairings"`
}

// PairingStatus describes one live stream.
type PairingStatus struct {
	ID        string `json:"id"`
	Tag       string `json:"tag"`
	Path      string `json:"request_path"`
	Created   int64  `json:"created_at"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent"`
	MsgsSent  uint64 `json:"msgs_sent"`
}

// RouteStatus describes one registered producer.
type RouteStatus struct {
	Path string `json:"path"`
	Tag  string `json:"tag"`
}

// Status returns a snaphot of status metadata for the Server.
//
// Primarily intended for logging and reporting.
func (s *Server) Status() ServerStatus {
	snap := s.hub.snapshotNow()

	// sort by age of pairing
	sort.Slice(snap.pairings, func(i, j int) bool {
		return snap.pairings[i].Created < snap.pairings[j].Created
	})

	status := "OK"
	if !snap.running {
		status = "SHUTDOWN"
	}

	return ServerStatus{
		Node:        fmt.Sprintf("%s-%s", env(), nodeName()),
		Status:      status,
		Reported:    time.Now().Unix(),
		StartupTime: s.hub.startupTime.Unix(),
		SentMsgs:    snap.sentMsgs,
		Routes:      s.routeStatus(),
		Pairings:    snap.pairings,
	}
}

func (s *Server) routeStatus() []RouteStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	routes := []RouteStatus{}
	s.routes.TraverseDown(func(n *router.Node[route]) {
		if rt, ok := n.Value(); ok {
			routes = append(routes, RouteStatus{Path: n.Namespace().String(), Tag: rt.tag})
		}
	})
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].Path < routes[j].Path
	})
	return routes
}

// Attempts to intelligently get the name of the node we are running on.
//
// First checks for a Heroku $DYNO variable (e.g. `web.2` etc), if that isn't
// found will default to the local hostname.
func nodeName() string {
	if dyno := os.Getenv("DYNO"); dyno != "" {
		return dyno
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown.X"
}

// A string representing the environment (dev/staging/prod), for reporting.
func env() string {
	if env := os.Getenv("GO_ENV"); env != "" {
		return env
	}
	return "development"
}
