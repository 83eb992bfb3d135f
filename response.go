package ssestream

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/azer/debug"
)

// readBufSize bounds a single read from the stream pipe. Larger frames arrive
// in several chunks.
const readBufSize = 32 * 1024

// Response describes the HTTP response for an opened Emitter: the headers the
// event stream requires, and the read side of the stream as its body.
//
// Serve it with ServeHTTP, or read Body directly; not both.
type Response struct {
	Header http.Header
	Body   io.ReadCloser

	body      *io.PipeReader
	keepalive time.Duration
}

func newResponse(pr *io.PipeReader, keepalive time.Duration) *Response {
	return &Response{
		Header:    streamHeaders(),
		Body:      pr,
		body:      pr,
		keepalive: keepalive,
	}
}

func streamHeaders() http.Header {
	h := make(http.Header)
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Connection", "keep-alive")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("X-Accel-Buffering", "no")
	h.Set("Content-Encoding", "none")
	return h
}

// Close abandons the stream without serving it. Pending and future writes by
// the Emitter fail instead of blocking.
func (r *Response) Close() error {
	return r.body.Close()
}

// ServeHTTP writes the headers and then streams frames to w until the Emitter
// closes the stream, the request context is done, or a write to w fails.
func (r *Response) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	headers := w.Header()
	for k, v := range r.Header {
		headers[k] = v
	}
	w.WriteHeader(http.StatusOK)
	flush(w)

	r.writer(w, req)
}

// writer is the event loop that copies frames from the pipe onto the http
// connection. Whatever makes it exit, the read side is closed on the way out so
// a blocked Emitter write returns.
func (r *Response) writer(w http.ResponseWriter, req *http.Request) {
	chunks := make(chan []byte)
	done := make(chan struct{})
	defer r.body.Close()
	defer close(done)

	go func() {
		defer close(chunks)
		for {
			buf := make([]byte, readBufSize)
			n, err := r.body.Read(buf)
			if n > 0 {
				select {
				case chunks <- buf[:n]:
				case <-done:
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	// any SSE line beginning with a colon is ignored by clients, so a comment
	// works as a keepalive tickle. nil channel when disabled.
	var tick <-chan time.Time
	if r.keepalive > 0 {
		keepaliveTickler := time.NewTicker(r.keepalive)
		defer keepaliveTickler.Stop()
		tick = keepaliveTickler.C
	}
	atBoundary := true // keepalives may only go between frames

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				debug.Debug("stream closed by emitter")
				return
			}
			if _, err := w.Write(chunk); err != nil {
				debug.Debug("error writing frame to client, closing")
				r.body.CloseWithError(err)
				return
			}
			flush(w)
			atBoundary = bytes.HasSuffix(chunk, []byte("\n\n"))

		case <-tick:
			if !atBoundary {
				continue
			}
			if _, err := w.Write(keepaliveMsg); err != nil {
				debug.Debug("error writing keepalive to client, closing")
				r.body.CloseWithError(err)
				return
			}
			flush(w)

		case <-req.Context().Done():
			debug.Debug("closer fired for stream")
			return
		}
	}
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
