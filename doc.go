/*
Package ssestream pushes a sequence of typed, tagged messages from a server to
a single client over one long-lived Server-Sent Events response, and lets the
client detect the definitive end of that sequence.


Frames

Every message is written as one SSE event whose event name is the channel tag
and whose data is a JSON envelope:

    event: progress
    data: {"payload":{"percent":10},"status":"running"}

The stream always ends with the same termination envelope, whatever the tag:

    event: progress
    data: {"payload":null,"status":"terminate"}

Message ids are intentionally not sent; there is no resuming a stream.


Emitter and Receiver

An Emitter is the server side of a pairing. It is created with the request's
context, opened once, pushed to any number of times and closed once. If the
client goes away first the context ends and the Emitter closes itself through
the same path. Push and Close report misuse as errors (ErrNotOpen, ErrClosed)
rather than panicking into the request handler.

A Receiver is the client side. It subscribes to a URL for one channel tag, calls
back once per running envelope in order, and releases the subscription when the
termination envelope arrives. A frame it cannot decode is reported and skipped.

A Receiver cannot tell a silent server from a dropped connection; layer a
timeout on top (cancel the context, or call Close) if that matters.


Server

Server is an http.Handler that routes request paths to producers registered
with Handle and runs one Emitter per request. It keeps a status report of live
pairings and ends all of them with termination frames on Shutdown.
*/
package ssestream
