// Package sse frames JSON payloads as Server-Sent Events over a chunked
// HTTP response, the way the gateway's streaming endpoints deliver deltas.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Writer frames events onto an http.ResponseWriter that supports flushing.
// Callers get one Writer per request and call Send once per delta.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter sets the headers a streaming SSE response needs and returns a
// Writer bound to rw. It returns an error if rw cannot be flushed
// incrementally, since buffering the whole stream would defeat the point.
func NewWriter(rw http.ResponseWriter) (*Writer, error) {
	flusher, ok := rw.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("sse: response writer does not support flushing")
	}
	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")
	rw.Header().Set("X-Accel-Buffering", "no")
	rw.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Writer{w: rw, flusher: flusher}, nil
}

// Send marshals v and writes it as one "data: ...\n\n" event, flushing
// immediately so the client sees it without delay.
func (w *Writer) Send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.w, "data: %s\n\n", b); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

// Done writes the terminal "[DONE]" sentinel that closes an OpenAI-style
// stream, per the gateway's wire contract.
func (w *Writer) Done() error {
	if _, err := fmt.Fprint(w.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}
