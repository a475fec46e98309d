// Package sse provides a minimal, purpose-built parser for the line-oriented
// "data:" streams emitted by OpenAI-compatible chat completion endpoints.
//
// Raw chunks arrive from a transport with no alignment to logical frames. The
// Parser keeps the trailing partial line between chunks and only hands
// complete, newline-terminated frames to its Handler, in wire order.
//
// Frames look like:
//
//	data: {"choices":[{"delta":{"content":"Hel"}}]}
//	data: [DONE]
//
// The package also carries a small writer for the tarot API's own SSE
// responses. It does not implement the full SSE event model (event:, id:,
// retry: and blank-line dispatch are not needed by any consumer here).
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import "encoding/json"

const (
	// Prefix marks a frame line. Lines without it are ignored.
	Prefix = "data:"

	// DoneSentinel is the payload that signals the end of the stream. It never
	// produces an event.
	DoneSentinel = "[DONE]"
)

// Handler receives the JSON payload of one frame. It is invoked synchronously,
// before the next line is processed. The payload is owned by the handler.
type Handler func(payload json.RawMessage)

// Stats counts what a Parser has seen since its last Reset.
type Stats struct {
	// Frames is the number of complete lines carrying the data: prefix.
	Frames int

	// Events is the number of payloads handed to the Handler.
	Events int

	// Sentinels is the number of [DONE] frames skipped.
	Sentinels int

	// Malformed is the number of frames whose payload was not a valid JSON
	// object.
	Malformed int
}
