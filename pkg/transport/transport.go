// Package transport provides the request function the stream adapter uses to
// reach an upstream LLM endpoint. Two backends exist with the same contract:
//
//   - fetch: net/http, reading the streaming response body directly.
//   - chunked: fasthttp with a streamed response body delivered through an
//     on-chunk callback, bridged back into the pull-based ChunkReader.
//
// The backend is chosen once per process (see Default and Select) and injected
// into callers. The transport never encodes anything: method, headers and body
// must already be fully serialized.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	// BackendFetch selects the net/http streaming-body backend.
	BackendFetch = "fetch"

	// BackendChunked selects the fasthttp chunk-callback backend.
	BackendChunked = "chunked"

	// EnvBackend is the environment flag read once by Default.
	EnvBackend = "TAROT_TRANSPORT"

	readChunkSize = 4 * 1024
)

var (
	// ErrCanceled is returned by ChunkReader.Read after Cancel.
	ErrCanceled = errors.New("stream canceled")

	// ErrUnknownBackend is returned by Select for an unrecognized backend name.
	ErrUnknownBackend = errors.New("unknown transport backend")
)

// Request is a fully serialized request. It is not modified after being issued.
type Request struct {
	URL    string
	Method string
	Header map[string]string
	Body   []byte
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodPost
	}
	return r.Method
}

// Chunk is one delivery from a ChunkReader. Value is absent when Done is true.
type Chunk struct {
	Done  bool
	Value []byte
}

// ChunkReader yields raw body chunks in arrival order.
type ChunkReader interface {
	// Read blocks until the next chunk is available. It returns
	// Chunk{Done: true} once the body is exhausted, ErrCanceled after Cancel,
	// and a *NetworkError if the connection breaks mid-stream.
	Read(ctx context.Context) (Chunk, error)

	// Cancel aborts an active read and releases the connection. It is safe to
	// call more than once and after the body is exhausted.
	Cancel() error
}

// Response is the uniform response handle returned by every backend.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       ChunkReader
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport issues a single streaming request.
type Transport interface {
	// Do opens the request and returns once response headers have arrived.
	// Failures to reach the server are reported as *NetworkError.
	Do(ctx context.Context, req *Request) (*Response, error)

	// Name returns the backend name.
	Name() string
}

type options struct {
	timeout    time.Duration
	httpClient *http.Client
}

// Option configures a backend.
type Option func(*options)

// WithTimeout bounds the request. For fetch it is the total request time; for
// chunked it is an idle timeout, refreshed on every connection read and write.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithHTTPClient overrides the net/http client used by the fetch backend.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// Select returns the backend registered under name. An empty name selects
// the fetch backend.
func Select(name string, opts ...Option) (Transport, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendFetch:
		return NewFetch(opts...), nil
	case BackendChunked:
		return NewChunked(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownBackend, name, strings.Join(Backends(), ", "))
	}
}

// Backends returns the recognized backend names.
func Backends() []string {
	return []string{BackendFetch, BackendChunked}
}

var (
	defaultOnce      sync.Once
	defaultTransport Transport
)

// Default returns the process-wide backend selected by the TAROT_TRANSPORT
// environment flag. The flag is read on the first call only; an unrecognized
// value falls back to fetch.
func Default() Transport {
	defaultOnce.Do(func() {
		t, err := Select(os.Getenv(EnvBackend))
		if err != nil {
			t = NewFetch()
		}
		defaultTransport = t
	})
	return defaultTransport
}
