package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

// DefaultChunkedTimeout is the idle timeout of the chunked backend: the
// longest a single connection read or write may block. A stream may run
// longer in total as long as data keeps arriving.
const DefaultChunkedTimeout = 30 * time.Second

// chunkBuffer is the number of undelivered chunks the callback may queue
// before it blocks the body pump.
const chunkBuffer = 16

// ChunkedTransport issues requests with fasthttp and delivers the streamed
// response body through an on-chunk callback.
type ChunkedTransport struct {
	client *fasthttp.Client
}

// NewChunked creates the fasthttp backend.
func NewChunked(opts ...Option) *ChunkedTransport {
	o := &options{timeout: DefaultChunkedTimeout}
	for _, opt := range opts {
		opt(o)
	}

	return &ChunkedTransport{
		// No ReadTimeout: fasthttp sets it once per request and the streamed
		// body would inherit that single deadline.
		client: &fasthttp.Client{
			StreamResponseBody:       true,
			Dial:                     idleDialer(o.timeout),
			NoDefaultUserAgentHeader: true,
		},
	}
}

// idleDialer dials connections whose deadline is pushed forward before every
// read and write. A non-positive timeout disables deadlines.
func idleDialer(timeout time.Duration) fasthttp.DialFunc {
	return func(addr string) (net.Conn, error) {
		if timeout <= 0 {
			return fasthttp.Dial(addr)
		}
		conn, err := fasthttp.DialTimeout(addr, timeout)
		if err != nil {
			return nil, err
		}
		return &idleConn{Conn: conn, timeout: timeout}, nil
	}
}

type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *idleConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}

// Name implements Transport.
func (t *ChunkedTransport) Name() string {
	return BackendChunked
}

// Do implements Transport. The returned reader is fed by a goroutine that
// owns the fasthttp response until the body ends or the reader is canceled.
func (t *ChunkedTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	freq := fasthttp.AcquireRequest()
	fresp := fasthttp.AcquireResponse()

	freq.SetRequestURI(req.URL)
	freq.Header.SetMethod(req.method())
	for k, v := range req.Header {
		freq.Header.Set(k, v)
	}
	if len(req.Body) > 0 {
		freq.SetBody(req.Body)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- t.client.Do(freq, fresp)
	}()

	select {
	case err := <-errCh:
		fasthttp.ReleaseRequest(freq)
		if err != nil {
			fasthttp.ReleaseResponse(fresp)
			return nil, &NetworkError{Op: "request", URL: req.URL, Err: err}
		}
	case <-ctx.Done():
		// The in-flight request cannot be interrupted; release it once it returns.
		go func() {
			if err := <-errCh; err == nil {
				_ = fresp.CloseBodyStream()
			}
			fasthttp.ReleaseRequest(freq)
			fasthttp.ReleaseResponse(fresp)
		}()
		return nil, ctx.Err()
	}

	header := make(http.Header)
	fresp.Header.VisitAll(func(k, v []byte) {
		header.Add(string(k), string(v))
	})

	reader := newChunkedReader()
	go pumpBody(req.URL, fresp, reader.onChunk)

	return &Response{
		StatusCode: fresp.StatusCode(),
		Header:     header,
		Body:       reader,
	}, nil
}

// chunkCallback receives each body chunk, a terminal Done chunk, or an error.
// It returns false when the receiver no longer wants chunks.
type chunkCallback func(c Chunk, err error) bool

// pumpBody reads the streamed body and hands every chunk to onChunk. It owns
// fresp and releases it on return.
func pumpBody(url string, fresp *fasthttp.Response, onChunk chunkCallback) {
	defer func() {
		_ = fresp.CloseBodyStream()
		fasthttp.ReleaseResponse(fresp)
	}()

	stream := fresp.BodyStream()
	if stream == nil {
		// Body was read in full with the headers.
		body := fresp.Body()
		if len(body) > 0 {
			value := make([]byte, len(body))
			copy(value, body)
			if !onChunk(Chunk{Value: value}, nil) {
				return
			}
		}
		onChunk(Chunk{Done: true}, nil)
		return
	}

	buf := make([]byte, readChunkSize)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			value := make([]byte, n)
			copy(value, buf[:n])
			if !onChunk(Chunk{Value: value}, nil) {
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				onChunk(Chunk{Done: true}, nil)
			} else {
				onChunk(Chunk{}, &NetworkError{Op: "read", URL: url, Err: err})
			}
			return
		}
	}
}

type chunkResult struct {
	chunk Chunk
	err   error
}

// chunkedReader bridges push-style chunk callbacks into the pull-style
// ChunkReader contract.
type chunkedReader struct {
	ch       chan chunkResult
	canceled chan struct{}
	once     sync.Once

	// terminal is the last Done or error result, replayed on further reads.
	terminal *chunkResult
}

func newChunkedReader() *chunkedReader {
	return &chunkedReader{
		ch:       make(chan chunkResult, chunkBuffer),
		canceled: make(chan struct{}),
	}
}

func (r *chunkedReader) onChunk(c Chunk, err error) bool {
	select {
	case r.ch <- chunkResult{chunk: c, err: err}:
		return true
	case <-r.canceled:
		return false
	}
}

func (r *chunkedReader) Read(ctx context.Context) (Chunk, error) {
	select {
	case <-r.canceled:
		return Chunk{}, ErrCanceled
	default:
	}
	if r.terminal != nil {
		return r.terminal.chunk, r.terminal.err
	}

	select {
	case res := <-r.ch:
		if res.err != nil || res.chunk.Done {
			r.terminal = &res
		}
		return res.chunk, res.err
	case <-r.canceled:
		return Chunk{}, ErrCanceled
	case <-ctx.Done():
		return Chunk{}, ctx.Err()
	}
}

func (r *chunkedReader) Cancel() error {
	r.once.Do(func() {
		close(r.canceled)
	})
	return nil
}
