package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultFetchTimeout bounds a complete fetch-backend request.
const DefaultFetchTimeout = 5 * time.Minute

// FetchTransport streams the response body with net/http.
type FetchTransport struct {
	client *http.Client
}

// NewFetch creates the net/http backend.
func NewFetch(opts ...Option) *FetchTransport {
	o := &options{timeout: DefaultFetchTimeout}
	for _, opt := range opts {
		opt(o)
	}

	client := o.httpClient
	if client == nil {
		client = &http.Client{Timeout: o.timeout}
	}

	return &FetchTransport{client: client}
}

// Name implements Transport.
func (t *FetchTransport) Name() string {
	return BackendFetch
}

// Do implements Transport.
func (t *FetchTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	reqCtx, cancel := context.WithCancel(ctx)

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, req.method(), req.URL, body)
	if err != nil {
		cancel()
		return nil, &NetworkError{Op: "build request", URL: req.URL, Err: err}
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		cancel()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &NetworkError{Op: "fetch", URL: req.URL, Err: err}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body: &fetchReader{
			url:    req.URL,
			body:   resp.Body,
			cancel: cancel,
			buf:    make([]byte, readChunkSize),
		},
	}, nil
}

// fetchReader adapts an http.Response body to ChunkReader.
type fetchReader struct {
	url    string
	body   io.ReadCloser
	cancel context.CancelFunc
	buf    []byte

	done      bool
	canceled  atomic.Bool
	closeOnce sync.Once
}

func (r *fetchReader) Read(ctx context.Context) (Chunk, error) {
	if r.canceled.Load() {
		return Chunk{}, ErrCanceled
	}
	if r.done {
		return Chunk{Done: true}, nil
	}
	if err := ctx.Err(); err != nil {
		return Chunk{}, err
	}

	stop := context.AfterFunc(ctx, r.cancel)
	defer stop()

	n, err := r.body.Read(r.buf)
	if n > 0 {
		value := make([]byte, n)
		copy(value, r.buf[:n])
		if errors.Is(err, io.EOF) {
			r.finish()
		}
		return Chunk{Value: value}, nil
	}

	switch {
	case err == nil:
		return Chunk{Value: []byte{}}, nil
	case errors.Is(err, io.EOF):
		r.finish()
		return Chunk{Done: true}, nil
	case r.canceled.Load():
		return Chunk{}, ErrCanceled
	case ctx.Err() != nil:
		r.close()
		return Chunk{}, ctx.Err()
	default:
		r.close()
		return Chunk{}, &NetworkError{Op: "read", URL: r.url, Err: err}
	}
}

func (r *fetchReader) Cancel() error {
	r.canceled.Store(true)
	r.close()
	return nil
}

func (r *fetchReader) finish() {
	r.done = true
	r.close()
}

func (r *fetchReader) close() {
	r.closeOnce.Do(func() {
		r.cancel()
		_ = r.body.Close()
	})
}
