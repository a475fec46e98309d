// Package stream implements the uniform streaming operation used for every
// LLM call: open a request through a transport, pump the raw chunks through an
// incremental parser, and report each parsed message followed by exactly one
// terminal signal.
//
// Exactly one of OnError or OnComplete fires per stream, no matter how many
// cleanup paths race to end it. Messages are delivered in wire order from a
// single goroutine that owns the stream's parser.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/tarot/pkg/logger"
	"github.com/papercomputeco/tarot/pkg/sse"
	"github.com/papercomputeco/tarot/pkg/transport"
)

// Handlers are the callbacks of one stream. Any of them may be nil.
type Handlers struct {
	// OnMessage receives every parsed frame payload in wire order.
	OnMessage func(payload json.RawMessage)

	// OnError receives the terminal error.
	OnError func(err error)

	// OnComplete fires once the body is exhausted without error.
	OnComplete func()
}

// Adapter opens streams over one transport.
type Adapter struct {
	transport transport.Transport
	logger    *slog.Logger
	tap       io.Writer
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTap copies every raw chunk to w before it is parsed.
func WithTap(w io.Writer) Option {
	return func(a *Adapter) {
		a.tap = w
	}
}

// New creates an Adapter. A nil logger discards output.
func New(t transport.Transport, l *slog.Logger, opts ...Option) *Adapter {
	if l == nil {
		l = logger.Nop()
	}

	a := &Adapter{
		transport: t,
		logger:    l,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Do runs a stream to completion and returns its terminal error.
func (a *Adapter) Do(ctx context.Context, req *transport.Request, h Handlers) error {
	return a.Open(ctx, req, h).Wait()
}

// Open starts a stream in its own goroutine and returns a handle to it.
func (a *Adapter) Open(ctx context.Context, req *transport.Request, h Handlers) *Stream {
	ctx, cancel := context.WithCancel(ctx)

	s := &Stream{
		adapter:  a,
		handlers: h,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go s.run(ctx, req)
	return s
}

// Stream is one in-flight streaming request.
type Stream struct {
	adapter  *Adapter
	handlers Handlers
	cancel   context.CancelFunc
	done     chan struct{}

	mu   sync.Mutex
	body transport.ChunkReader

	aborted atomic.Bool
	once    sync.Once
	err     error
	stats   sse.Stats
}

// Abort cancels the stream. The terminal signal is OnError with
// context.Canceled unless the stream already ended.
func (s *Stream) Abort() {
	s.aborted.Store(true)
	s.cancel()

	s.mu.Lock()
	body := s.body
	s.mu.Unlock()
	if body != nil {
		_ = body.Cancel()
	}
}

// Wait blocks until the terminal signal has fired and returns the terminal
// error, or nil on completion.
func (s *Stream) Wait() error {
	<-s.done
	return s.err
}

// Done is closed after the terminal signal has fired.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Stats returns the parser counters. It is only meaningful after Wait.
func (s *Stream) Stats() sse.Stats {
	<-s.done
	return s.stats
}

func (s *Stream) run(ctx context.Context, req *transport.Request) {
	defer close(s.done)
	defer s.cancel()

	log := s.adapter.logger.With("transport", s.adapter.transport.Name(), "url", req.URL)
	start := time.Now()

	resp, err := s.adapter.transport.Do(ctx, req)
	if err != nil {
		s.finish(s.classify(err))
		log.Debug("stream request failed", "error", err)
		return
	}

	s.mu.Lock()
	s.body = resp.Body
	s.mu.Unlock()
	if s.aborted.Load() {
		_ = resp.Body.Cancel()
	}

	if !resp.OK() {
		body := drain(ctx, resp.Body, maxErrorBody)
		_ = resp.Body.Cancel()
		upstreamErr := NewUpstreamError(resp.StatusCode, body)
		log.Warn("upstream rejected stream request",
			"status", resp.StatusCode,
			"message", upstreamErr.Message,
		)
		s.finish(upstreamErr)
		return
	}

	parser := sse.NewParser(func(payload json.RawMessage) {
		if s.handlers.OnMessage != nil {
			s.handlers.OnMessage(payload)
		}
	}, sse.WithLogger(log))

	for {
		chunk, err := resp.Body.Read(ctx)
		if err != nil {
			parser.Close()
			s.stats = parser.Stats()
			_ = resp.Body.Cancel()
			s.finish(s.classify(err))
			log.Debug("stream ended with error", "error", err, "elapsed", time.Since(start))
			return
		}

		if chunk.Done {
			parser.Close()
			s.stats = parser.Stats()
			log.Debug("stream complete",
				"frames", s.stats.Frames,
				"events", s.stats.Events,
				"malformed", s.stats.Malformed,
				"elapsed", time.Since(start),
			)
			s.finish(nil)
			return
		}

		if s.adapter.tap != nil && len(chunk.Value) > 0 {
			if _, err := s.adapter.tap.Write(chunk.Value); err != nil {
				log.Warn("could not write stream tap", "error", err)
			}
		}
		parser.Feed(chunk.Value)
	}
}

// classify maps reader and transport errors to the terminal error reported to
// the caller.
func (s *Stream) classify(err error) error {
	if s.aborted.Load() {
		return context.Canceled
	}
	if errors.Is(err, transport.ErrCanceled) {
		return ErrStreamClosed
	}
	return err
}

// finish fires the terminal signal exactly once.
func (s *Stream) finish(err error) {
	s.once.Do(func() {
		s.err = err
		if err != nil {
			if s.handlers.OnError != nil {
				s.handlers.OnError(err)
			}
			return
		}
		if s.handlers.OnComplete != nil {
			s.handlers.OnComplete()
		}
	})
}

// drain reads at most limit bytes of an error body.
func drain(ctx context.Context, r transport.ChunkReader, limit int) []byte {
	var out []byte
	for len(out) < limit {
		chunk, err := r.Read(ctx)
		if err != nil || chunk.Done {
			break
		}
		out = append(out, chunk.Value...)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
