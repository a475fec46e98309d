package sse

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/papercomputeco/tarot/pkg/logger"
)

var (
	prefixBytes = []byte(Prefix)
	doneBytes   = []byte(DoneSentinel)
)

// Parser turns an ordered sequence of raw chunks into an ordered sequence of
// JSON payloads. A Parser belongs to exactly one stream and is not safe for
// concurrent use.
//
// Chunks are buffered as bytes and only complete lines are decoded. A newline
// byte can never appear inside a multi-byte UTF-8 sequence, so a character
// split across two chunks stays in the pending buffer until its line is
// complete and is never corrupted.
type Parser struct {
	handler Handler
	logger  *slog.Logger

	// pending holds the trailing partial line carried to the next Feed.
	pending []byte
	stats   Stats
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used to report malformed frames.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewParser returns a Parser that hands every parsed payload to handler.
func NewParser(handler Handler, opts ...Option) *Parser {
	p := &Parser{
		handler: handler,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Feed appends a raw chunk and emits every frame completed by it.
func (p *Parser) Feed(chunk []byte) {
	p.pending = append(p.pending, chunk...)

	start := 0
	for {
		i := bytes.IndexByte(p.pending[start:], '\n')
		if i < 0 {
			break
		}
		p.processLine(p.pending[start : start+i])
		start += i + 1
	}

	if start > 0 {
		// Keep the partial line at the front of the buffer so its backing
		// array is reused across chunks.
		n := copy(p.pending, p.pending[start:])
		p.pending = p.pending[:n]
	}
}

// Close ends the stream. Anything left in the pending buffer was never
// newline-terminated and is discarded.
func (p *Parser) Close() {
	if len(p.pending) > 0 {
		p.logger.Debug("discarding unterminated trailing frame",
			"bytes", len(p.pending),
		)
	}
	p.pending = p.pending[:0]
}

// Reset clears the pending buffer and the counters so the Parser can be used
// for a new stream.
func (p *Parser) Reset() {
	p.pending = p.pending[:0]
	p.stats = Stats{}
}

// Pending returns the number of buffered bytes not yet terminated by a newline.
func (p *Parser) Pending() int {
	return len(p.pending)
}

// Stats returns the counters accumulated since the last Reset.
func (p *Parser) Stats() Stats {
	return p.stats
}

func (p *Parser) processLine(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || !bytes.HasPrefix(line, prefixBytes) {
		return
	}

	data := bytes.TrimSpace(line[len(prefixBytes):])
	p.stats.Frames++

	if bytes.Equal(data, doneBytes) {
		p.stats.Sentinels++
		return
	}

	// Events are JSON objects; bare values such as 42 or "x" are malformed.
	if len(data) == 0 || data[0] != '{' || !json.Valid(data) {
		p.stats.Malformed++
		p.logger.Warn("failed to parse stream frame",
			"frame", string(line),
		)
		return
	}

	p.stats.Events++
	if p.handler != nil {
		p.handler(append(json.RawMessage(nil), data...))
	}
}
