package sse

import (
	"encoding/json"
	"errors"
	"io"
)

const readChunkSize = 4 * 1024

// TeeReader reads frames from a source io.Reader while simultaneously
// writing all raw bytes verbatim to a destination io.Writer.
// This effectively enables "tee" shaped reading where TeeReader.Next
// returns the payload for consumption while writing to a separate destination.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │ TeeReader.Next() │──▶│ destination io.Writer │
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │ json.RawMessage  │
// └──────────────────┘
//
// It is the pull-based counterpart of feeding a Parser by hand, used to
// replay captured streams.
type TeeReader struct {
	src    io.Reader
	dest   io.Writer
	parser *Parser

	buf   []byte
	queue []json.RawMessage
	eof   bool
}

// NewTeeReader returns a TeeReader that parses frames from src and writes all
// raw bytes through to dest. A nil dest discards the raw bytes.
func NewTeeReader(src io.Reader, dest io.Writer, opts ...Option) *TeeReader {
	if dest == nil {
		dest = io.Discard
	}

	r := &TeeReader{
		src:  src,
		dest: dest,
		buf:  make([]byte, readChunkSize),
	}
	r.parser = NewParser(func(payload json.RawMessage) {
		r.queue = append(r.queue, payload)
	}, opts...)

	return r
}

// Next returns the next parsed payload. It blocks until a complete frame is
// available. Next returns nil, nil when the source is exhausted.
func (r *TeeReader) Next() (json.RawMessage, error) {
	for len(r.queue) == 0 {
		if r.eof {
			return nil, nil
		}

		n, err := r.src.Read(r.buf)
		if n > 0 {
			if _, werr := r.dest.Write(r.buf[:n]); werr != nil {
				return nil, werr
			}
			r.parser.Feed(r.buf[:n])
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, err
			}
			r.parser.Close()
			r.eof = true
		}
	}

	payload := r.queue[0]
	r.queue = r.queue[1:]
	return payload, nil
}

// Stats returns the underlying parser counters.
func (r *TeeReader) Stats() Stats {
	return r.parser.Stats()
}
