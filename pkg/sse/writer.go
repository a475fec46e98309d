package sse

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteFrame marshals v and writes it as a single "data:" frame followed by a
// blank line.
func WriteFrame(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}

	if _, err := fmt.Fprintf(w, "%s %s\n\n", Prefix, data); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// WriteDone writes the end-of-stream sentinel frame.
func WriteDone(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s %s\n\n", Prefix, DoneSentinel); err != nil {
		return fmt.Errorf("writing done frame: %w", err)
	}
	return nil
}
