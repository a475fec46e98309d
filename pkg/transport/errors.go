package transport

import "fmt"

// NetworkError reports that the transport could not establish or maintain the
// connection. No retry is attempted at this layer.
type NetworkError struct {
	// Op is the failed operation, e.g. "dial" or "read".
	Op string

	// URL is the request URL.
	URL string

	// Err is the underlying cause.
	Err error
}

func (e *NetworkError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("network error: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("network error: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
