// Package api provides the HTTP API server for drawing cards, streaming
// readings and managing the reading history.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// Model is reported in reading events for LLM-generated readings.
	Model string
}
