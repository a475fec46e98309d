package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/papercomputeco/tarot/pkg/logger"
	"github.com/papercomputeco/tarot/pkg/stream"
	"github.com/papercomputeco/tarot/pkg/timer"
	"github.com/papercomputeco/tarot/pkg/transport"
)

const (
	// DefaultBaseURL is the DashScope OpenAI-compatible endpoint.
	DefaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

	// DefaultModel is the model used for readings.
	DefaultModel = "qwen-plus"

	// DefaultMaxTokens leaves room for a complete three-card reading.
	DefaultMaxTokens = 2000

	completionsPath = "/chat/completions"

	// maxResponseBody caps a non-streaming response.
	maxResponseBody = 4 * 1024 * 1024
)

// ErrEmptyResponse is returned when a completion carries no content.
var ErrEmptyResponse = errors.New("completion has no content")

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int

	transport  transport.Transport
	streamOpts []stream.Option
	adapter    *stream.Adapter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API base URL; the completions path is appended.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxTokens sets max_tokens. Non-positive values keep the default.
func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithTransport sets the transport backend. Defaults to transport.Default().
func WithTransport(t transport.Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithStreamOptions passes options to the stream adapter.
func WithStreamOptions(opts ...stream.Option) Option {
	return func(c *Client) {
		c.streamOpts = append(c.streamOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logger.Nop()
	}
	if c.transport == nil {
		c.transport = transport.Default()
	}
	if c.apiKey == "" {
		c.logger.Warn("no LLM API key configured; requests will likely be rejected")
	}

	c.adapter = stream.New(c.transport, c.logger, c.streamOpts...)
	return c
}

// Endpoint returns the completions URL.
func (c *Client) Endpoint() string {
	return c.baseURL + completionsPath
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// StreamChat sends prompt as a single user message and streams the reply.
// onText receives the accumulated text after every non-empty delta. The full
// text is returned once the stream completes.
func (c *Client) StreamChat(ctx context.Context, prompt string, onText func(text string)) (string, error) {
	req, err := c.newRequest(prompt, true)
	if err != nil {
		return "", err
	}

	acc := &Accumulator{}
	total := timer.Start(c.logger, "llm.stream")
	firstDelta := timer.Start(c.logger, "llm.first_delta")

	err = c.adapter.Do(ctx, req, stream.Handlers{
		OnMessage: func(payload json.RawMessage) {
			if !acc.Add(payload) {
				return
			}
			if acc.Deltas() == 1 {
				firstDelta.Stop()
			}
			if onText != nil {
				onText(acc.String())
			}
		},
	})

	elapsed := total.Stop()
	if err != nil {
		return "", fmt.Errorf("streaming chat completion: %w", err)
	}

	c.logger.Debug("chat stream complete",
		"model", c.model,
		"deltas", acc.Deltas(),
		"chars", len([]rune(acc.String())),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return acc.String(), nil
}

// Chat sends prompt without streaming and returns choices[0].message.content.
func (c *Client) Chat(ctx context.Context, prompt string) (string, error) {
	req, err := c.newRequest(prompt, false)
	if err != nil {
		return "", err
	}

	t := timer.Start(c.logger, "llm.chat")
	defer t.Stop()

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	body, err := readBody(ctx, resp.Body, maxResponseBody)
	if err != nil {
		return "", fmt.Errorf("reading chat completion: %w", err)
	}
	if !resp.OK() {
		return "", fmt.Errorf("chat completion: %w", stream.NewUpstreamError(resp.StatusCode, body))
	}

	var out ChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decoding chat completion: %w", err)
	}

	content := out.Content()
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func (c *Client) newRequest(prompt string, streaming bool) (*transport.Request, error) {
	maxTokens := c.maxTokens
	body, err := json.Marshal(ChatRequest{
		Model:     c.model,
		Messages:  []Message{NewTextMessage(RoleUser, prompt)},
		Stream:    streaming,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	header := map[string]string{
		"Content-Type": "application/json",
	}
	if streaming {
		header["Accept"] = "text/event-stream"
	}
	if c.apiKey != "" {
		header["Authorization"] = "Bearer " + c.apiKey
	}

	return &transport.Request{
		URL:    c.Endpoint(),
		Method: http.MethodPost,
		Header: header,
		Body:   body,
	}, nil
}

// readBody collects a whole response body, up to limit bytes.
func readBody(ctx context.Context, r transport.ChunkReader, limit int) ([]byte, error) {
	defer func() { _ = r.Cancel() }()

	var out []byte
	for {
		chunk, err := r.Read(ctx)
		if err != nil {
			return nil, err
		}
		if chunk.Done {
			return out, nil
		}
		out = append(out, chunk.Value...)
		if len(out) > limit {
			return nil, fmt.Errorf("response exceeds %d bytes", limit)
		}
	}
}
