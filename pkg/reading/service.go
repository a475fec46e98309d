package reading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/tarot/pkg/logger"
	"github.com/papercomputeco/tarot/pkg/stream"
	"github.com/papercomputeco/tarot/pkg/throttle"
	"github.com/papercomputeco/tarot/pkg/timer"
	"github.com/papercomputeco/tarot/pkg/transport"
)

// Source names where a reading's text came from.
type Source string

const (
	SourceLLM     Source = "llm"
	SourceOffline Source = "offline"
)

// FallbackMessage is sent to the Notifier when the LLM cannot be used.
const FallbackMessage = "AI服务暂时不可用，已切换到离线解读"

// Streamer streams a completion for a prompt. *llm.Client implements it.
type Streamer interface {
	StreamChat(ctx context.Context, prompt string, onText func(text string)) (string, error)
}

// Notifier receives short, transient user-facing messages.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

// Notify calls f(msg).
func (f NotifierFunc) Notify(msg string) { f(msg) }

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}

// Result is a finished reading.
type Result struct {
	Text    string
	Source  Source
	Elapsed time.Duration
}

// Service generates readings.
type Service struct {
	client   Streamer
	offline  *Offline
	notifier Notifier
	logger   *slog.Logger
	delay    time.Duration
	clock    throttle.Clock
}

// Option configures a Service.
type Option func(*Service)

// WithClient streams readings from s. Without a client every reading is
// generated offline.
func WithClient(s Streamer) Option {
	return func(svc *Service) {
		svc.client = s
	}
}

// WithOffline replaces the offline generator.
func WithOffline(o *Offline) Option {
	return func(svc *Service) {
		svc.offline = o
	}
}

// WithNotifier sets the notifier told about fallbacks.
func WithNotifier(n Notifier) Option {
	return func(svc *Service) {
		svc.notifier = n
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) {
		svc.logger = l
	}
}

// WithThrottle sets the minimum interval between progress callbacks.
func WithThrottle(d time.Duration) Option {
	return func(svc *Service) {
		svc.delay = d
	}
}

// WithThrottleClock drives the progress throttle from c.
func WithThrottleClock(c throttle.Clock) Option {
	return func(svc *Service) {
		svc.clock = c
	}
}

// NewService creates a Service.
func NewService(opts ...Option) *Service {
	svc := &Service{
		notifier: nopNotifier{},
		logger:   logger.Nop(),
		delay:    throttle.DefaultDelay,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.offline == nil {
		svc.offline = NewOffline()
	}
	return svc
}

// Generate produces the reading for req. onProgress, if set, receives the
// accumulated text at most once per throttle interval and always receives the
// final text. When the LLM is unreachable or rejects the request, any partial
// text is dropped, the notifier is told, and the reading is generated offline.
func (s *Service) Generate(ctx context.Context, req Request, onProgress func(string)) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	t := timer.Start(s.logger, "reading."+string(req.Type))
	defer t.Stop()

	if s.client != nil {
		text, err := s.generateLLM(ctx, req, onProgress)
		switch {
		case err == nil:
			return Result{Text: text, Source: SourceLLM, Elapsed: t.Elapsed()}, nil
		case ctx.Err() != nil:
			return Result{}, ctx.Err()
		case !Recoverable(err):
			return Result{}, err
		}

		s.logger.Warn("llm reading failed, falling back to offline",
			"type", req.Type,
			"error", err,
		)
		s.notifier.Notify(FallbackMessage)
	}

	text, err := s.generateOffline(ctx, req, onProgress)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text, Source: SourceOffline, Elapsed: t.Elapsed()}, nil
}

func (s *Service) generateLLM(ctx context.Context, req Request, onProgress func(string)) (string, error) {
	prompt, err := req.Prompt()
	if err != nil {
		return "", err
	}

	th := s.newThrottle(onProgress)
	text, err := s.client.StreamChat(ctx, prompt, th.Call)
	if err != nil {
		th.Stop()
		return "", err
	}
	if text == "" {
		th.Stop()
		return "", ErrEmptyReading
	}

	th.Flush()
	return text, nil
}

func (s *Service) generateOffline(ctx context.Context, req Request, onProgress func(string)) (string, error) {
	th := s.newThrottle(onProgress)
	text, err := s.offline.Generate(ctx, req, th.Call)
	if err != nil {
		th.Stop()
		return "", fmt.Errorf("offline reading: %w", err)
	}
	th.Flush()
	return text, nil
}

func (s *Service) newThrottle(onProgress func(string)) *throttle.Throttle[string] {
	sink := onProgress
	if sink == nil {
		sink = func(string) {}
	}

	var opts []throttle.Option[string]
	if s.clock != nil {
		opts = append(opts, throttle.WithClock[string](s.clock))
	}
	return throttle.New(sink, s.delay, opts...)
}

// Recoverable reports whether err means the LLM could not serve the reading,
// as opposed to the caller giving up or the request being invalid.
func Recoverable(err error) bool {
	var netErr *transport.NetworkError
	var upErr *stream.UpstreamError
	switch {
	case errors.As(err, &netErr), errors.As(err, &upErr):
		return true
	case errors.Is(err, stream.ErrStreamClosed), errors.Is(err, ErrEmptyReading):
		return true
	default:
		return false
	}
}
