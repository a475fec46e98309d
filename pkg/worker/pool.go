// Package worker provides an asynchronous worker pool that persists completed
// readings to the history store and publishes them to the event stream.
//
// The pool keeps storage and broker latency off the path that streams a
// reading to the user.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/tarot/pkg/eventstream"
	"github.com/papercomputeco/tarot/pkg/history"
	"github.com/papercomputeco/tarot/pkg/logger"
	"github.com/papercomputeco/tarot/pkg/reading"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	// ID identifies the reading in events.
	ID string

	Request reading.Request
	Result  reading.Result

	// Model is the LLM model that served the reading, if any.
	Model string
}

// Config is the configuration options for the worker pool.
type Config struct {
	// History receives today's entry for daily readings.
	History *history.Store

	// Publisher is the optional event stream publisher.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger

	// Now replaces time.Now for event timestamps.
	Now func() time.Time
}

// Pool processes persistence jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	if c.Now == nil {
		c.Now = time.Now
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"reading_id", job.ID,
			"type", job.Request.Type,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"reading_id", job.ID,
			"type", job.Request.Type,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
	})
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob stores a daily reading as today's entry and publishes the
// completion event. A failed store does not stop the event.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	if job.Request.Type == reading.Daily && !job.Request.Insight && p.config.History != nil {
		if _, err := p.config.History.SaveToday(ctx, job.Request.Cards, job.Result.Text); err != nil {
			p.logger.Error("async history storage failed",
				"reading_id", job.ID,
				"error", err,
			)
		} else {
			p.logger.Info("daily reading stored", "reading_id", job.ID)
		}
	}

	if p.config.Publisher == nil {
		return
	}

	event := Event(job, p.config.Now())
	if err := p.config.Publisher.PublishReading(ctx, event); err != nil {
		p.logger.Error("publishing reading event failed",
			"reading_id", job.ID,
			"event_id", event.EventID,
			"error", err,
		)
		return
	}

	p.logger.Debug("reading event published",
		"reading_id", job.ID,
		"event_id", event.EventID,
	)
}

// Event builds the completion event for job.
func Event(job Job, now time.Time) *eventstream.ReadingCompletedEvent {
	cards := make([]eventstream.CardRef, 0, len(job.Request.Cards))
	for _, c := range job.Request.Cards {
		cards = append(cards, eventstream.CardRef{ID: c.ID, Name: c.Name, Upright: c.Upright})
	}

	source := eventstream.EventSource{
		Service:   "tarot",
		Generator: string(job.Result.Source),
	}
	if job.Result.Source == reading.SourceLLM {
		source.Model = job.Model
	}

	return eventstream.NewReadingCompletedEvent(source, eventstream.ReadingMeta{
		ID:         job.ID,
		Type:       string(job.Request.Type),
		Question:   job.Request.Question,
		Insight:    job.Request.Insight,
		Cards:      cards,
		Text:       job.Result.Text,
		DurationMs: job.Result.Elapsed.Milliseconds(),
	}, now)
}
