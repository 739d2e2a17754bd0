// Package runner executes video analysis pipelines on a bounded worker
// pool. Single-video jobs, comparison batches, and trend batches all go
// through the same queue; chat requests are answered synchronously
// against already-completed jobs.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kalambet/ttyv/internal/store"
	"github.com/kalambet/ttyv/internal/transcript"
)

// Defaults for Config fields left zero.
const (
	DefaultWorkers     = 4
	DefaultQueueSize   = 64
	DefaultCallTimeout = 60 * time.Second
	DefaultTopK        = 12
	DefaultModel       = "gemini-1.5-flash"
	DefaultMaxGenCalls = 8
)

// ErrQueueFull is returned by submissions when every queue slot is
// taken. The caller's record is failed synchronously; nothing runs later.
var ErrQueueFull = errors.New("analysis queue is full")

// ErrValidation marks requests rejected before any work was queued.
var ErrValidation = errors.New("invalid request")

// Generator produces text from a prompt. *gemini.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// TranscriptSource retrieves transcripts and metadata for a video.
// *transcript.Client satisfies it.
type TranscriptSource interface {
	FetchTranscript(ctx context.Context, videoID string) (transcript.Transcript, error)
	Metadata(ctx context.Context, videoID string) transcript.Metadata
}

// IndexBuilder turns transcript chunks into a searchable index.
type IndexBuilder interface {
	Build(ctx context.Context, videoID string, chunks []store.Chunk) (store.Searcher, error)
}

// BuilderFunc adapts a function to the IndexBuilder interface.
type BuilderFunc func(ctx context.Context, videoID string, chunks []store.Chunk) (store.Searcher, error)

// Build calls f.
func (f BuilderFunc) Build(ctx context.Context, videoID string, chunks []store.Chunk) (store.Searcher, error) {
	return f(ctx, videoID, chunks)
}

// Config carries the runner's tuning knobs.
type Config struct {
	Workers     int           // concurrent pipeline workers
	QueueSize   int           // pending task slots beyond the running ones
	CallTimeout time.Duration // per-attempt budget for external calls
	TopK        int           // retrieval depth for chat
	Model       string        // generation model name
	MaxGenCalls int           // simultaneous generation calls, workers and chat combined
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxGenCalls <= 0 {
		c.MaxGenCalls = DefaultMaxGenCalls
	}
	return c
}

// Runner owns the worker pool and the pipeline implementations.
type Runner struct {
	store   *store.Store
	source  TranscriptSource
	builder IndexBuilder
	gen     Generator
	cfg     Config
	log     *slog.Logger
	backoff time.Duration

	tasks  chan task
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

type task struct {
	kind string
	id   string
	run  func(ctx context.Context)
}

// New creates a Runner. Call Start before submitting work.
func New(st *store.Store, source TranscriptSource, builder IndexBuilder, gen Generator, cfg Config, log *slog.Logger) *Runner {
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	gen = &genLimiter{gen: gen, sem: semaphore.NewWeighted(int64(cfg.MaxGenCalls))}
	return &Runner{
		store:   st,
		source:  source,
		builder: builder,
		gen:     gen,
		cfg:     cfg,
		log:     log,
		backoff: time.Second,
		tasks:   make(chan task, cfg.QueueSize),
	}
}

// genLimiter caps simultaneous generation calls. Chat requests run on
// their caller's goroutine, so worker count alone does not bound the
// pressure on the model API.
type genLimiter struct {
	gen Generator
	sem *semaphore.Weighted
}

func (g *genLimiter) Generate(ctx context.Context, model, prompt string) (string, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer g.sem.Release(1)
	return g.gen.Generate(ctx, model, prompt)
}

// Start launches the worker pool. Workers run until Stop is called or
// ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.work(ctx)
	}
	r.log.Info("runner started", "workers", r.cfg.Workers, "queue_size", r.cfg.QueueSize)
}

// Stop cancels the workers and waits for in-flight tasks to wind down.
// Queued tasks that never started are abandoned; their records stay
// "processing" and die with the process like the rest of the cache.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Runner) work(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-r.tasks:
			start := time.Now()
			t.run(ctx)
			r.log.Debug("task finished", "kind", t.kind, "id", t.id, "elapsed", time.Since(start))
		}
	}
}

// submit places a task on the queue without blocking.
func (r *Runner) submit(t task) error {
	select {
	case r.tasks <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueDepth reports how many tasks are waiting for a worker.
func (r *Runner) QueueDepth() int {
	return len(r.tasks)
}
