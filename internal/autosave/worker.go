// Package autosave persists snapshots in the background so that callers never wait for the store.
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/myrjola/survey/internal/errors"
)

// Job is one fire-and-forget save.
type Job struct {
	// Name describes the job in logs, e.g. "update questionnaire".
	Name  string
	Attrs []slog.Attr
	Save  func(ctx context.Context) error
}

type Config struct {
	// Attempts is the number of times a failing job is tried before giving up. Values below one mean one.
	Attempts int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
	// OnFailure is called after the last attempt of a job failed. Optional.
	OnFailure func(job Job, err error)
}

// Worker runs jobs one at a time in FIFO order. Enqueue never blocks.
type Worker struct {
	logger *slog.Logger
	config Config

	mu      sync.Mutex
	queue   []Job
	pending int
	// idle is closed whenever pending drops to zero.
	idle chan struct{}
	wake chan struct{}
}

func New(logger *slog.Logger, config Config) *Worker {
	if config.Attempts < 1 {
		config.Attempts = 1
	}
	idle := make(chan struct{})
	close(idle)
	return &Worker{
		logger:  logger.With("source", "AutosaveWorker"),
		config:  config,
		mu:      sync.Mutex{},
		queue:   nil,
		pending: 0,
		idle:    idle,
		wake:    make(chan struct{}, 1),
	}
}

// Enqueue schedules job. Jobs enqueued after Run has returned stay queued.
func (w *Worker) Enqueue(job Job) {
	w.mu.Lock()
	w.queue = append(w.queue, job)
	if w.pending == 0 {
		w.idle = make(chan struct{})
	}
	w.pending++
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until every enqueued job has finished or ctx is done.
func (w *Worker) Wait(ctx context.Context) error {
	w.mu.Lock()
	idle := w.idle
	w.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "wait for pending saves")
	}
}

// Run processes jobs until ctx is cancelled. Jobs still queued at that point are drained with a context that is not
// cancelled, so accepted saves are not lost on shutdown.
func (w *Worker) Run(ctx context.Context) {
	w.logger.LogAttrs(ctx, slog.LevelDebug, "worker started")
	for {
		if job, ok := w.pop(); ok {
			w.process(ctx, job)
			continue
		}
		select {
		case <-ctx.Done():
			w.drain(context.WithoutCancel(ctx))
			w.logger.LogAttrs(ctx, slog.LevelDebug, "worker stopped")
			return
		case <-w.wake:
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	drained := 0
	for {
		job, ok := w.pop()
		if !ok {
			break
		}
		w.process(ctx, job)
		drained++
	}
	if drained > 0 {
		w.logger.LogAttrs(ctx, slog.LevelInfo, "drained remaining saves", slog.Int("count", drained))
	}
}

func (w *Worker) pop() (Job, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return Job{}, false
	}
	job := w.queue[0]
	w.queue[0] = Job{}
	w.queue = w.queue[1:]
	return job, true
}

func (w *Worker) done() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending--
	if w.pending == 0 {
		close(w.idle)
	}
}

// process tries job up to the configured number of attempts. A cancelled ctx cuts the retry pause short but the
// remaining attempts still run so that shutdown does not drop the save.
func (w *Worker) process(ctx context.Context, job Job) {
	defer w.done()
	var err error
	for attempt := 1; attempt <= w.config.Attempts; attempt++ {
		saveCtx := ctx
		if ctx.Err() != nil {
			saveCtx = context.WithoutCancel(ctx)
		}
		if err = job.Save(saveCtx); err == nil {
			w.logger.LogAttrs(ctx, slog.LevelDebug, "saved",
				append([]slog.Attr{slog.String("job", job.Name), slog.Int("attempt", attempt)}, job.Attrs...)...)
			return
		}
		if attempt == w.config.Attempts {
			break
		}
		w.logger.LogAttrs(ctx, slog.LevelWarn, "save failed, retrying",
			append([]slog.Attr{slog.String("job", job.Name), slog.Int("attempt", attempt), errors.SlogError(err)},
				job.Attrs...)...)
		select {
		case <-ctx.Done():
		case <-time.After(w.config.RetryDelay):
		}
	}
	err = errors.Wrap(err, "save failed", slog.String("job", job.Name), slog.Int("attempts", w.config.Attempts))
	w.logger.LogAttrs(ctx, slog.LevelError, "giving up on save", append([]slog.Attr{errors.SlogError(err)}, job.Attrs...)...)
	if w.config.OnFailure != nil {
		w.config.OnFailure(job, err)
	}
}
