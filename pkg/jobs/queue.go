// Package jobs runs background work (entity extraction, embeddings, graph builds)
// on a bounded in-process queue.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"umbra/pkg/metrics"
)

type Kind string

const (
	KindProcessPublication Kind = "process_publication"
	KindEmbedPublication   Kind = "embed_publication"
	KindBuildGraph         Kind = "build_graph"
)

var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrClosed      = errors.New("job queue is shut down")
	ErrUnknownKind = errors.New("no handler for job kind")
)

type Job struct {
	ID            string    `json:"id"`
	Kind          Kind      `json:"kind"`
	PublicationID uint      `json:"publication_id,omitempty"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

type Handler func(ctx context.Context, j Job) error

// Enqueuer is what services need from the queue.
type Enqueuer interface {
	Enqueue(kind Kind, publicationID uint) (Job, error)
}

type Queue struct {
	ch       chan Job
	workers  int
	log      *slog.Logger
	handlers map[Kind]Handler

	mu     sync.RWMutex
	closed bool

	g      *errgroup.Group
	cancel context.CancelFunc
}

func New(size, workers int, log *slog.Logger) *Queue {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Queue{
		ch:       make(chan Job, size),
		workers:  workers,
		log:      log.With("component", "jobs"),
		handlers: map[Kind]Handler{},
	}
}

// Handle registers h for kind. Call before Start.
func (q *Queue) Handle(kind Kind, h Handler) { q.handlers[kind] = h }

// Start launches the workers; they stop when ctx ends or after Shutdown drains the queue.
func (q *Queue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		id := i
		g.Go(func() error { return q.work(gctx, id) })
	}
	q.g = g
	q.log.Info("job workers started", "workers", q.workers, "capacity", cap(q.ch))
}

func (q *Queue) Enqueue(kind Kind, publicationID uint) (Job, error) {
	if _, ok := q.handlers[kind]; !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	j := Job{ID: uuid.NewString(), Kind: kind, PublicationID: publicationID, EnqueuedAt: time.Now()}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return Job{}, ErrClosed
	}
	select {
	case q.ch <- j:
		metrics.JobQueueDepth.Set(float64(len(q.ch)))
		q.log.Debug("job enqueued", "job_id", j.ID, "kind", kind, "publication_id", publicationID)
		return j, nil
	default:
		return Job{}, ErrQueueFull
	}
}

// Depth is the number of jobs waiting.
func (q *Queue) Depth() int { return len(q.ch) }

// Shutdown stops intake and waits for queued jobs to finish. If ctx ends first
// the running handlers are cancelled and ctx's error is returned.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	if q.g == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- q.g.Wait() }()
	select {
	case err := <-done:
		q.cancel()
		return err
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}

func (q *Queue) work(ctx context.Context, id int) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case j, ok := <-q.ch:
			if !ok {
				return nil
			}
			metrics.JobQueueDepth.Set(float64(len(q.ch)))
			q.run(ctx, id, j)
		}
	}
}

func (q *Queue) run(ctx context.Context, worker int, j Job) {
	log := q.log.With("job_id", j.ID, "kind", j.Kind, "publication_id", j.PublicationID, "worker", worker)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.JobsRun.WithLabelValues(string(j.Kind), "panic").Inc()
			log.Error("job panicked", "panic", r)
		}
	}()

	if err := q.handlers[j.Kind](ctx, j); err != nil {
		metrics.JobsRun.WithLabelValues(string(j.Kind), "error").Inc()
		log.Error("job failed", "error", err, "elapsed", time.Since(start))
		return
	}
	metrics.JobsRun.WithLabelValues(string(j.Kind), "ok").Inc()
	log.Info("job done", "elapsed", time.Since(start))
}
