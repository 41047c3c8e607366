package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/username/smepulse/backend/src/logger"
	"github.com/username/smepulse/backend/src/models"
)

var (
	ErrQueueFull   = errors.New("extraction queue is full")
	ErrQueueClosed = errors.New("extraction queue is closed")
)

// Runner executes one extraction. services.DocumentService satisfies it.
type Runner interface {
	RunExtraction(ctx context.Context, documentID int64) (*models.ExtractionOutcome, error)
}

type job struct {
	id         string
	documentID int64
	enqueuedAt time.Time
}

// Queue runs extractions on a fixed pool of workers. Jobs live in memory only; a
// document whose job is lost on shutdown stays pending and can be extracted again.
type Queue struct {
	runner  Runner
	workers int
	jobs    chan job
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

func NewQueue(runner Runner, workers, size int) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}
	return &Queue{
		runner:  runner,
		workers: workers,
		jobs:    make(chan job, size),
	}
}

// Start launches the workers. Cancelling ctx stops them and cancels running extractions.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	logger.L.Info("Extraction queue started", "workers", q.workers, "capacity", cap(q.jobs))
}

// Enqueue schedules an extraction without blocking and returns the job id.
func (q *Queue) Enqueue(documentID int64) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return "", ErrQueueClosed
	}

	j := job{id: uuid.New().String(), documentID: documentID, enqueuedAt: time.Now()}
	select {
	case q.jobs <- j:
		return j.id, nil
	default:
		return "", ErrQueueFull
	}
}

// Stop refuses new jobs and waits for the workers to drain the queue.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	q.wg.Wait()
	logger.L.Info("Extraction queue stopped")
}

func (q *Queue) worker(ctx context.Context, n int) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-q.jobs:
			if !ok {
				return
			}
			q.process(ctx, n, j)
		}
	}
}

func (q *Queue) process(ctx context.Context, worker int, j job) {
	log := logger.L.With("jobID", j.id, "documentID", j.documentID, "worker", worker)
	ctx = logger.ToContext(ctx, log)
	log.Info("Extraction job started", "waited", time.Since(j.enqueuedAt))

	outcome, err := q.runner.RunExtraction(ctx, j.documentID)
	if err != nil {
		log.Warn("Extraction job not run", "error", err)
		return
	}
	log.Info("Extraction job finished", "status", outcome.Status, "transactions", outcome.TransactionsExtracted)
}
