// Package queue mirrors versioned saves into the plain workspace trees.
//
// The version store is the source of truth; the workspace copy exists so
// the legacy file endpoints and plain directory listings stay current.
// Mirroring is asynchronous and best effort: a failed mirror write is
// logged and counted, never surfaced to the request that triggered it.
package queue

import (
	"log/slog"
	"sync"

	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/retry"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/storage"
)

// MirrorJob asks for one file to be written into one workspace directory.
type MirrorJob struct {
	Dir      string
	Filename string
	Content  []byte
	Meta     *storage.FileMetadata
}

// Config sizes the mirror queue.
type Config struct {
	Workers int
	Depth   int
	Retry   retry.Config
}

// DefaultConfig runs four workers over a queue deep enough that bursts
// of saves do not drop mirrors.
func DefaultConfig() Config {
	return Config{
		Workers: 4,
		Depth:   256,
		Retry:   retry.DefaultConfig(),
	}
}

// MirrorQueue fans mirror jobs out to a fixed worker pool.
type MirrorQueue struct {
	store  *storage.WorkspaceStore
	logger *slog.Logger
	jobs   chan MirrorJob
	retry  retry.Config
	wg     sync.WaitGroup

	// pending tracks accepted jobs until a worker finishes them, so
	// Drain can wait for the queue to go quiet.
	pending sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	enqueued  int
	completed int
	failed    int
	dropped   int
}

// NewMirrorQueue starts the worker pool.
func NewMirrorQueue(store *storage.WorkspaceStore, logger *slog.Logger, cfg Config) *MirrorQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Depth <= 0 {
		cfg.Depth = 256
	}
	q := &MirrorQueue{
		store:  store,
		logger: logger,
		jobs:   make(chan MirrorJob, cfg.Depth),
		retry:  cfg.Retry,
	}
	for i := 0; i < cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Enqueue hands a job to the pool without blocking. Returns false when
// the job was dropped because the queue is full or already closed.
func (q *MirrorQueue) Enqueue(job MirrorJob) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.dropped++
		return false
	}
	select {
	case q.jobs <- job:
		q.enqueued++
		q.pending.Add(1)
		return true
	default:
		q.dropped++
		q.logger.Warn("mirror queue full, dropping job", "file", job.Filename, "dir", job.Dir)
		return false
	}
}

func (q *MirrorQueue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		err := retry.Do(func() error {
			return q.store.Write(job.Dir, job.Filename, job.Content, job.Meta)
		}, q.retry)

		q.mu.Lock()
		if err != nil {
			q.failed++
		} else {
			q.completed++
		}
		q.mu.Unlock()

		if err != nil {
			q.logger.Error("mirror write failed", "file", job.Filename, "dir", job.Dir, "error", err)
		}
		q.pending.Done()
	}
}

// Drain blocks until every accepted job has been processed. Jobs may
// still be enqueued afterwards; this is a checkpoint, not a shutdown.
func (q *MirrorQueue) Drain() {
	q.pending.Wait()
}

// Close stops accepting jobs, drains the ones already queued and waits
// for the workers to finish.
func (q *MirrorQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}

// Stats reports queue counters for the stats endpoint.
func (q *MirrorQueue) Stats() map[string]interface{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return map[string]interface{}{
		"pending":   len(q.jobs),
		"enqueued":  q.enqueued,
		"completed": q.completed,
		"failed":    q.failed,
		"dropped":   q.dropped,
	}
}
