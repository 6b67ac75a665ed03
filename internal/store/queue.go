// Package store provides the asynchronous write queue.
package store

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// WriteQueue applies puts to the underlying KV asynchronously so callers
// never block on disk.
//
// Writes are best effort: each is retried a bounded number of times, and a
// crash loses whatever is still buffered. That window is the accepted price
// of keeping the hot path responsive; the wallet and session layers re-derive
// nothing worse than a slightly stale mirror from it.
type WriteQueue struct {
	kv      KV
	jobs    chan writeJob
	retries int
	wg      sync.WaitGroup
	once    sync.Once
	log     zerolog.Logger
}

type writeJob struct {
	key   string
	value string
}

// NewWriteQueue starts the queue worker.
func NewWriteQueue(kv KV, log zerolog.Logger) *WriteQueue {
	q := &WriteQueue{
		kv:      kv,
		jobs:    make(chan writeJob, 256),
		retries: 3,
		log:     log.With().Str("component", "write_queue").Logger(),
	}

	q.wg.Add(1)
	go q.run()

	return q
}

// Put enqueues a write. Never blocks: if the buffer is full the write is
// dropped and logged.
func (q *WriteQueue) Put(key, value string) {
	select {
	case q.jobs <- writeJob{key: key, value: value}:
	default:
		q.log.Warn().Str("key", key).Msg("write queue full, dropping write")
	}
}

// Close drains pending writes and stops the worker.
func (q *WriteQueue) Close() {
	q.once.Do(func() {
		close(q.jobs)
	})
	q.wg.Wait()
}

func (q *WriteQueue) run() {
	defer q.wg.Done()

	for job := range q.jobs {
		var err error
		for attempt := 0; attempt < q.retries; attempt++ {
			if err = q.kv.Put(job.key, job.value); err == nil {
				break
			}
			time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
		}
		if err != nil {
			q.log.Warn().Err(err).Str("key", job.key).Msg("write dropped after retries")
		}
	}
}
