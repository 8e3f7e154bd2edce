package stats

import "sync"

// hitQueue is a fixed pool of workers behind a bounded buffer. Submissions
// never block: a full buffer rejects the job.
type hitQueue struct {
	jobs     chan func()
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopped  bool
	stopOnce sync.Once
}

func newHitQueue(workers, size int) *hitQueue {
	if workers <= 0 {
		workers = 2
	}
	if size <= 0 {
		size = workers * 64
	}
	q := &hitQueue{jobs: make(chan func(), size)}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *hitQueue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		job()
	}
}

// trySubmit reports false when the queue is full or stopped.
func (q *hitQueue) trySubmit(job func()) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return false
	}
	select {
	case q.jobs <- job:
		return true
	default:
		return false
	}
}

// stop rejects new jobs and waits for queued ones to finish.
func (q *hitQueue) stop() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.stopped = true
		close(q.jobs)
		q.mu.Unlock()
	})
	q.wg.Wait()
}
