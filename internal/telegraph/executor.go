package telegraph

import "sync"

// serialExecutor runs submitted functions in FIFO order per key. Each key
// with pending work has exactly one worker goroutine; different keys run
// concurrently.
type serialExecutor struct {
	mu     sync.Mutex
	queues map[string][]func()
	wg     sync.WaitGroup
}

func newSerialExecutor() *serialExecutor {
	return &serialExecutor{queues: make(map[string][]func())}
}

// Submit enqueues fn behind any pending work for key.
func (e *serialExecutor) Submit(key string, fn func()) {
	e.mu.Lock()
	q, running := e.queues[key]
	e.queues[key] = append(q, fn)
	e.wg.Add(1)
	e.mu.Unlock()

	if !running {
		go e.drain(key)
	}
}

// drain runs queued work for key until the queue is empty. The key stays
// in the map while the worker runs so Submit does not start a second one.
func (e *serialExecutor) drain(key string) {
	for {
		e.mu.Lock()
		q := e.queues[key]
		if len(q) == 0 {
			delete(e.queues, key)
			e.mu.Unlock()
			return
		}
		fn := q[0]
		e.queues[key] = q[1:]
		e.mu.Unlock()

		fn()
		e.wg.Done()
	}
}

// Pending returns the number of keys with queued or running work.
func (e *serialExecutor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queues)
}

// Wait blocks until all submitted work has finished.
func (e *serialExecutor) Wait() {
	e.wg.Wait()
}
