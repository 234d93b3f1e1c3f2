// ABOUTME: Unbounded FIFO of chunks with blocking take
// ABOUTME: Queue contents and stop mode share one mutex so no wakeup is lost
package chunkplayer

import "sync"

// stopMode is the tri-state stop request consumed by the scheduler
type stopMode int

const (
	modeRunning stopMode = iota
	modeDrainRequested
	modeImmediateRequested
)

func (m stopMode) String() string {
	switch m {
	case modeRunning:
		return "running"
	case modeDrainRequested:
		return "drain-requested"
	case modeImmediateRequested:
		return "immediate-requested"
	default:
		return "unknown"
	}
}

// takeResult says why take returned
type takeResult int

const (
	takeChunk   takeResult = iota // a chunk was popped
	takeDrained                   // drain requested and the queue is empty
	takeStopped                   // immediate stop requested
)

// chunkQueue is a thread-safe FIFO. Any number of producers push; a single
// consumer takes. push and the stop requests never block.
type chunkQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []*Chunk
	head  int
	mode  stopMode
}

func newChunkQueue() *chunkQueue {
	q := &chunkQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends c to the tail and wakes the consumer. nil is ignored.
func (q *chunkQueue) push(c *Chunk) bool {
	if c == nil {
		return false
	}

	q.mu.Lock()
	q.items = append(q.items, c)
	q.mu.Unlock()
	q.cond.Signal()
	return true
}

// requestDrain asks the consumer to finish once the queue is empty.
// It never downgrades an immediate stop.
func (q *chunkQueue) requestDrain() {
	q.mu.Lock()
	if q.mode == modeRunning {
		q.mode = modeDrainRequested
	}
	q.mu.Unlock()
	q.cond.Signal()
}

// requestImmediate asks the consumer to stop after the chunk in flight
func (q *chunkQueue) requestImmediate() {
	q.mu.Lock()
	q.mode = modeImmediateRequested
	q.mu.Unlock()
	q.cond.Signal()
}

// stopped reports whether an immediate stop has been requested
func (q *chunkQueue) stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.mode == modeImmediateRequested
}

// currentMode returns the stop mode
func (q *chunkQueue) currentMode() stopMode {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.mode
}

// len returns the number of queued chunks
func (q *chunkQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// take pops the front chunk, blocking while the queue is empty and no stop is
// requested. Queued chunks are returned before a drain request is honored;
// an immediate stop wins over anything still queued.
func (q *chunkQueue) take() (*Chunk, takeResult) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.mode == modeImmediateRequested {
			return nil, takeStopped
		}

		if q.head < len(q.items) {
			c := q.items[q.head]
			q.items[q.head] = nil
			q.head++

			// Reclaim the consumed prefix once it dominates the slice
			if q.head > 64 && q.head*2 >= len(q.items) {
				q.items = append([]*Chunk(nil), q.items[q.head:]...)
				q.head = 0
			}
			return c, takeChunk
		}

		if q.mode == modeDrainRequested {
			return nil, takeDrained
		}

		q.cond.Wait()
	}
}
