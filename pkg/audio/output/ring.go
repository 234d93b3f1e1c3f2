// ABOUTME: Blocking byte ring buffer for callback-driven devices
// ABOUTME: Writers wait for free space, the device callback never blocks
package output

import "sync"

// RingBuffer is a thread-safe circular byte buffer.
// Write blocks while the buffer is full; Read never blocks and zero-fills underruns.
type RingBuffer struct {
	mu       sync.Mutex
	space    *sync.Cond
	buffer   []byte
	readPos  int
	writePos int
	count    int // Number of bytes currently in buffer
	closed   bool
}

// NewRingBuffer creates a ring buffer with given capacity (in bytes)
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	rb := &RingBuffer{
		buffer: make([]byte, capacity),
	}
	rb.space = sync.NewCond(&rb.mu)
	return rb
}

// Write copies all of p into the buffer, waiting for the reader to free space.
// Returns ErrReleased if the buffer is closed before p is fully written.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := 0
	for written < len(p) {
		for rb.count == len(rb.buffer) && !rb.closed {
			rb.space.Wait()
		}
		if rb.closed {
			return written, ErrReleased
		}

		for written < len(p) && rb.count < len(rb.buffer) {
			rb.buffer[rb.writePos] = p[written]
			rb.writePos = (rb.writePos + 1) % len(rb.buffer)
			rb.count++
			written++
		}
	}
	return written, nil
}

// Read drains up to len(p) bytes and zero-fills the rest of p
func (rb *RingBuffer) Read(p []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	read := 0
	for read < len(p) && rb.count > 0 {
		p[read] = rb.buffer[rb.readPos]
		rb.readPos = (rb.readPos + 1) % len(rb.buffer)
		rb.count--
		read++
	}

	// Zero-fill remaining if underrun
	for i := read; i < len(p); i++ {
		p[i] = 0
	}

	if read > 0 {
		rb.space.Broadcast()
	}
	return read
}

// Available returns the number of bytes available to read
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Close wakes blocked writers; subsequent writes fail
func (rb *RingBuffer) Close() {
	rb.mu.Lock()
	rb.closed = true
	rb.mu.Unlock()
	rb.space.Broadcast()
}
