// ABOUTME: In-memory audio sink
// ABOUTME: Records written chunks and lifecycle calls without touching a device
package output

import (
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
)

// Memory is a Sink that keeps every write in memory.
// It backs the "null" backend and the chunk player tests.
type Memory struct {
	// WriteHook, if set, runs at the start of every Write, outside the lock.
	// Returning an error fails the write.
	WriteHook func(p []byte) error

	mu       sync.Mutex
	format   audio.Format
	writes   [][]byte
	written  int64
	opens    int
	starts   int
	stops    int
	releases int
	started  bool
	released bool
}

// NewMemory creates an empty memory sink
func NewMemory() *Memory {
	return &Memory{}
}

// Open records the format
func (m *Memory) Open(format audio.Format) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.format = format
	m.opens++
	return nil
}

// Start marks the sink started
func (m *Memory) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.opens == 0 {
		return fmt.Errorf("output not initialized")
	}
	m.started = true
	m.starts++
	return nil
}

// Write stores a copy of p
func (m *Memory) Write(p []byte) (int, error) {
	if m.WriteHook != nil {
		if err := m.WriteHook(p); err != nil {
			return 0, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.released {
		return 0, ErrReleased
	}
	if !m.started {
		return 0, fmt.Errorf("output not started")
	}

	buf := make([]byte, len(p))
	copy(buf, p)
	m.writes = append(m.writes, buf)
	m.written += int64(len(p))
	return len(p), nil
}

// Stop marks the sink stopped
func (m *Memory) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = false
	m.stops++
	return nil
}

// Release marks the sink released; later writes fail
func (m *Memory) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.released = true
	m.releases++
	return nil
}

// Format returns the format passed to Open
func (m *Memory) Format() audio.Format {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.format
}

// Writes returns copies of all accepted writes in order
func (m *Memory) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// BytesWritten returns the total number of bytes accepted
func (m *Memory) BytesWritten() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written
}

// Releases returns how many times Release was called
func (m *Memory) Releases() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releases
}

// Stops returns how many times Stop was called
func (m *Memory) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// Started reports whether the sink is currently started
func (m *Memory) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}
