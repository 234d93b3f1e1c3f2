// ABOUTME: Shared helpers for chunk player tests
// ABOUTME: Recording listener, stub analyzer and polling helpers
package chunkplayer

import (
	"encoding/binary"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/analyze"
	"github.com/charmbracelet/log"
)

// firstSample scores a chunk by its first sample so tests pick scores directly
var firstSample = analyze.AnalyzerFunc(func(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	return float64(samples[0])
})

// pcm builds n bytes whose first sample is score and whose remaining bytes are tag
func pcm(score int16, tag byte, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = tag
	}
	if n >= 2 {
		binary.LittleEndian.PutUint16(buf, uint16(score))
	}
	return buf
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

type recorder struct {
	mu       sync.Mutex
	events   []string
	sizes    []int64
	data     [][]byte
	finishes int
	errs     []error
}

func (r *recorder) OnFinish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "finish")
	r.finishes++
}

func (r *recorder) OnPlaySize(total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "size")
	r.sizes = append(r.sizes, total)
}

func (r *recorder) OnPlayData(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "data")
	buf := make([]byte, len(p))
	copy(buf, p)
	r.data = append(r.data, buf)
}

func (r *recorder) OnPlayError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "error")
	r.errs = append(r.errs, err)
}

func (r *recorder) Sizes() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.sizes...)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) Data() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.data...)
}

func (r *recorder) Finishes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finishes
}

func (r *recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// waitFor polls cond until it holds or two seconds pass
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// waitClosed waits for ch to close
func waitClosed(t *testing.T, what string, ch <-chan struct{}) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}
