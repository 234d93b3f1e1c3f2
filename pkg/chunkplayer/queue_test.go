// ABOUTME: Tests for the chunk queue
// ABOUTME: FIFO order, stop mode precedence and blocking take
package chunkplayer

import (
	"testing"
	"time"
)

func TestChunkQueueFIFO(t *testing.T) {
	q := newChunkQueue()

	var pushed []*Chunk
	for i := 0; i < 200; i++ {
		c := NewChunk(pcm(0, byte(i), 4), 4, nil)
		pushed = append(pushed, c)
		q.push(c)
	}

	if q.len() != 200 {
		t.Fatalf("expected 200 queued, got %d", q.len())
	}

	for i, want := range pushed {
		got, res := q.take()
		if res != takeChunk {
			t.Fatalf("take %d: expected chunk, got result %d", i, res)
		}
		if got != want {
			t.Fatalf("take %d: chunks out of order", i)
		}
	}

	if q.len() != 0 {
		t.Errorf("expected empty queue, got %d", q.len())
	}
}

func TestChunkQueueIgnoresNil(t *testing.T) {
	q := newChunkQueue()

	if q.push(nil) {
		t.Error("expected nil push to be rejected")
	}
	if q.len() != 0 {
		t.Errorf("expected empty queue, got %d", q.len())
	}
}

func TestChunkQueueDrainAfterQueued(t *testing.T) {
	q := newChunkQueue()
	q.push(NewChunk(pcm(0, 1, 4), 4, nil))
	q.push(NewChunk(pcm(0, 2, 4), 4, nil))
	q.requestDrain()

	for i := 0; i < 2; i++ {
		if _, res := q.take(); res != takeChunk {
			t.Fatalf("take %d: queued chunks must come before drain, got %d", i, res)
		}
	}
	if _, res := q.take(); res != takeDrained {
		t.Errorf("expected drained, got %d", res)
	}
}

func TestChunkQueueImmediateWins(t *testing.T) {
	q := newChunkQueue()
	q.push(NewChunk(pcm(0, 1, 4), 4, nil))
	q.requestDrain()
	q.requestImmediate()

	if _, res := q.take(); res != takeStopped {
		t.Errorf("expected stopped, got %d", res)
	}

	// Drain never downgrades an immediate stop
	q.requestDrain()
	if q.currentMode() != modeImmediateRequested {
		t.Errorf("expected %s, got %s", modeImmediateRequested, q.currentMode())
	}
}

func TestChunkQueueTakeBlocks(t *testing.T) {
	tests := []struct {
		name string
		wake func(q *chunkQueue)
		want takeResult
	}{
		{"push", func(q *chunkQueue) { q.push(NewChunk(pcm(0, 0, 4), 4, nil)) }, takeChunk},
		{"drain", func(q *chunkQueue) { q.requestDrain() }, takeDrained},
		{"immediate", func(q *chunkQueue) { q.requestImmediate() }, takeStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newChunkQueue()
			results := make(chan takeResult, 1)

			go func() {
				_, res := q.take()
				results <- res
			}()

			select {
			case res := <-results:
				t.Fatalf("take returned %d before wake", res)
			case <-time.After(20 * time.Millisecond):
			}

			tt.wake(q)

			select {
			case res := <-results:
				if res != tt.want {
					t.Errorf("expected %d, got %d", tt.want, res)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("take did not wake")
			}
		})
	}
}

func TestChunkQueueCompaction(t *testing.T) {
	q := newChunkQueue()

	next := byte(0)
	want := byte(0)
	for round := 0; round < 10; round++ {
		for i := 0; i < 100; i++ {
			q.push(NewChunk(pcm(0, next, 4), 4, nil))
			next++
		}
		for i := 0; i < 90; i++ {
			c, _ := q.take()
			if c.Bytes()[2] != want {
				t.Fatalf("expected tag %d, got %d", want, c.Bytes()[2])
			}
			want++
		}
	}

	if q.len() != 100 {
		t.Errorf("expected 100 queued, got %d", q.len())
	}
}
