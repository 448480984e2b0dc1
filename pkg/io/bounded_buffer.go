package io

import (
	"sync"
)

// TruncationNotice is appended exactly once when a BoundedBuffer reaches
// its capacity. Everything written after that point is dropped.
const TruncationNotice = "\n[output truncated: capture limit reached]\n"

// BoundedBuffer is a thread-safe, append-only text sink with a hard capacity.
// Once the capacity is reached the buffer stores a single truncation notice
// and discards further writes, so the stored length never exceeds the capacity.
// Drain() atomically returns the accumulated text and empties the buffer,
// which also re-arms capture after a truncation.
type BoundedBuffer struct {
	lock      sync.Mutex
	data      []byte
	capacity  int
	truncated bool
}

func NewBoundedBuffer(capacity int) *BoundedBuffer {
	if capacity <= 0 {
		panic("bounded buffer capacity must be positive")
	}
	return &BoundedBuffer{
		data:     make([]byte, 0, min(capacity, 4096)),
		capacity: capacity,
	}
}

// Append adds text to the buffer, truncating if the capacity would be exceeded.
func (b *BoundedBuffer) Append(s string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.append([]byte(s))
}

// Write implements io.Writer so the buffer can capture process output directly.
// It always reports len(p) bytes consumed, even when truncating, so that
// io.Copy and exec.Cmd plumbing never fail with a short-write error.
func (b *BoundedBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.append(p)
	return len(p), nil
}

func (b *BoundedBuffer) append(p []byte) {
	if b.truncated {
		return
	}

	room := b.capacity - len(b.data)
	if len(p) <= room {
		b.data = append(b.data, p...)
		return
	}

	// The write does not fit. Keep the prefix that leaves room for the
	// truncation notice, then seal the buffer.
	notice := TruncationNotice
	if len(notice) > b.capacity {
		notice = notice[:b.capacity]
	}
	keep := b.capacity - len(notice)
	if keep > len(b.data)+len(p) {
		keep = len(b.data) + len(p)
	}
	if keep > len(b.data) {
		b.data = append(b.data, p[:keep-len(b.data)]...)
	} else {
		b.data = b.data[:keep]
	}
	b.data = append(b.data, notice...)
	b.truncated = true
}

// Len returns the current stored length. Always <= capacity.
func (b *BoundedBuffer) Len() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.data)
}

// String returns a copy of the accumulated text without draining it.
func (b *BoundedBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return string(b.data)
}

// Drain atomically returns the accumulated text and empties the buffer.
// Repeated drains return non-overlapping output.
func (b *BoundedBuffer) Drain() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	out := string(b.data)
	b.data = b.data[:0]
	b.truncated = false
	return out
}

// Truncated reports whether the buffer has discarded output since the last drain.
func (b *BoundedBuffer) Truncated() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.truncated
}
