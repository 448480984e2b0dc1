package io

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoundedBufferNeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	const capacity = 256
	b := NewBoundedBuffer(capacity)

	for i := 0; i < 100; i++ {
		b.Append(strings.Repeat("x", 20))
		require.LessOrEqual(t, b.Len(), capacity)
	}
	require.True(t, b.Truncated())
	require.Contains(t, b.String(), TruncationNotice)
}

func TestBoundedBufferOversizedSingleAppend(t *testing.T) {
	t.Parallel()

	const capacity = 128
	b := NewBoundedBuffer(capacity)
	b.Append(strings.Repeat("y", 10*capacity))

	require.LessOrEqual(t, b.Len(), capacity)
	require.True(t, b.Truncated())
	require.True(t, strings.HasSuffix(b.String(), TruncationNotice))
	require.True(t, strings.HasPrefix(b.String(), "y"))
}

func TestBoundedBufferDrainReturnsNonOverlappingOutput(t *testing.T) {
	t.Parallel()

	b := NewBoundedBuffer(1024)
	b.Append("first")
	require.Equal(t, "first", b.Drain())

	b.Append("second")
	require.Equal(t, "second", b.Drain())
	require.Equal(t, "", b.Drain())
}

func TestBoundedBufferDrainReArmsCapture(t *testing.T) {
	t.Parallel()

	b := NewBoundedBuffer(64)
	b.Append(strings.Repeat("z", 100))
	require.True(t, b.Truncated())

	_ = b.Drain()
	require.False(t, b.Truncated())

	b.Append("after")
	require.Equal(t, "after", b.String())
}

func TestBoundedBufferConcurrentWriters(t *testing.T) {
	t.Parallel()

	const capacity = 4096
	b := NewBoundedBuffer(capacity)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				fmt.Fprintf(b, "writer-%d line %d\n", n, j)
			}
		}(i)
	}
	wg.Wait()

	require.LessOrEqual(t, b.Len(), capacity)
}
