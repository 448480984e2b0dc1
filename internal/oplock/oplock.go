// Package oplock serializes operations per operation class (build, test).
// At most one in-flight operation per class per process.
package oplock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

type Class string

const (
	ClassBuild Class = "build"
	ClassTest  Class = "test"
)

var (
	// ErrAcquireTimeout is returned when the lock could not be acquired
	// within the requested wait. The caller may retry later or use Reset.
	ErrAcquireTimeout = errors.New("timed out acquiring operation lock")

	// ErrExternalActivityTimeout is returned when externally triggered
	// activity of the same class did not finish within the allotted wait.
	ErrExternalActivityTimeout = errors.New("timed out waiting for external activity to finish")

	// ErrUnknownClass is returned for a class the set was not built with.
	ErrUnknownClass = errors.New("unknown operation class")
)

// Handle represents a held class lock. Release is idempotent.
type Handle struct {
	cl          *classLock
	token       uint64
	releaseOnce sync.Once
}

func (h *Handle) Release() {
	h.releaseOnce.Do(func() {
		h.cl.release(h.token)
	})
}

// A classLock is a channel-of-one lock so acquisition can be bounded by a
// context. Unlock is non-blocking.
type classLock struct {
	ch chan struct{}

	mu        sync.Mutex
	holder    uint64 // 0 when free
	heldSince time.Time
}

func (cl *classLock) tryAcquire(token uint64) bool {
	select {
	case cl.ch <- struct{}{}:
		cl.setHolder(token)
		return true
	default:
		return false
	}
}

func (cl *classLock) setHolder(token uint64) {
	cl.mu.Lock()
	cl.holder = token
	cl.heldSince = time.Now()
	cl.mu.Unlock()
}

func (cl *classLock) release(token uint64) {
	cl.mu.Lock()
	if cl.holder != token {
		// A Reset already reclaimed the lock; this stale release is a no-op.
		cl.mu.Unlock()
		return
	}
	cl.holder = 0
	cl.mu.Unlock()

	select {
	case <-cl.ch:
	default:
	}
}

// Set holds one lock per operation class. Construct explicitly and pass by
// reference; there is no ambient global instance.
type Set struct {
	locks     map[Class]*classLock
	nextToken func() uint64
	log       logr.Logger
}

func NewSet(log logr.Logger, classes ...Class) *Set {
	locks := make(map[Class]*classLock, len(classes))
	for _, c := range classes {
		locks[c] = &classLock{ch: make(chan struct{}, 1)}
	}

	var mu sync.Mutex
	var counter uint64
	return &Set{
		locks: locks,
		nextToken: func() uint64 {
			mu.Lock()
			defer mu.Unlock()
			counter++
			return counter
		},
		log: log.WithName("oplock"),
	}
}

// Acquire blocks up to timeout for exclusive ownership of the class lock.
// On success the returned Handle must be released (normally via defer) on
// every path: success, failure, or operation timeout.
func (s *Set) Acquire(ctx context.Context, class Class, timeout time.Duration) (*Handle, error) {
	cl, found := s.locks[class]
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	token := s.nextToken()

	select {
	case cl.ch <- struct{}{}:
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("class %q still busy after %v: %w", class, timeout, ErrAcquireTimeout)
	}

	// Guard against the context expiring at the same instant the lock is won.
	if ctx.Err() != nil {
		select {
		case <-cl.ch:
		default:
		}
		return nil, ctx.Err()
	}

	cl.setHolder(token)
	return &Handle{cl: cl, token: token}, nil
}

// IsLocked reports whether an operation of the class is currently in flight.
func (s *Set) IsLocked(class Class) bool {
	cl, found := s.locks[class]
	if !found {
		return false
	}
	return len(cl.ch) == 1
}

// WaitForExternalActivity polls the active probe until it reports false,
// bounded by maxWait. Used before acquiring, when the host environment may
// be running an instance of the same class that it triggered itself.
func (s *Set) WaitForExternalActivity(ctx context.Context, class Class, maxWait, pollInterval time.Duration, active func() bool) error {
	if !active() {
		return nil
	}

	s.log.V(1).Info("waiting for externally triggered activity to finish", "class", class, "maxWait", maxWait)

	waitCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !active() {
				return nil
			}
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("class %q external activity still running after %v: %w", class, maxWait, ErrExternalActivityTimeout)
		}
	}
}

// ResetResult describes what a Reset call was able to do.
type ResetResult string

const (
	// ResetReleased: the supplied handle held the lock and it was released.
	ResetReleased ResetResult = "released"
	// ResetAvailable: the lock was not held; a probe acquire/release confirmed it.
	ResetAvailable ResetResult = "available"
	// ResetHeldElsewhere: the lock is held by another operation. Reset does
	// not force-unlock; this outcome is diagnostic, not authoritative.
	ResetHeldElsewhere ResetResult = "held-elsewhere"
)

type ResetOutcome struct {
	Result  ResetResult
	HeldFor time.Duration
}

// Reset is a best-effort recovery escape hatch. If owned (possibly nil) is a
// handle for this class held by the caller, it is released. Otherwise Reset
// probe-acquires and releases to confirm availability; if the lock is held by
// someone else it reports that without forcing an unlock.
func (s *Set) Reset(class Class, owned *Handle) (ResetOutcome, error) {
	cl, found := s.locks[class]
	if !found {
		return ResetOutcome{}, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}

	if owned != nil && owned.cl == cl {
		owned.Release()
		s.log.Info("operation lock released via reset", "class", class)
		return ResetOutcome{Result: ResetReleased}, nil
	}

	token := s.nextToken()
	if cl.tryAcquire(token) {
		cl.release(token)
		return ResetOutcome{Result: ResetAvailable}, nil
	}

	cl.mu.Lock()
	heldFor := time.Since(cl.heldSince)
	cl.mu.Unlock()

	s.log.Info("operation lock is held by another operation; not forcing", "class", class, "heldFor", heldFor)
	return ResetOutcome{Result: ResetHeldElsewhere, HeldFor: heldFor}, nil
}
