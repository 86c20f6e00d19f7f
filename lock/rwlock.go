// Package lock implements a writer-priority reader-writer lock: once a
// writer is waiting, new readers block until that writer has acquired and
// released, preventing writer starvation under sustained read load.
//
// sync.RWMutex makes no such guarantee (Go's runtime can let a steady
// stream of readers starve a waiting writer), so this is built directly on
// sync.Mutex/sync.Cond, following the exact state machine of
// the reference reader-writer lock this spec is built against:
// active-reader count, a writer-active flag, and a waiting-writer count.
package lock

import "sync"

// RWLock is a writer-priority reader-writer lock. Not reentrant: a holder
// must not re-acquire, read or write, without releasing first.
type RWLock struct {
	mu             sync.Mutex
	cond           *sync.Cond
	activeReaders  int
	writerActive   bool
	waitingWriters int
}

// New creates a ready-to-use RWLock.
func New() *RWLock {
	l := &RWLock{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// RLock blocks until a read lock is available. Readers are admitted only
// when no writer holds the lock and no writer is waiting.
func (l *RWLock) RLock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.writerActive || l.waitingWriters > 0 {
		l.cond.Wait()
	}
	l.activeReaders++
}

// RUnlock releases a read lock.
func (l *RWLock) RUnlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activeReaders--
	if l.activeReaders == 0 {
		l.cond.Broadcast()
	}
}

// Lock blocks until a write lock is available, excluding all readers and
// other writers. Registers as a waiting writer first so that readers which
// arrive after this call blocks do not cut in line ahead of it.
func (l *RWLock) Lock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.waitingWriters++
	for l.writerActive || l.activeReaders > 0 {
		l.cond.Wait()
	}
	l.waitingWriters--
	l.writerActive = true
}

// Unlock releases a write lock.
func (l *RWLock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writerActive = false
	l.cond.Broadcast()
}

// RGuard acquires a read lock and returns a function that releases it,
// for use as `defer lock.RGuard(l)()`.
func RGuard(l *RWLock) func() {
	l.RLock()
	return l.RUnlock
}

// WGuard acquires a write lock and returns a function that releases it,
// for use as `defer lock.WGuard(l)()`.
func WGuard(l *RWLock) func() {
	l.Lock()
	return l.Unlock
}
