package services

import "sync"

// FeedLocks hands out one mutex per feed id and forgets ids nobody holds.
// Ingest and feed removal share one FeedLocks.
type FeedLocks struct {
	mu    sync.Mutex
	locks map[int64]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// NewFeedLocks creates an empty lock set
func NewFeedLocks() *FeedLocks {
	return &FeedLocks{locks: make(map[int64]*refMutex)}
}

// Lock acquires the mutex for feedID and returns its unlock func
func (k *FeedLocks) Lock(feedID int64) func() {
	k.mu.Lock()
	m, ok := k.locks[feedID]
	if !ok {
		m = &refMutex{}
		k.locks[feedID] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, feedID)
		}
		k.mu.Unlock()
	}
}
