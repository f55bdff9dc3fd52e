package session

import (
	"context"
	"sync"
)

// keyedMutex serializes work per game code. Waiters are granted the
// lock in arrival order so a busy table cannot starve anyone.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockState
}

type lockState struct {
	held  bool
	queue []chan struct{}
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockState)}
}

// Lock acquires the lock for key, blocking in FIFO order. The returned
// function releases it. On context cancellation the waiter is removed
// from the queue and an error returned.
func (k *keyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	state := k.locks[key]
	if state == nil {
		state = &lockState{}
		k.locks[key] = state
	}
	if !state.held {
		state.held = true
		k.mu.Unlock()
		return func() { k.unlock(key) }, nil
	}

	grant := make(chan struct{})
	state.queue = append(state.queue, grant)
	k.mu.Unlock()

	select {
	case <-grant:
		return func() { k.unlock(key) }, nil
	case <-ctx.Done():
	}

	// Canceled: either we are still queued, or the grant raced the
	// cancellation and the lock is ours to pass on.
	k.mu.Lock()
	for i, w := range state.queue {
		if w == grant {
			state.queue = append(state.queue[:i], state.queue[i+1:]...)
			k.mu.Unlock()
			return nil, ctx.Err()
		}
	}
	k.mu.Unlock()
	<-grant
	k.unlock(key)
	return nil, ctx.Err()
}

func (k *keyedMutex) unlock(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	state := k.locks[key]
	if state == nil || !state.held {
		panic("session: unlock of unheld game lock")
	}
	if len(state.queue) > 0 {
		next := state.queue[0]
		state.queue = state.queue[1:]
		close(next)
		return
	}
	state.held = false
	if len(state.queue) == 0 {
		delete(k.locks, key)
	}
}
