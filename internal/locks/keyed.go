package locks

import (
	"errors"
	"sync"
	"time"
)

// ErrBusy is returned when another request holds the same attempt's lock
// for longer than the acquisition budget. Callers should surface it as a
// retryable conflict rather than queueing behind the holder.
var ErrBusy = errors.New("attempt is locked by a concurrent request")

// KeyedMutex serializes work per key while leaving different keys fully
// independent. Acquisition is bounded: double-submits are an edge case,
// not a workload, so a contender fails fast instead of hanging.
type KeyedMutex struct {
	mu      sync.Mutex
	holders map[uint]chan struct{}
	timeout time.Duration
}

func NewKeyedMutex(timeout time.Duration) *KeyedMutex {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &KeyedMutex{
		holders: make(map[uint]chan struct{}),
		timeout: timeout,
	}
}

// Acquire takes the lock for key, waiting at most the configured timeout.
// The returned release function must be called exactly once.
func (m *KeyedMutex) Acquire(key uint) (func(), error) {
	deadline := time.Now().Add(m.timeout)
	for {
		m.mu.Lock()
		ch, held := m.holders[key]
		if !held {
			done := make(chan struct{})
			m.holders[key] = done
			m.mu.Unlock()
			var once sync.Once
			return func() {
				once.Do(func() {
					m.mu.Lock()
					delete(m.holders, key)
					m.mu.Unlock()
					close(done)
				})
			}, nil
		}
		m.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrBusy
		}
		select {
		case <-ch:
			// Holder released; retry the take.
		case <-time.After(remaining):
			return nil, ErrBusy
		}
	}
}

// WithLock runs fn under the key's lock.
func (m *KeyedMutex) WithLock(key uint, fn func() error) error {
	release, err := m.Acquire(key)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
