// Package tokenstore holds the bearer token used to authenticate operations.
//
// A store has a single slot: it holds zero or one token. Absence is the
// unauthenticated state, not an error.
package tokenstore

import "sync"

// DefaultKey is the slot name used for the persisted token.
const DefaultKey = "jwt"

// Store reads and mutates the token slot. Implementations are safe for
// concurrent use and Clear on an empty slot is a no-op.
type Store interface {
	Read() (token string, ok bool)
	Write(token string)
	Clear()
}

// Memory is a Store that lives only as long as the process.
type Memory struct {
	mu    sync.RWMutex
	token string
	set   bool
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Read() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.set
}

func (m *Memory) Write(token string) {
	m.mu.Lock()
	m.token, m.set = token, true
	m.mu.Unlock()
}

func (m *Memory) Clear() {
	m.mu.Lock()
	m.token, m.set = "", false
	m.mu.Unlock()
}
