// Package navigation tracks the current location of the host application.
package navigation

import (
	"slices"
	"sync"
)

// Memory is a navigator for hosts without a browser: it remembers the
// current path and every redirect performed.
type Memory struct {
	mu        sync.Mutex
	path      string
	redirects []string
}

func NewMemory(path string) *Memory {
	if path == "" {
		path = "/"
	}
	return &Memory{path: path}
}

func (m *Memory) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

func (m *Memory) Navigate(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.path = path
	m.redirects = append(m.redirects, path)
}

// Redirects returns the paths navigated to, oldest first.
func (m *Memory) Redirects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.redirects)
}
