// Package cache stores results of earlier queries, keyed by the query text
// and its variables.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/hanpama/gqlink/internal/link"
)

type Cache struct {
	mu      sync.RWMutex
	entries map[string]*link.Result
}

func New() *Cache { return &Cache{entries: make(map[string]*link.Result)} }

// Key hashes the query and variables. Variables are encoded with sorted
// keys, so equal maps produce equal keys.
func Key(query string, variables map[string]any) (string, error) {
	b, err := json.Marshal(struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}{query, variables})
	if err != nil {
		return "", fmt.Errorf("cache: key: %w", err)
	}
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Read returns a copy of the entry, so callers may modify it freely.
func (c *Cache) Read(key string) (*link.Result, bool) {
	c.mu.RLock()
	r, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Write stores a copy of r.
func (c *Cache) Write(key string, r *link.Result) {
	r = r.Clone()
	c.mu.Lock()
	c.entries[key] = r
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops every entry, e.g. after sign-out.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]*link.Result)
	c.mu.Unlock()
}
