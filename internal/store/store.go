// Package store is the document store boundary used for settings and
// preference documents. Documents are JSON objects addressed by
// collection and id.
package store

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when the document does not exist.
var ErrNotFound = errors.New("store: document not found")

// Store reads and writes whole JSON documents.
type Store interface {
	Get(ctx context.Context, collection, id string) ([]byte, error)
	Set(ctx context.Context, collection, id string, data []byte) error
}

// Memory is a process-local Store, used in dev mode and tests.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, collection, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.docs[collection+"/"+id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Set(_ context.Context, collection, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[collection+"/"+id] = append([]byte(nil), data...)
	return nil
}
