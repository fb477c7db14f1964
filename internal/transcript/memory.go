// File: internal/transcript/memory.go
package transcript

import (
	"context"
	"sync"

	"github.com/formpilot/formpilot/api/schemas"
)

// Memory is the in-process TranscriptStore used when no database is
// configured. History lives only as long as the engine does.
type Memory struct {
	mu   sync.Mutex
	data map[string][]schemas.ChatMessage
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]schemas.ChatMessage)}
}

func (m *Memory) Load(_ context.Context, key string) ([]schemas.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.data[key]
	out := make([]schemas.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *Memory) Save(_ context.Context, key string, msgs []schemas.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]schemas.ChatMessage, len(msgs))
	copy(cp, msgs)
	m.data[key] = cp
	return nil
}

func (m *Memory) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

var _ schemas.TranscriptStore = (*Memory)(nil)
