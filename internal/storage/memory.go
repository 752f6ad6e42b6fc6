package storage

import (
	"errors"
	"sync"

	"wa-relay/internal/metrics"
	"wa-relay/internal/model"
)

var ErrNotFound = errors.New("message not found")

// MemoryStore keeps messages in insertion order for the life of the process.
// Nothing is ever updated or deleted.
type MemoryStore struct {
	mu       sync.RWMutex
	messages []model.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds a message to the end of the sequence. Duplicate ids are kept.
func (s *MemoryStore) Append(m model.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	n := len(s.messages)
	s.mu.Unlock()

	metrics.StoreSize.Set(float64(n))
}

// List returns the window [offset, offset+limit) and the total count.
// A negative offset is treated as 0; a non-positive limit yields no messages.
func (s *MemoryStore) List(limit, offset int) model.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.messages)
	page := model.Page{Messages: []model.Message{}, Total: total}

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= total {
		return page
	}

	end := total
	if limit < total-offset {
		end = offset + limit
	}
	page.Messages = make([]model.Message, end-offset)
	copy(page.Messages, s.messages[offset:end])
	return page
}

// Get returns the first message with the given id.
func (s *MemoryStore) Get(id string) (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return model.Message{}, false
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
