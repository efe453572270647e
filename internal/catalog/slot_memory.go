package catalog

import (
	"context"
	"sync"
)

type MemSlot struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemSlot() *MemSlot {
	return &MemSlot{m: map[string][]byte{}}
}

func (s *MemSlot) Ping(ctx context.Context) error { return nil }

func (s *MemSlot) Read(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.m[key]
	if !ok {
		return nil, ErrSlotEmpty
	}
	return append([]byte(nil), b...), nil
}

func (s *MemSlot) Write(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), data...)
	return nil
}
