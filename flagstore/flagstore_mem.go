package flagstore

import (
	"context"
	"sync"
	"time"
)

type MemFlagStore struct {
	mu   sync.RWMutex
	data map[uint64]State
}

var _ FlagStore = (*MemFlagStore)(nil)

func NewMemFlagStore() *MemFlagStore {
	return &MemFlagStore{
		data: make(map[uint64]State),
	}
}

func (s *MemFlagStore) Get(ctx context.Context, subjectID uint64) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data[subjectID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (s *MemFlagStore) Set(ctx context.Context, subjectID uint64, reason string, at time.Time) error {
	if reason == "" {
		return ErrEmptyReason
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[subjectID] = State{Reason: reason, FlaggedAt: at}
	return nil
}

func (s *MemFlagStore) Clear(ctx context.Context, subjectID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, subjectID)
	return nil
}
