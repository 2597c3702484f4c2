package customers

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps customers in process memory. Used for tests and local
// development; a restart loses all state.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*memoryRecord
}

type memoryRecord struct {
	profile Profile
	history []Turn
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*memoryRecord)}
}

func (s *MemoryStore) record(phone string) *memoryRecord {
	rec, ok := s.records[phone]
	if !ok {
		profile := NewProfile()
		profile.LastContact = time.Now()
		rec = &memoryRecord{profile: profile}
		s.records[phone] = rec
	}
	return rec
}

func (s *MemoryStore) Get(_ context.Context, phone string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record(phone).profile, nil
}

func (s *MemoryStore) Apply(_ context.Context, phone string, update Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(phone).profile.apply(update)
	return nil
}

func (s *MemoryStore) AppendHistory(_ context.Context, phone, userMsg, botReply string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(phone)
	rec.history = append(rec.history,
		Turn{Role: "user", Content: userMsg},
		Turn{Role: "assistant", Content: botReply},
	)
	if len(rec.history) > maxHistoryTurns {
		rec.history = append([]Turn(nil), rec.history[len(rec.history)-keepHistoryTurns:]...)
	}
	rec.profile.LastContact = time.Now()
	return nil
}

func (s *MemoryStore) History(_ context.Context, phone string, limit int) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.record(phone).history
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]Turn, len(history))
	copy(out, history)
	return out, nil
}
