package progress

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/starmaker/internal/grid"
	"github.com/mind-engage/starmaker/internal/history"
)

// MemoryStore is an in-process Store used by tests and by MODE=demo. It copies
// records on the way in and out so callers never share maps or slices with it.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Record{}}
}

func cloneRecord(r Record) Record {
	out := r
	out.Cells = grid.Normalize(r.Cells)
	out.Questions = append([]history.Entry{}, r.Questions...)
	out.Feedback = append([]history.Entry{}, r.Feedback...)
	return out
}

func (s *MemoryStore) FindByName(_ context.Context, name string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.UserName == name {
			return cloneRecord(r), nil
		}
	}
	return Record{}, ErrNotFound
}

func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(r), nil
}

func (s *MemoryStore) Create(_ context.Context, name, password string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.UserName == name {
			return Record{}, ErrNameTaken
		}
	}
	r := Record{
		ID:        uuid.NewString(),
		UserName:  name,
		Password:  password,
		Cells:     grid.Cells{},
		Questions: []history.Entry{},
		Feedback:  []history.Entry{},
		CreatedAt: time.Now().Unix(),
	}
	s.records[r.ID] = r
	return cloneRecord(r), nil
}

func (s *MemoryStore) UpdateCells(_ context.Context, id string, cells grid.Cells) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	r.Cells = grid.Normalize(cells)
	s.records[id] = r
	return nil
}

func (s *MemoryStore) UpdateLog(_ context.Context, id string, field LogField, log []history.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	cp := append([]history.Entry{}, log...)
	switch field {
	case QuestionLog:
		r.Questions = cp
	case FeedbackLog:
		r.Feedback = cp
	default:
		return ErrUnknownField
	}
	s.records[id] = r
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, cloneRecord(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	return out, nil
}

func (s *MemoryStore) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.records))
	s.records = map[string]Record{}
	return n, nil
}
