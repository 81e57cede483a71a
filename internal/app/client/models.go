package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"citycare/internal/domain/story"
)

// Storage - контракт постоянного хранилища с тремя разделами
type Storage interface {
	Put(ctx context.Context, st story.Story) error
	ListStories(ctx context.Context) ([]story.Story, error)
	GetByID(ctx context.Context, id any) (story.Story, error)
	Delete(ctx context.Context, id any) error
	DeleteRemoteCachedNotIn(ctx context.Context, ids []string) error
	CountStories(ctx context.Context) (int, error)

	Enqueue(ctx context.Context, entry *story.QueueEntry) error
	ListQueue(ctx context.Context) ([]story.QueueEntry, error)
	DeleteQueueEntry(ctx context.Context, id int64) error
	ClearQueue(ctx context.Context) error

	SetPreference(ctx context.Context, key, value string) error
	GetPreference(ctx context.Context, key string) (string, bool, error)

	Close() error
}

// FetchResult - результат чтения списка: данные пришли либо из сети,
// либо из кэша, вызывающему всегда возвращается какой-то список
type FetchResult struct {
	Stories   []story.Story `json:"stories"`
	FromCache bool          `json:"fromCache"`
	NoData    bool          `json:"noData"`
}

// StoryResult - результат чтения одной записи
type StoryResult struct {
	Story     story.Story `json:"story"`
	FromCache bool        `json:"fromCache"`
}

// CreateResult - результат создания записи: либо подтверждено удаленным
// источником, либо сохранено локально до восстановления связи
type CreateResult struct {
	Story   story.Story `json:"story"`
	Pending bool        `json:"pending"`
}

// ReplayResult - результат воспроизведения очереди
type ReplayResult struct {
	Replayed  int           `json:"replayed"`
	Remaining int           `json:"remaining"`
	Partial   bool          `json:"partial"`
	Duration  time.Duration `json:"duration"`
}

// MemoryStorage - временное in-memory хранилище: используется, когда
// SQLite недоступен, и в тестах
type MemoryStorage struct {
	mu      sync.RWMutex
	stories map[string]story.Story
	queue   []story.QueueEntry
	prefs   map[string]string
	nextID  int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		stories: make(map[string]story.Story),
		prefs:   make(map[string]string),
		nextID:  1,
	}
}

func (m *MemoryStorage) Put(_ context.Context, st story.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st.ID = story.CanonicalID(st.ID)
	if st.ID == "" {
		return &story.ValidationError{Field: "id", Message: "id is required"}
	}

	if existing, ok := m.stories[st.ID]; ok {
		merged := mergeStories(existing, st)
		merged.CachedAt = time.Now().UTC()
		m.stories[st.ID] = merged
		return nil
	}

	st.CachedAt = time.Now().UTC()
	if st.Origin == "" {
		st.Origin = story.OriginRemoteCached
	}
	m.stories[st.ID] = st
	return nil
}

func (m *MemoryStorage) ListStories(_ context.Context) ([]story.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stories := make([]story.Story, 0, len(m.stories))
	for _, st := range m.stories {
		stories = append(stories, st)
	}
	return stories, nil
}

func (m *MemoryStorage) GetByID(_ context.Context, id any) (story.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	canonical := story.CanonicalID(id)
	st, ok := m.stories[canonical]
	if !ok {
		return story.Story{}, fmt.Errorf("id %q: %w", canonical, story.ErrNotFound)
	}
	return st, nil
}

func (m *MemoryStorage) Delete(_ context.Context, id any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.stories, story.CanonicalID(id))
	return nil
}

func (m *MemoryStorage) DeleteRemoteCachedNotIn(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fresh := make(map[string]bool, len(ids))
	for _, id := range ids {
		fresh[id] = true
	}

	for id, st := range m.stories {
		if st.Origin == story.OriginRemoteCached && !fresh[id] {
			delete(m.stories, id)
		}
	}
	return nil
}

func (m *MemoryStorage) CountStories(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stories), nil
}

func (m *MemoryStorage) Enqueue(_ context.Context, entry *story.QueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.ID = m.nextID
	m.nextID++
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now().UTC()
	}
	m.queue = append(m.queue, *entry)
	return nil
}

func (m *MemoryStorage) ListQueue(_ context.Context) ([]story.QueueEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]story.QueueEntry, len(m.queue))
	copy(entries, m.queue)
	return entries, nil
}

func (m *MemoryStorage) DeleteQueueEntry(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, entry := range m.queue {
		if entry.ID == id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryStorage) ClearQueue(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = nil
	return nil
}

func (m *MemoryStorage) SetPreference(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prefs[key] = value
	return nil
}

func (m *MemoryStorage) GetPreference(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.prefs[key]
	return value, ok, nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
