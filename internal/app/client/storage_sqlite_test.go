package client

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citycare/internal/domain/story"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	path := filepath.Join(t.TempDir(), "citycare_test.db")
	s := NewSQLiteStorage(path, testLogger())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ptrFloat(v float64) *float64 { return &v }

func TestPutMergesFields(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Put(ctx, story.Story{
		ID:          "abc",
		Name:        "Dimas",
		Description: "Первая версия",
		PhotoURL:    "https://example.test/abc.jpg",
		Lat:         ptrFloat(-6.2),
		Lon:         ptrFloat(106.8),
		CreatedAt:   created,
	}))

	// Частичное обновление: пустые поля не затирают сохраненные
	require.NoError(t, s.Put(ctx, story.Story{
		ID:          "abc",
		Description: "Вторая версия",
	}))

	st, err := s.GetByID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "Вторая версия", st.Description)
	assert.Equal(t, "Dimas", st.Name)
	assert.Equal(t, "https://example.test/abc.jpg", st.PhotoURL)
	require.NotNil(t, st.Lat)
	assert.InDelta(t, -6.2, *st.Lat, 1e-9)
	assert.True(t, st.CreatedAt.Equal(created), "created_at: %v", st.CreatedAt)
	assert.Equal(t, story.OriginRemoteCached, st.Origin)
	assert.False(t, st.CachedAt.IsZero())
}

func TestPutOriginNeverReverts(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, story.Story{
		ID:          "x",
		Description: "Запись",
		Origin:      story.OriginLocalSynced,
	}))

	// Попытка отката в local-pending игнорируется
	require.NoError(t, s.Put(ctx, story.Story{
		ID:     "x",
		Origin: story.OriginLocalPending,
	}))

	st, err := s.GetByID(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, story.OriginLocalSynced, st.Origin)
}

func TestPutKeepsFullDetailsOnListRefresh(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, story.Story{
		ID:             "d-1",
		Description:    "Детальная запись",
		Origin:         story.OriginRemoteCached,
		HasFullDetails: true,
	}))

	// Списочный ответ без деталей не должен сбрасывать флаг
	require.NoError(t, s.Put(ctx, story.Story{
		ID:          "d-1",
		Description: "Детальная запись",
		Origin:      story.OriginRemoteCached,
	}))

	st, err := s.GetByID(ctx, "d-1")
	require.NoError(t, err)
	assert.True(t, st.HasFullDetails)
}

func TestGetByIDStringAndNumericEquivalent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, story.Story{ID: "7", Description: "Числовой id"}))

	for _, id := range []any{"7", 7, int64(7), float64(7)} {
		st, err := s.GetByID(ctx, id)
		require.NoError(t, err, "id %v (%T)", id, id)
		assert.Equal(t, "7", st.ID)
	}

	_, err := s.GetByID(ctx, "8")
	assert.ErrorIs(t, err, story.ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, story.Story{ID: "gone", Description: "Удаляемая"}))
	require.NoError(t, s.Delete(ctx, "gone"))
	require.NoError(t, s.Delete(ctx, "gone"))
	require.NoError(t, s.Delete(ctx, "never-existed"))

	count, err := s.CountStories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDeleteRemoteCachedNotInKeepsLocal(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, story.Story{ID: "r1", Description: "Свежая", Origin: story.OriginRemoteCached}))
	require.NoError(t, s.Put(ctx, story.Story{ID: "r2", Description: "Устаревшая", Origin: story.OriginRemoteCached}))
	require.NoError(t, s.Put(ctx, story.Story{ID: "p1", Description: "Не отправлена", Origin: story.OriginLocalPending}))
	require.NoError(t, s.Put(ctx, story.Story{ID: "s1", Description: "Отправлена", Origin: story.OriginLocalSynced}))

	require.NoError(t, s.DeleteRemoteCachedNotIn(ctx, []string{"r1"}))

	stories, err := s.ListStories(ctx)
	require.NoError(t, err)
	require.Len(t, stories, 3)

	_, err = s.GetByID(ctx, "r2")
	assert.ErrorIs(t, err, story.ErrNotFound)

	for _, id := range []string{"r1", "p1", "s1"} {
		_, err := s.GetByID(ctx, id)
		assert.NoError(t, err, "id %s", id)
	}
}

func TestQueueOrderAndDeletion(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	var ids []int64
	for i := 1; i <= 3; i++ {
		entry := story.QueueEntry{
			EntryType: story.EntryCreateStory,
			StoryID:   fmt.Sprintf("local-%d", i),
			Payload:   story.NewStory{Description: fmt.Sprintf("Запись %d", i), PhotoData: []byte("x"), PhotoType: "image/jpeg"},
			Token:     fmt.Sprintf("token-%d", i),
		}
		require.NoError(t, s.Enqueue(ctx, &entry))
		require.NotZero(t, entry.ID)
		ids = append(ids, entry.ID)
	}

	entries, err := s.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, entry := range entries {
		assert.Equal(t, ids[i], entry.ID)
		assert.Equal(t, fmt.Sprintf("local-%d", i+1), entry.StoryID)
		assert.Equal(t, story.EntryCreateStory, entry.EntryType)
		assert.Equal(t, fmt.Sprintf("Запись %d", i+1), entry.Payload.Description)
		assert.False(t, entry.EnqueuedAt.IsZero())
	}

	// Удаляем среднюю, порядок остальных сохраняется
	require.NoError(t, s.DeleteQueueEntry(ctx, ids[1]))

	entries, err = s.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ids[0], entries[0].ID)
	assert.Equal(t, ids[2], entries[1].ID)

	require.NoError(t, s.ClearQueue(ctx))
	entries, err = s.ListQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPreferencesUpsert(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, found, err := s.GetPreference(ctx, "session.token")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SetPreference(ctx, "session.token", "first"))
	require.NoError(t, s.SetPreference(ctx, "session.token", "second"))

	value, found, err := s.GetPreference(ctx, "session.token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "second", value)
}

func TestStorageSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s := NewSQLiteStorage(path, testLogger())
	require.NoError(t, s.Put(ctx, story.Story{ID: "keep", Description: "Переживает перезапуск"}))
	require.NoError(t, s.SetPreference(ctx, "k", "v"))
	require.NoError(t, s.Close())

	// Повторное открытие: миграции уже применены, данные на месте
	reopened := NewSQLiteStorage(path, testLogger())
	defer reopened.Close()

	st, err := reopened.GetByID(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, "Переживает перезапуск", st.Description)

	value, found, err := reopened.GetPreference(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", value)
}

func TestCorruptTimestampsSurfaceStorageFailure(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, story.Story{ID: "c-1", Description: "Запись"}))
	entry := story.QueueEntry{
		EntryType: story.EntryCreateStory,
		StoryID:   "c-1",
		Payload:   story.NewStory{Description: "Запись"},
		Token:     "tok-1",
	}
	require.NoError(t, s.Enqueue(ctx, &entry))

	// Портим временные метки напрямую в БД
	_, err := s.db.ExecContext(ctx, `UPDATE stories SET created_at = 'мусор' WHERE id = 'c-1'`)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `UPDATE offline_queue SET enqueued_at = 'мусор'`)
	require.NoError(t, err)

	_, err = s.GetByID(ctx, "c-1")
	require.ErrorIs(t, err, story.ErrStorageFailure)

	_, err = s.ListStories(ctx)
	require.ErrorIs(t, err, story.ErrStorageFailure)

	_, err = s.ListQueue(ctx)
	require.ErrorIs(t, err, story.ErrStorageFailure)
}

func TestStorageFailureMapping(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newStorageWithDB(db, testLogger())
	ctx := context.Background()

	t.Run("put begin error", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(fmt.Errorf("database is locked"))

		err := s.Put(ctx, story.Story{ID: "1", Description: "x"})
		assert.ErrorIs(t, err, story.ErrStorageFailure)
	})

	t.Run("list query error", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnError(fmt.Errorf("disk I/O error"))

		_, err := s.ListStories(ctx)
		assert.ErrorIs(t, err, story.ErrStorageFailure)
	})

	t.Run("get query error", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnError(fmt.Errorf("disk I/O error"))

		_, err := s.GetByID(ctx, "1")
		assert.ErrorIs(t, err, story.ErrStorageFailure)
		assert.NotErrorIs(t, err, story.ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
