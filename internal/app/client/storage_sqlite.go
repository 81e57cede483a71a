package client

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"

	"citycare/internal/domain/story"
	"citycare/internal/infrastructure/migration"
)

// SQLiteStorage - постоянное хранилище с тремя разделами: stories,
// offline_queue и user_preferences. Переживает перезапуск процесса.
type SQLiteStorage struct {
	dsn    string
	log    *slog.Logger
	engine migration.MigrationEngine

	once    sync.Once
	initErr error
	db      *sql.DB
}

// NewSQLiteStorage создает хранилище поверх файла SQLite. Соединение и
// миграции откладываются до первой операции: любая операция до явной
// инициализации сначала инициализирует хранилище сама.
func NewSQLiteStorage(path string, log *slog.Logger) *SQLiteStorage {
	return &SQLiteStorage{
		dsn:    path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000",
		log:    log,
		engine: migration.DefaultEngine,
	}
}

// newStorageWithDB - для тестов: уже открытое соединение, без миграций
func newStorageWithDB(db *sql.DB, log *slog.Logger) *SQLiteStorage {
	s := &SQLiteStorage{db: db, log: log}
	s.once.Do(func() {})
	return s
}

func (s *SQLiteStorage) ensureInit(ctx context.Context) error {
	s.once.Do(func() {
		if s.db == nil {
			db, err := sql.Open("sqlite3", s.dsn)
			if err != nil {
				s.initErr = story.StorageError("открытие базы данных", err)
				return
			}
			s.db = db
		}

		if s.engine != nil {
			if err := migration.NewMigration(s.dsn, s.engine).Up(); err != nil {
				s.initErr = story.StorageError("инициализация схемы", err)
				return
			}
		}

		s.log.Debug("Хранилище инициализировано", "dsn", s.dsn)
	})
	return s.initErr
}

// Put вставляет запись, если id отсутствует, иначе сливает поля в
// существующую: новые поля перекрывают старые, отсутствующие в новой
// записи сохраняются. Атомарно для каждого вызова.
func (s *SQLiteStorage) Put(ctx context.Context, st story.Story) error {
	if err := s.ensureInit(ctx); err != nil {
		return err
	}

	st.ID = story.CanonicalID(st.ID)
	if st.ID == "" {
		return &story.ValidationError{Field: "id", Message: "id is required"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return story.StorageError("начало транзакции", err)
	}
	defer tx.Rollback()

	existing, err := scanStory(tx.QueryRowContext(ctx, `
		SELECT id, name, description, photo_url, lat, lon,
		       created_at, origin, cached_at, has_full_details
		FROM stories WHERE id = ?
	`, st.ID))

	switch {
	case err == sql.ErrNoRows:
		st.CachedAt = time.Now().UTC()
		if st.Origin == "" {
			st.Origin = story.OriginRemoteCached
		}
		if err := insertStory(ctx, tx, st); err != nil {
			return story.StorageError("вставка записи", err)
		}
	case err != nil:
		return story.StorageError("чтение записи", err)
	default:
		merged := mergeStories(existing, st)
		merged.CachedAt = time.Now().UTC()
		if err := updateStory(ctx, tx, merged); err != nil {
			return story.StorageError("обновление записи", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return story.StorageError("фиксация транзакции", err)
	}
	return nil
}

// mergeStories реализует поверхностное слияние: пустые поля новой записи
// сохраняют сохраненные значения, origin никогда не откатывается из
// local-synced, а has_full_details не понижается обратно в false.
func mergeStories(old, new story.Story) story.Story {
	merged := old

	if new.Name != "" {
		merged.Name = new.Name
	}
	if new.Description != "" {
		merged.Description = new.Description
	}
	if new.PhotoURL != "" {
		merged.PhotoURL = new.PhotoURL
	}
	if new.HasLocation() {
		merged.Lat = new.Lat
		merged.Lon = new.Lon
	}
	if !new.CreatedAt.IsZero() {
		merged.CreatedAt = new.CreatedAt
	}
	if new.Origin != "" {
		// Переход local-pending -> local-synced происходит ровно один раз
		// и никогда не разворачивается.
		if !(old.Origin == story.OriginLocalSynced && new.Origin == story.OriginLocalPending) {
			merged.Origin = new.Origin
		}
	}
	if new.HasFullDetails {
		merged.HasFullDetails = true
	}

	return merged
}

func insertStory(ctx context.Context, tx *sql.Tx, st story.Story) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stories (id, name, description, photo_url, lat, lon,
		                     created_at, origin, cached_at, has_full_details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, st.ID, st.Name, st.Description, st.PhotoURL, nullFloat(st.Lat), nullFloat(st.Lon),
		st.CreatedAt.UTC().Format(time.RFC3339Nano), string(st.Origin),
		st.CachedAt.Format(time.RFC3339Nano), st.HasFullDetails)
	return err
}

func updateStory(ctx context.Context, tx *sql.Tx, st story.Story) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE stories
		SET name = ?, description = ?, photo_url = ?, lat = ?, lon = ?,
		    created_at = ?, origin = ?, cached_at = ?, has_full_details = ?
		WHERE id = ?
	`, st.Name, st.Description, st.PhotoURL, nullFloat(st.Lat), nullFloat(st.Lon),
		st.CreatedAt.UTC().Format(time.RFC3339Nano), string(st.Origin),
		st.CachedAt.Format(time.RFC3339Nano), st.HasFullDetails, st.ID)
	return err
}

// ListStories возвращает все записи без определенного порядка; сортировка
// по created_at - забота вызывающего.
func (s *SQLiteStorage) ListStories(ctx context.Context) ([]story.Story, error) {
	if err := s.ensureInit(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, photo_url, lat, lon,
		       created_at, origin, cached_at, has_full_details
		FROM stories
	`)
	if err != nil {
		return nil, story.StorageError("выборка записей", err)
	}
	defer rows.Close()

	var stories []story.Story
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, story.StorageError("сканирование записи", err)
		}
		stories = append(stories, st)
	}
	if err := rows.Err(); err != nil {
		return nil, story.StorageError("обход записей", err)
	}

	return stories, nil
}

// GetByID принимает id строкой или числом: разные пути кода поставляют
// разные представления, сравнение идет по канонической строковой форме.
func (s *SQLiteStorage) GetByID(ctx context.Context, id any) (story.Story, error) {
	if err := s.ensureInit(ctx); err != nil {
		return story.Story{}, err
	}

	canonical := story.CanonicalID(id)

	st, err := scanStory(s.db.QueryRowContext(ctx, `
		SELECT id, name, description, photo_url, lat, lon,
		       created_at, origin, cached_at, has_full_details
		FROM stories WHERE id = ?
	`, canonical))
	if err == sql.ErrNoRows {
		return story.Story{}, fmt.Errorf("id %q: %w", canonical, story.ErrNotFound)
	}
	if err != nil {
		return story.Story{}, story.StorageError("чтение записи", err)
	}

	return st, nil
}

// Delete удаляет запись; удаление отсутствующего id не является ошибкой.
func (s *SQLiteStorage) Delete(ctx context.Context, id any) error {
	if err := s.ensureInit(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM stories WHERE id = ?", story.CanonicalID(id)); err != nil {
		return story.StorageError("удаление записи", err)
	}
	return nil
}

// DeleteRemoteCachedNotIn удаляет устаревшие remote-cached записи, которых
// нет в свежем наборе. Записи local-pending и local-synced не затрагиваются.
func (s *SQLiteStorage) DeleteRemoteCachedNotIn(ctx context.Context, ids []string) error {
	if err := s.ensureInit(ctx); err != nil {
		return err
	}

	query := "DELETE FROM stories WHERE origin = ?"
	args := []any{string(story.OriginRemoteCached)}

	if len(ids) > 0 {
		query += " AND id NOT IN (?" + strings.Repeat(", ?", len(ids)-1) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return story.StorageError("очистка устаревших записей", err)
	}
	return nil
}

// CountStories возвращает число записей в хранилище.
func (s *SQLiteStorage) CountStories(ctx context.Context) (int, error) {
	if err := s.ensureInit(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stories").Scan(&count); err != nil {
		return 0, story.StorageError("подсчет записей", err)
	}
	return count, nil
}

// Enqueue добавляет отложенную мутацию в очередь и проставляет
// присвоенный id в переданную запись.
func (s *SQLiteStorage) Enqueue(ctx context.Context, entry *story.QueueEntry) error {
	if err := s.ensureInit(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("сериализация полезной нагрузки: %w", err)
	}

	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO offline_queue (entry_type, story_id, payload, token, enqueued_at)
		VALUES (?, ?, ?, ?, ?)
	`, string(entry.EntryType), entry.StoryID, string(payload), entry.Token,
		entry.EnqueuedAt.Format(time.RFC3339Nano))
	if err != nil {
		return story.StorageError("добавление в очередь", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// ListQueue возвращает очередь в порядке добавления.
func (s *SQLiteStorage) ListQueue(ctx context.Context) ([]story.QueueEntry, error) {
	if err := s.ensureInit(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_type, story_id, payload, token, enqueued_at
		FROM offline_queue ORDER BY id ASC
	`)
	if err != nil {
		return nil, story.StorageError("выборка очереди", err)
	}
	defer rows.Close()

	var entries []story.QueueEntry
	for rows.Next() {
		var (
			entry      story.QueueEntry
			entryType  string
			payload    string
			enqueuedAt string
		)
		if err := rows.Scan(&entry.ID, &entryType, &entry.StoryID, &payload, &entry.Token, &enqueuedAt); err != nil {
			return nil, story.StorageError("сканирование очереди", err)
		}
		if err := json.Unmarshal([]byte(payload), &entry.Payload); err != nil {
			return nil, fmt.Errorf("разбор полезной нагрузки: %w", err)
		}
		entry.EntryType = story.QueueEntryType(entryType)
		if entry.EnqueuedAt, err = time.Parse(time.RFC3339Nano, enqueuedAt); err != nil {
			return nil, story.StorageError("разбор enqueued_at", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, story.StorageError("обход очереди", err)
	}

	return entries, nil
}

// DeleteQueueEntry удаляет одну запись очереди после подтвержденного
// повторного воспроизведения.
func (s *SQLiteStorage) DeleteQueueEntry(ctx context.Context, id int64) error {
	if err := s.ensureInit(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM offline_queue WHERE id = ?", id); err != nil {
		return story.StorageError("удаление из очереди", err)
	}
	return nil
}

// ClearQueue удаляет все записи очереди. Вызывается только после того, как
// каждая перечисленная запись надежно подтверждена как воспроизведенная.
func (s *SQLiteStorage) ClearQueue(ctx context.Context) error {
	if err := s.ensureInit(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM offline_queue"); err != nil {
		return story.StorageError("очистка очереди", err)
	}
	return nil
}

// SetPreference сохраняет произвольную пару ключ/значение без TTL.
func (s *SQLiteStorage) SetPreference(ctx context.Context, key, value string) error {
	if err := s.ensureInit(ctx); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return story.StorageError("сохранение настройки", err)
	}
	return nil
}

// GetPreference возвращает значение настройки и признак его наличия.
func (s *SQLiteStorage) GetPreference(ctx context.Context, key string) (string, bool, error) {
	if err := s.ensureInit(ctx); err != nil {
		return "", false, err
	}

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM user_preferences WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, story.StorageError("чтение настройки", err)
	}
	return value, true, nil
}

func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStory(row rowScanner) (story.Story, error) {
	var (
		st        story.Story
		lat, lon  sql.NullFloat64
		origin    string
		createdAt string
		cachedAt  string
	)

	if err := row.Scan(&st.ID, &st.Name, &st.Description, &st.PhotoURL, &lat, &lon,
		&createdAt, &origin, &cachedAt, &st.HasFullDetails); err != nil {
		return story.Story{}, err
	}

	if lat.Valid && lon.Valid {
		st.Lat = &lat.Float64
		st.Lon = &lon.Float64
	}
	st.Origin = story.Origin(origin)

	// Парсим временные метки: битая строка в БД — это ошибка хранилища,
	// а не нулевое время
	var err error
	if st.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return story.Story{}, fmt.Errorf("разбор created_at: %w", err)
	}
	if st.CachedAt, err = time.Parse(time.RFC3339Nano, cachedAt); err != nil {
		return story.Story{}, fmt.Errorf("разбор cached_at: %w", err)
	}

	return st, nil
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
