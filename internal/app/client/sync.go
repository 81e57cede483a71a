package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"citycare/internal/domain/story"
)

// Notifier - настраиваемый побочный эффект успешного создания записи
// (локальное уведомление)
type Notifier interface {
	Notify(title, body string)
}

// NopNotifier ничего не делает
type NopNotifier struct{}

func (NopNotifier) Notify(string, string) {}

// SyncService - единственная точка политики: что видит пользователь и что
// происходит с его записями. Оркестрирует fetch-and-cache, откат на кэш и
// воспроизведение исходящей очереди.
type SyncService struct {
	storage   Storage
	api       StoryAPI
	monitor   *NetworkMonitor
	validator *story.Validator
	notifier  Notifier
	log       *slog.Logger
	pageSize  int

	mu         sync.Mutex
	isSyncing  bool
	lastReplay time.Time
	stats      SyncStats
}

// SyncStats - статистика синхронизации
type SyncStats struct {
	TotalReplays   int       `json:"total_replays"`
	TotalReplayed  int       `json:"total_replayed"`
	TotalPartial   int       `json:"total_partial"`
	LastSuccessful time.Time `json:"last_successful"`
	LastFailed     time.Time `json:"last_failed"`
}

// NewSyncService создает синхронизатор
func NewSyncService(storage Storage, api StoryAPI, monitor *NetworkMonitor,
	validator *story.Validator, notifier Notifier, pageSize int, log *slog.Logger) *SyncService {

	if notifier == nil {
		notifier = NopNotifier{}
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	return &SyncService{
		storage:   storage,
		api:       api,
		monitor:   monitor,
		validator: validator,
		notifier:  notifier,
		pageSize:  pageSize,
		log:       log,
	}
}

// FetchAll возвращает объединенный список записей. Сбой удаленного
// источника никогда не поднимается к вызывающему: всегда разрешается в
// какой-то список, пусть и пустой, с признаком "данных нет".
func (s *SyncService) FetchAll(ctx context.Context, authToken string) (FetchResult, error) {
	if s.monitor.IsOnline() {
		remote, err := s.api.ListStories(ctx, authToken, 1, s.pageSize)
		if err == nil {
			return s.refreshCache(ctx, remote)
		}
		// Откатываемся на кэш
		s.log.Warn("Удаленный источник недоступен, читаем кэш", "error", err)
	}

	stored, err := s.storage.ListStories(ctx)
	if err != nil {
		return FetchResult{}, err
	}

	story.SortByCreatedDesc(stored)
	return FetchResult{
		Stories:   stored,
		FromCache: true,
		NoData:    len(stored) == 0,
	}, nil
}

// refreshCache замещает раздел remote-cached свежим набором и возвращает
// объединение с локальными записями. При совпадении id выигрывает свежая
// удаленная копия.
func (s *SyncService) refreshCache(ctx context.Context, remote []story.Story) (FetchResult, error) {
	ids := make([]string, 0, len(remote))
	for _, st := range remote {
		ids = append(ids, story.CanonicalID(st.ID))
	}

	// Сначала выбрасываем устаревшие remote-cached записи, которых нет в
	// свежем наборе
	if err := s.storage.DeleteRemoteCachedNotIn(ctx, ids); err != nil {
		return FetchResult{}, err
	}

	for _, st := range remote {
		st.Origin = story.OriginRemoteCached
		if err := s.storage.Put(ctx, st); err != nil {
			return FetchResult{}, err
		}
	}

	merged, err := s.storage.ListStories(ctx)
	if err != nil {
		return FetchResult{}, err
	}

	story.SortByCreatedDesc(merged)
	s.log.Debug("Кэш обновлен", "remote", len(remote), "total", len(merged))

	return FetchResult{
		Stories: merged,
		NoData:  len(merged) == 0,
	}, nil
}

// FetchByID возвращает запись по id: сначала удаленная деталь (с
// дозаполнением полного набора полей в кэше), при сбое или офлайне - кэш.
// ErrNotFound только когда записи нет ни в одном из источников.
func (s *SyncService) FetchByID(ctx context.Context, id any, authToken string) (StoryResult, error) {
	canonical := story.CanonicalID(id)

	if s.monitor.IsOnline() {
		remote, err := s.api.GetStory(ctx, authToken, canonical)
		if err == nil {
			// Детальная точка возвращает полный набор полей
			remote.HasFullDetails = true
			remote.Origin = ""
			if err := s.storage.Put(ctx, remote); err != nil {
				return StoryResult{}, err
			}

			cached, err := s.storage.GetByID(ctx, canonical)
			if err != nil {
				return StoryResult{}, err
			}
			return StoryResult{Story: cached}, nil
		}
		s.log.Warn("Деталь недоступна удаленно, читаем кэш", "id", canonical, "error", err)
	}

	cached, err := s.storage.GetByID(ctx, canonical)
	if err != nil {
		return StoryResult{}, err
	}
	return StoryResult{Story: cached, FromCache: true}, nil
}

// Create создает запись. Онлайн-сбой не является ошибкой для вызывающего:
// запись сохраняется локально до следующей синхронизации, и это
// сознательная деградация, а не отказ.
func (s *SyncService) Create(ctx context.Context, n story.NewStory, authToken string) (CreateResult, error) {
	// Валидация до любого обращения к хранилищу или сети
	if err := s.validator.ValidateNew(n); err != nil {
		return CreateResult{}, err
	}

	if s.monitor.IsOnline() {
		confirmed, err := s.api.CreateStory(ctx, authToken, n)
		if err == nil {
			return s.storeConfirmed(ctx, confirmed, n)
		}
		s.log.Warn("Создание на удаленном источнике не удалось, сохраняем локально", "error", err)
	}

	return s.saveOffline(ctx, n)
}

// storeConfirmed сохраняет подтвержденную удаленным источником запись
func (s *SyncService) storeConfirmed(ctx context.Context, confirmed story.Story, n story.NewStory) (CreateResult, error) {
	confirmed.Origin = story.OriginLocalSynced
	confirmed.HasFullDetails = true
	if confirmed.Description == "" {
		confirmed.Description = n.Description
	}
	if confirmed.PhotoURL == "" {
		confirmed.PhotoURL = story.EncodePhoto(n.PhotoData, n.PhotoType)
	}
	if confirmed.CreatedAt.IsZero() {
		confirmed.CreatedAt = time.Now().UTC()
	}
	if !confirmed.HasLocation() && n.Lat != nil && n.Lon != nil {
		confirmed.Lat = n.Lat
		confirmed.Lon = n.Lon
	}

	if err := s.storage.Put(ctx, confirmed); err != nil {
		return CreateResult{}, err
	}

	s.notifier.Notify("Запись создана", truncate(confirmed.Description, 50))

	return CreateResult{Story: confirmed}, nil
}

// saveOffline сохраняет запись локально и ставит ее в исходящую очередь.
// Фото кодируется в безопасную для хранилища форму: файловые дескрипторы
// не переживают переоткрытие хранилища.
func (s *SyncService) saveOffline(ctx context.Context, n story.NewStory) (CreateResult, error) {
	local := story.Story{
		ID:             "local-" + uuid.NewString(),
		Description:    n.Description,
		PhotoURL:       story.EncodePhoto(n.PhotoData, n.PhotoType),
		Lat:            n.Lat,
		Lon:            n.Lon,
		CreatedAt:      time.Now().UTC(),
		Origin:         story.OriginLocalPending,
		HasFullDetails: true,
	}

	if err := s.storage.Put(ctx, local); err != nil {
		return CreateResult{}, err
	}

	entry := story.QueueEntry{
		EntryType: story.EntryCreateStory,
		StoryID:   local.ID,
		Payload:   n,
		// Клиентский токен идемпотентности; дедупликация на стороне
		// источника пока не гарантируется
		Token: uuid.NewString(),
	}
	if err := s.storage.Enqueue(ctx, &entry); err != nil {
		return CreateResult{}, err
	}

	s.log.Info("Запись сохранена офлайн", "id", local.ID, "queue_entry", entry.ID)

	return CreateResult{Story: local, Pending: true}, nil
}

// ReplayQueue воспроизводит исходящую очередь в порядке добавления.
// Первый же сбой останавливает проход: порядок сохраняется, застрявшая
// запись не обходится. Доставка at-least-once: сбой между удаленным
// успехом и удалением из очереди приведет к повторной отправке.
func (s *SyncService) ReplayQueue(ctx context.Context, authToken string) (ReplayResult, error) {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		return ReplayResult{}, fmt.Errorf("воспроизведение очереди уже выполняется")
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	start := time.Now()

	entries, err := s.storage.ListQueue(ctx)
	if err != nil {
		return ReplayResult{}, err
	}

	result := ReplayResult{Remaining: len(entries)}

	for _, entry := range entries {
		if entry.EntryType != story.EntryCreateStory {
			s.log.Error("Неизвестный тип записи очереди", "type", entry.EntryType, "entry", entry.ID)
			result.Partial = true
			break
		}

		if err := s.replayCreate(ctx, entry, authToken); err != nil {
			s.log.Warn("Воспроизведение остановлено", "entry", entry.ID, "error", err)
			result.Partial = true
			break
		}

		result.Replayed++
		result.Remaining--
	}

	result.Duration = time.Since(start)
	s.updateStats(result)

	if result.Replayed > 0 || result.Partial {
		s.log.Info("Проход очереди завершен",
			"replayed", result.Replayed,
			"remaining", result.Remaining,
			"partial", result.Partial,
			"duration", result.Duration,
		)
	}

	return result, nil
}

// replayCreate повторяет одну отложенную мутацию. Запись переходит
// local-pending -> local-synced ровно один раз, id заменяется на
// присвоенный источником.
func (s *SyncService) replayCreate(ctx context.Context, entry story.QueueEntry, authToken string) error {
	confirmed, err := s.api.CreateStory(ctx, authToken, entry.Payload)
	if err != nil {
		return err
	}

	confirmed.Origin = story.OriginLocalSynced
	confirmed.HasFullDetails = true
	if confirmed.Description == "" {
		confirmed.Description = entry.Payload.Description
	}
	if confirmed.PhotoURL == "" {
		confirmed.PhotoURL = story.EncodePhoto(entry.Payload.PhotoData, entry.Payload.PhotoType)
	}
	if confirmed.CreatedAt.IsZero() {
		confirmed.CreatedAt = entry.EnqueuedAt
	}
	if !confirmed.HasLocation() && entry.Payload.Lat != nil && entry.Payload.Lon != nil {
		confirmed.Lat = entry.Payload.Lat
		confirmed.Lon = entry.Payload.Lon
	}

	// Перенос id: запись с локальным id-заглушкой заменяется записью с
	// id, присвоенным источником. Держатели старого id обязаны перечитать.
	if story.CanonicalID(confirmed.ID) != entry.StoryID {
		if err := s.storage.Delete(ctx, entry.StoryID); err != nil {
			return err
		}
	}
	if err := s.storage.Put(ctx, confirmed); err != nil {
		return err
	}

	if err := s.storage.DeleteQueueEntry(ctx, entry.ID); err != nil {
		return err
	}

	s.log.Debug("Запись воспроизведена", "local_id", entry.StoryID, "remote_id", confirmed.ID)
	return nil
}

func (s *SyncService) updateStats(result ReplayResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalReplays++
	s.stats.TotalReplayed += result.Replayed
	if result.Partial {
		s.stats.TotalPartial++
		s.stats.LastFailed = time.Now()
	} else {
		s.stats.LastSuccessful = time.Now()
	}
	s.lastReplay = time.Now()
}

// Stats возвращает копию статистики синхронизации
func (s *SyncService) Stats() SyncStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// IsSyncing проверяет, выполняется ли воспроизведение очереди
func (s *SyncService) IsSyncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSyncing
}

// RemoveLocal удаляет запись из кэша; повторное удаление не ошибка.
// Если запись еще стоит в очереди, ее отложенная мутация тоже снимается,
// чтобы очередь не воспроизводила удаленную запись.
func (s *SyncService) RemoveLocal(ctx context.Context, id any) error {
	canonical := story.CanonicalID(id)

	entries, err := s.storage.ListQueue(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.StoryID == canonical {
			if err := s.storage.DeleteQueueEntry(ctx, entry.ID); err != nil {
				return err
			}
		}
	}

	return s.storage.Delete(ctx, canonical)
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
