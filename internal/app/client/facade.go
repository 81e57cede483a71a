package client

import (
	"context"
	"sync"

	"golang.org/x/exp/slog"

	"citycare/internal/domain/story"
)

// TokenSource выдает текущий токен авторизации
type TokenSource func(ctx context.Context) (string, error)

// Facade - единая точка входа для потребителей: чтение, создание и
// удаление записей плюс поток событий. Потребитель не знает, пришли
// данные из сети или из кэша, кроме явных признаков в результате.
type Facade struct {
	sync    *SyncService
	monitor *NetworkMonitor
	token   TokenSource
	log     *slog.Logger

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewFacade создает фасад
func NewFacade(syncSvc *SyncService, monitor *NetworkMonitor, token TokenSource, log *slog.Logger) *Facade {
	return &Facade{
		sync:    syncSvc,
		monitor: monitor,
		token:   token,
		log:     log,
		subs:    make(map[chan Event]struct{}),
	}
}

// ListStories возвращает объединенный список записей
func (f *Facade) ListStories(ctx context.Context) (FetchResult, error) {
	token, err := f.token(ctx)
	if err != nil {
		return FetchResult{}, err
	}
	return f.sync.FetchAll(ctx, token)
}

// GetStory возвращает одну запись по id
func (f *Facade) GetStory(ctx context.Context, id any) (StoryResult, error) {
	token, err := f.token(ctx)
	if err != nil {
		return StoryResult{}, err
	}
	return f.sync.FetchByID(ctx, id, token)
}

// SubmitStory создает запись; офлайн деградирует в локальное сохранение
func (f *Facade) SubmitStory(ctx context.Context, n story.NewStory) (CreateResult, error) {
	token, err := f.token(ctx)
	if err != nil {
		return CreateResult{}, err
	}

	result, err := f.sync.Create(ctx, n, token)
	if err != nil {
		return CreateResult{}, err
	}

	f.emit(EventRecordsChanged)
	return result, nil
}

// RemoveStory удаляет запись из локального кэша
func (f *Facade) RemoveStory(ctx context.Context, id any) error {
	if err := f.sync.RemoveLocal(ctx, id); err != nil {
		return err
	}
	f.emit(EventRecordsChanged)
	return nil
}

// Replay запускает воспроизведение исходящей очереди вручную
func (f *Facade) Replay(ctx context.Context) (ReplayResult, error) {
	token, err := f.token(ctx)
	if err != nil {
		return ReplayResult{}, err
	}

	result, err := f.sync.ReplayQueue(ctx, token)
	if err != nil {
		return ReplayResult{}, err
	}

	if result.Replayed > 0 {
		f.emit(EventRecordsChanged)
	}
	return result, nil
}

// IsOnline возвращает текущее состояние сети
func (f *Facade) IsOnline() bool {
	return f.monitor.IsOnline()
}

// Subscribe подписывает на события фасада: переходы сети и изменения
// набора записей. Канал буферизован, медленный потребитель теряет
// события, а не блокирует фасад.
func (f *Facade) Subscribe() chan Event {
	ch := make(chan Event, 8)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

// Unsubscribe отписывает и закрывает канал
func (f *Facade) Unsubscribe(ch chan Event) {
	f.mu.Lock()
	if _, ok := f.subs[ch]; ok {
		delete(f.subs, ch)
		close(ch)
	}
	f.mu.Unlock()
}

func (f *Facade) emit(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- ev:
		default:
			// Переполненный подписчик пропускает событие
		}
	}
}

// Run следит за сетью и при восстановлении связи воспроизводит очередь.
// Блокируется до отмены контекста.
func (f *Facade) Run(ctx context.Context) {
	events := f.monitor.Subscribe()
	defer f.monitor.Unsubscribe(events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			f.emit(ev)

			if ev == EventWentOnline {
				f.log.Info("Связь восстановлена, воспроизводим очередь")
				if _, err := f.Replay(ctx); err != nil {
					f.log.Error("Воспроизведение очереди не удалось", "error", err)
				}
			}
		}
	}
}
