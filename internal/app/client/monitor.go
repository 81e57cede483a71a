package client

import (
	"context"
	"sync"
	"time"

	"golang.org/x/exp/slog"
)

// Event - событие, доставляемое потребителям ядра
type Event string

const (
	// EventWentOnline - связь с удаленным источником восстановлена
	EventWentOnline Event = "went-online"
	// EventWentOffline - связь с удаленным источником потеряна
	EventWentOffline Event = "went-offline"
	// EventRecordsChanged - набор записей изменился после мутации
	EventRecordsChanged Event = "records-changed"
)

// Prober проверяет доступность удаленного источника
type Prober func(ctx context.Context) error

// NetworkMonitor оборачивает сигнал связности платформы в два событийных
// фронта: wentOnline и wentOffline. Повторные срабатывания одного и того же
// состояния не порождают повторных событий.
type NetworkMonitor struct {
	probe    Prober
	interval time.Duration
	log      *slog.Logger

	mu     sync.RWMutex
	online bool
	subs   map[chan Event]struct{}
}

// NewNetworkMonitor создает монитор. До первой проверки состояние
// считается online: первый же неудачный зонд переведет его в offline.
func NewNetworkMonitor(probe Prober, interval time.Duration, log *slog.Logger) *NetworkMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &NetworkMonitor{
		probe:    probe,
		interval: interval,
		log:      log,
		online:   true,
		subs:     make(map[chan Event]struct{}),
	}
}

// IsOnline возвращает текущее состояние для синхронного опроса.
func (m *NetworkMonitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline фиксирует переход состояния. Вызов с неизменившимся состоянием
// ничего не излучает: события только на фронтах.
func (m *NetworkMonitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online

	event := EventWentOffline
	if online {
		event = EventWentOnline
	}

	subs := make([]chan Event, 0, len(m.subs))
	for ch := range m.subs {
		subs = append(subs, ch)
	}
	m.mu.Unlock()

	m.log.Info("Состояние сети изменилось", "online", online)

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			// Медленный подписчик не должен блокировать монитор
		}
	}
}

// Subscribe возвращает канал событий монитора.
func (m *NetworkMonitor) Subscribe() chan Event {
	ch := make(chan Event, 8)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()
	return ch
}

// Unsubscribe снимает подписку и закрывает канал.
func (m *NetworkMonitor) Unsubscribe(ch chan Event) {
	m.mu.Lock()
	if _, ok := m.subs[ch]; ok {
		delete(m.subs, ch)
		close(ch)
	}
	m.mu.Unlock()
}

// Run периодически зондирует удаленный источник до отмены контекста.
func (m *NetworkMonitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Мониторинг сети остановлен")
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check выполняет один зонд и фиксирует результат.
func (m *NetworkMonitor) Check(ctx context.Context) bool {
	err := m.probe(ctx)
	if err != nil {
		m.log.Debug("Зонд связности не прошел", "error", err)
	}
	m.SetOnline(err == nil)
	return err == nil
}
