package client

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	gosync "sync"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"citycare/internal/app/client/config"
	"citycare/internal/domain/story"
	"citycare/internal/domain/user"
)

// Ключи раздела пользовательских настроек
const (
	prefToken    = "session.token"
	prefUserID   = "session.user_id"
	prefUserName = "session.name"
)

// ErrNotAuthenticated возвращается, когда сохраненной сессии нет
var ErrNotAuthenticated = fmt.Errorf("требуется вход: citycare auth login")

type App struct {
	config      *config.Config
	log         *slog.Logger
	httpClient  StoryAPI
	storage     Storage
	monitor     *NetworkMonitor
	syncService *SyncService
	facade      *Facade
	wg          gosync.WaitGroup
	cancel      context.CancelFunc
	mu          gosync.RWMutex
	session     *user.Session
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	// Инициализируем HTTP клиент
	httpCl := NewHTTPClient(cfg, log)

	// Инициализируем локальное хранилище (используем SQLite).
	// Само хранилище открывается лениво при первом обращении; здесь
	// проверяем только, что каталог данных вообще доступен.
	var storage Storage
	if err := os.MkdirAll(cfg.ConfigDir, 0700); err != nil {
		log.Warn("Каталог данных недоступен, используем память", "error", err)
		storage = NewMemoryStorage()
	} else {
		storage = NewSQLiteStorage(cfg.DataPath, log)
	}

	monitor := NewNetworkMonitor(httpCl.Ping, time.Duration(cfg.ProbeInterval)*time.Second, log)

	app := &App{
		config:     cfg,
		log:        log,
		httpClient: httpCl,
		storage:    storage,
		monitor:    monitor,
	}

	validator := story.NewValidator(cfg.MaxPhotoBytes)
	app.syncService = NewSyncService(storage, httpCl, monitor, validator, NopNotifier{}, cfg.PageSize, log)
	app.facade = NewFacade(app.syncService, monitor, app.Token, log)

	// Загружаем сессию если она есть
	if session, err := app.loadSession(context.Background()); err == nil {
		app.session = session
		log.Debug("Сессия загружена из хранилища", "user", session.Name)
	}

	return app, nil
}

// SetNotifier подменяет получателя локальных уведомлений
func (a *App) SetNotifier(n Notifier) {
	a.syncService.notifier = n
}

// Facade возвращает единую точку доступа к записям
func (a *App) Facade() *Facade {
	return a.facade
}

// Monitor возвращает монитор состояния сети
func (a *App) Monitor() *NetworkMonitor {
	return a.monitor
}

// Storage возвращает локальное хранилище
func (a *App) Storage() Storage {
	return a.storage
}

// Sync возвращает сервис синхронизации
func (a *App) Sync() *SyncService {
	return a.syncService
}

func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go a.handleSignals()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.monitor.Run(ctx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.facade.Run(ctx)
	}()

	a.log.Info("Клиент запущен",
		"api", a.config.BaseURL,
		"env", a.config.Env,
	)

	a.wg.Wait()
	return nil
}

func (a *App) handleSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-sigChan
	a.log.Info("Получен сигнал завершения", "signal", sig.String())

	if a.cancel != nil {
		a.cancel()
	}
}

func (a *App) Shutdown() {
	a.log.Info("Завершение работы клиента...")

	if a.cancel != nil {
		a.cancel()
	}

	a.wg.Wait()

	if err := a.storage.Close(); err != nil {
		a.log.Warn("Ошибка закрытия хранилища", "error", err)
	}

	a.log.Info("Клиент завершил работу")
}

// CheckConnection проверяет доступность удаленного источника
func (a *App) CheckConnection() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return a.httpClient.Ping(ctx)
}

// IsAuthenticated проверяет, есть ли сохраненная сессия
func (a *App) IsAuthenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session != nil && a.session.Token != ""
}

// Session возвращает текущую сессию
func (a *App) Session() *user.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// Token возвращает сохраненный токен авторизации
func (a *App) Token(ctx context.Context) (string, error) {
	a.mu.RLock()
	if a.session != nil && a.session.Token != "" {
		token := a.session.Token
		a.mu.RUnlock()
		return token, nil
	}
	a.mu.RUnlock()

	session, err := a.loadSession(ctx)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	a.session = session
	a.mu.Unlock()

	return session.Token, nil
}

func (a *App) loadSession(ctx context.Context) (*user.Session, error) {
	token, found, err := a.storage.GetPreference(ctx, prefToken)
	if err != nil {
		return nil, err
	}
	if !found || token == "" {
		return nil, ErrNotAuthenticated
	}

	userID, _, err := a.storage.GetPreference(ctx, prefUserID)
	if err != nil {
		return nil, err
	}
	name, _, err := a.storage.GetPreference(ctx, prefUserName)
	if err != nil {
		return nil, err
	}

	return &user.Session{UserID: userID, Name: name, Token: token}, nil
}

func (a *App) saveSession(ctx context.Context, session user.Session) error {
	if err := a.storage.SetPreference(ctx, prefToken, session.Token); err != nil {
		return err
	}
	if err := a.storage.SetPreference(ctx, prefUserID, session.UserID); err != nil {
		return err
	}
	return a.storage.SetPreference(ctx, prefUserName, session.Name)
}

// Register регистрирует нового пользователя
func (a *App) Register(ctx context.Context, req user.RegisterRequest) error {
	validator := user.NewCredentialsValidator()
	if err := validator.ValidateRegister(req.Name, req.Email, req.Password); err != nil {
		return err
	}

	if err := a.httpClient.Register(ctx, req); err != nil {
		return err
	}

	a.log.Info("Пользователь успешно зарегистрирован", "email", req.Email)
	return nil
}

// Login выполняет вход и сохраняет сессию в разделе настроек
func (a *App) Login(ctx context.Context, req user.LoginRequest) (*user.Session, error) {
	validator := user.NewCredentialsValidator()
	if err := validator.ValidateLogin(req.Email, req.Password); err != nil {
		return nil, err
	}

	session, err := a.httpClient.Login(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := a.saveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("ошибка сохранения сессии: %w", err)
	}

	a.mu.Lock()
	a.session = &session
	a.mu.Unlock()

	a.log.Info("Вход выполнен успешно", "user", session.Name)
	return &session, nil
}

// Logout удаляет сохраненную сессию
func (a *App) Logout(ctx context.Context) error {
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()

	for _, key := range []string{prefToken, prefUserID, prefUserName} {
		if err := a.storage.SetPreference(ctx, key, ""); err != nil {
			return fmt.Errorf("ошибка очистки сессии: %w", err)
		}
	}

	return nil
}
