package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/exp/slog"

	"citycare/internal/app/client/config"
	"citycare/internal/domain/story"
	"citycare/internal/domain/user"
)

// StoryAPI - контракт удаленного источника записей
type StoryAPI interface {
	Register(ctx context.Context, req user.RegisterRequest) error
	Login(ctx context.Context, req user.LoginRequest) (user.Session, error)
	ListStories(ctx context.Context, token string, page, size int) ([]story.Story, error)
	GetStory(ctx context.Context, token string, id string) (story.Story, error)
	CreateStory(ctx context.Context, token string, n story.NewStory) (story.Story, error)
	Ping(ctx context.Context) error
}

type httpClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	userAgent string
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) *httpClient {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			DisableCompression:  false,
			DisableKeepAlives:   false,
			MaxIdleConnsPerHost: 10,
		},
	}

	return &httpClient{
		client:    client,
		log:       log,
		baseURL:   cfg.BaseURL,
		userAgent: "CityCare-Client/1.0",
	}
}

// apiEnvelope - общая обертка ответов удаленного источника
type apiEnvelope struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// Register регистрирует нового пользователя
func (h *httpClient) Register(ctx context.Context, req user.RegisterRequest) error {
	resp, err := h.doJSON(ctx, "POST", "/register", "", req)
	if err != nil {
		return err
	}

	return h.parseResponse(resp, nil)
}

// Login выполняет вход и возвращает сессию с bearer-токеном
func (h *httpClient) Login(ctx context.Context, req user.LoginRequest) (user.Session, error) {
	resp, err := h.doJSON(ctx, "POST", "/login", "", req)
	if err != nil {
		return user.Session{}, err
	}

	var loginResp struct {
		apiEnvelope
		LoginResult user.Session `json:"loginResult"`
	}
	if err := h.parseResponse(resp, &loginResp); err != nil {
		return user.Session{}, err
	}

	if loginResp.LoginResult.Token == "" {
		return user.Session{}, fmt.Errorf("%w: пустой токен в ответе", story.ErrRemoteUnavailable)
	}

	return loginResp.LoginResult, nil
}

// ListStories возвращает страницу записей удаленного источника
func (h *httpClient) ListStories(ctx context.Context, token string, page, size int) ([]story.Story, error) {
	path := fmt.Sprintf("/stories?page=%d&size=%d&location=1", page, size)

	resp, err := h.doJSON(ctx, "GET", path, token, nil)
	if err != nil {
		return nil, err
	}

	var listResp struct {
		apiEnvelope
		ListStory []story.Story `json:"listStory"`
	}
	if err := h.parseResponse(resp, &listResp); err != nil {
		return nil, err
	}

	return listResp.ListStory, nil
}

// GetStory возвращает полную запись по id
func (h *httpClient) GetStory(ctx context.Context, token string, id string) (story.Story, error) {
	resp, err := h.doJSON(ctx, "GET", "/stories/"+id, token, nil)
	if err != nil {
		return story.Story{}, err
	}

	var detailResp struct {
		apiEnvelope
		Story story.Story `json:"story"`
	}
	if err := h.parseResponse(resp, &detailResp); err != nil {
		return story.Story{}, err
	}

	return detailResp.Story, nil
}

// CreateStory отправляет новую запись multipart-запросом
// (description, photo, lat, lon) и возвращает подтвержденную запись.
func (h *httpClient) CreateStory(ctx context.Context, token string, n story.NewStory) (story.Story, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("description", n.Description); err != nil {
		return story.Story{}, fmt.Errorf("формирование запроса: %w", err)
	}

	photoName := n.PhotoName
	if photoName == "" {
		photoName = "photo.jpg"
	}
	part, err := mw.CreateFormFile("photo", photoName)
	if err != nil {
		return story.Story{}, fmt.Errorf("формирование запроса: %w", err)
	}
	if _, err := part.Write(n.PhotoData); err != nil {
		return story.Story{}, fmt.Errorf("формирование запроса: %w", err)
	}

	if n.Lat != nil && n.Lon != nil {
		if err := mw.WriteField("lat", strconv.FormatFloat(*n.Lat, 'f', -1, 64)); err != nil {
			return story.Story{}, fmt.Errorf("формирование запроса: %w", err)
		}
		if err := mw.WriteField("lon", strconv.FormatFloat(*n.Lon, 'f', -1, 64)); err != nil {
			return story.Story{}, fmt.Errorf("формирование запроса: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return story.Story{}, fmt.Errorf("формирование запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", h.baseURL+"/stories", &body)
	if err != nil {
		return story.Story{}, fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", h.userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	h.log.Debug("Отправка записи", "url", req.URL.String(), "photo_bytes", len(n.PhotoData))

	resp, err := h.client.Do(req)
	if err != nil {
		return story.Story{}, fmt.Errorf("%w: %w", story.ErrRemoteUnavailable, err)
	}

	var createResp struct {
		apiEnvelope
		Story story.Story `json:"story"`
	}
	if err := h.parseResponse(resp, &createResp); err != nil {
		return story.Story{}, err
	}

	return createResp.Story, nil
}

// Ping проверяет доступность удаленного источника
func (h *httpClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", h.baseURL+"/stories?page=1&size=1", nil)
	if err != nil {
		return fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", story.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// Источник отвечает 401 неавторизованным запросам - сеть при этом есть
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: статус %d", story.ErrRemoteUnavailable, resp.StatusCode)
	}

	return nil
}

func (h *httpClient) doJSON(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("маршалинг тела запроса: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}

	// Добавляем заголовки
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", h.userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	h.log.Debug("Отправка запроса",
		"method", method,
		"url", req.URL.String(),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", story.ErrRemoteUnavailable, err)
	}

	return resp, nil
}

func (h *httpClient) parseResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: чтение ответа: %w", story.ErrRemoteUnavailable, err)
	}

	h.log.Debug("Получен ответ",
		"status", resp.StatusCode,
		"bytes", len(body),
	)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("удаленный источник: %w", story.ErrNotFound)
	}

	if resp.StatusCode >= 400 {
		var envelope apiEnvelope
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
			return fmt.Errorf("%w: %s (статус %d)", story.ErrRemoteUnavailable, envelope.Message, resp.StatusCode)
		}
		return fmt.Errorf("%w: статус %d", story.ErrRemoteUnavailable, resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("%w: разбор ответа: %w", story.ErrRemoteUnavailable, err)
		}
	}

	return nil
}
