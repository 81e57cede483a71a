package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citycare/internal/app/client/config"
	"citycare/internal/domain/story"
	"citycare/internal/domain/user"
)

// newFakeServer поднимает поддельный удаленный источник с контрактом
// реального API: envelope {error, message} плюс полезная нагрузка.
func newFakeServer(t *testing.T) (*httptest.Server, *httpClient) {
	t.Helper()

	r := chi.NewRouter()

	r.Post("/register", func(w http.ResponseWriter, req *http.Request) {
		var body user.RegisterRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		if body.Email == "taken@example.test" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"error": true, "message": "Email is already taken"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"error": false, "message": "User created"})
	})

	r.Post("/login", func(w http.ResponseWriter, req *http.Request) {
		var body user.LoginRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		if body.Password != "correct-horse" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"error": true, "message": "Invalid password"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"error":   false,
			"message": "success",
			"loginResult": map[string]string{
				"userId": "user-1",
				"name":   "Tester",
				"token":  "jwt-token",
			},
		})
	})

	r.Get("/stories", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer jwt-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"error": true, "message": "Missing authentication"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"error": false,
			"listStory": []map[string]any{
				// Числовой id в ответе должен нормализоваться в строку
				{"id": 101, "name": "Dimas", "description": "Яма на дороге", "photoUrl": "https://example.test/101.jpg"},
				{"id": "s-2", "name": "Sari", "description": "Сломанный фонарь", "lat": -6.2, "lon": 106.8},
			},
		})
	})

	r.Get("/stories/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		if id != "s-2" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"error": true, "message": "Story not found"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"error": false,
			"story": map[string]any{
				"id": "s-2", "name": "Sari", "description": "Сломанный фонарь",
				"photoUrl": "https://example.test/s-2.jpg", "lat": -6.2, "lon": 106.8,
			},
		})
	})

	r.Post("/stories", func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, req.ParseMultipartForm(4<<20))

		description := req.FormValue("description")
		require.NotEmpty(t, description)

		file, header, err := req.FormFile("photo")
		require.NoError(t, err)
		defer file.Close()
		require.NotEmpty(t, header.Filename)

		json.NewEncoder(w).Encode(map[string]any{
			"error": false, "message": "Story created",
			"story": map[string]any{
				"id": "created-1", "name": "Tester", "description": description,
				"photoUrl": "https://example.test/created-1.jpg",
			},
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	cfg := &config.Config{BaseURL: srv.URL, RequestTimeout: 5}
	return srv, NewHTTPClient(cfg, testLogger())
}

func TestHTTPClientLogin(t *testing.T) {
	_, cl := newFakeServer(t)
	ctx := context.Background()

	session, err := cl.Login(ctx, user.LoginRequest{Email: "a@b.test", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "Tester", session.Name)
	assert.Equal(t, "jwt-token", session.Token)

	_, err = cl.Login(ctx, user.LoginRequest{Email: "a@b.test", Password: "wrong"})
	require.Error(t, err)
	assert.ErrorIs(t, err, story.ErrRemoteUnavailable)
	assert.Contains(t, err.Error(), "Invalid password")
}

func TestHTTPClientRegister(t *testing.T) {
	_, cl := newFakeServer(t)
	ctx := context.Background()

	require.NoError(t, cl.Register(ctx, user.RegisterRequest{
		Name: "Tester", Email: "new@example.test", Password: "password123",
	}))

	err := cl.Register(ctx, user.RegisterRequest{
		Name: "Tester", Email: "taken@example.test", Password: "password123",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already taken")
}

func TestHTTPClientListStories(t *testing.T) {
	_, cl := newFakeServer(t)
	ctx := context.Background()

	stories, err := cl.ListStories(ctx, "jwt-token", 1, 20)
	require.NoError(t, err)
	require.Len(t, stories, 2)

	// Числовой id нормализован в каноническую строку
	assert.Equal(t, "101", stories[0].ID)
	assert.Equal(t, "s-2", stories[1].ID)
	require.NotNil(t, stories[1].Lat)
	assert.InDelta(t, -6.2, *stories[1].Lat, 1e-9)

	// Без токена источник отвечает 401
	_, err = cl.ListStories(ctx, "", 1, 20)
	assert.ErrorIs(t, err, story.ErrRemoteUnavailable)
}

func TestHTTPClientGetStory(t *testing.T) {
	_, cl := newFakeServer(t)
	ctx := context.Background()

	st, err := cl.GetStory(ctx, "jwt-token", "s-2")
	require.NoError(t, err)
	assert.Equal(t, "s-2", st.ID)
	assert.True(t, st.HasLocation())

	_, err = cl.GetStory(ctx, "jwt-token", "missing")
	assert.ErrorIs(t, err, story.ErrNotFound)
}

func TestHTTPClientCreateStoryMultipart(t *testing.T) {
	_, cl := newFakeServer(t)
	ctx := context.Background()

	lat, lon := -6.2, 106.8
	created, err := cl.CreateStory(ctx, "jwt-token", story.NewStory{
		Description: "Затопленный перекресток",
		PhotoData:   []byte("jpeg-bytes"),
		PhotoName:   "flood.jpg",
		PhotoType:   "image/jpeg",
		Lat:         &lat,
		Lon:         &lon,
	})
	require.NoError(t, err)
	assert.Equal(t, "created-1", created.ID)
	assert.Equal(t, "Затопленный перекресток", created.Description)
}

func TestHTTPClientPing(t *testing.T) {
	_, cl := newFakeServer(t)
	ctx := context.Background()

	// 401 без токена означает, что сеть есть
	require.NoError(t, cl.Ping(ctx))

	// 5xx означает недоступность
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	brokenClient := NewHTTPClient(&config.Config{BaseURL: broken.URL, RequestTimeout: 5}, testLogger())
	err := brokenClient.Ping(ctx)
	assert.ErrorIs(t, err, story.ErrRemoteUnavailable)

	// Сервер остановлен - транспортная ошибка
	stopped := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := stopped.URL
	stopped.Close()

	deadClient := NewHTTPClient(&config.Config{BaseURL: url, RequestTimeout: 5}, testLogger())
	assert.Error(t, deadClient.Ping(ctx))
}
