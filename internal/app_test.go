package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nazarchykur/usepopcorn/internal/watched"
	"github.com/nazarchykur/usepopcorn/pkg/omdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSearchService struct {
	searchFunc        func(ctx context.Context, query string) ([]omdb.SearchItem, error)
	getTitleFunc      func(ctx context.Context, imdbID string) (*omdb.Title, error)
	listWatchedFunc   func(ctx context.Context) ([]watched.Movie, error)
	addWatchedFunc    func(ctx context.Context, imdbID string, userRating int) (*watched.Movie, error)
	removeWatchedFunc func(ctx context.Context, imdbID string) error
}

func (m *mockSearchService) ServeHTTP(w http.ResponseWriter, r *http.Request) {}

func (m *mockSearchService) Search(ctx context.Context, query string) ([]omdb.SearchItem, error) {
	return m.searchFunc(ctx, query)
}

func (m *mockSearchService) GetTitle(ctx context.Context, imdbID string) (*omdb.Title, error) {
	return m.getTitleFunc(ctx, imdbID)
}

func (m *mockSearchService) ListWatched(ctx context.Context) ([]watched.Movie, error) {
	return m.listWatchedFunc(ctx)
}

func (m *mockSearchService) AddWatched(ctx context.Context, imdbID string, userRating int) (*watched.Movie, error) {
	return m.addWatchedFunc(ctx, imdbID, userRating)
}

func (m *mockSearchService) RemoveWatched(ctx context.Context, imdbID string) error {
	return m.removeWatchedFunc(ctx, imdbID)
}

func (m *mockSearchService) RefreshWatched(ctx context.Context) ([]watched.Movie, error) {
	return nil, nil
}

func (m *mockSearchService) BroadcastStats(statsUpdater func(stats *Stats) error) error {
	return nil
}

func (m *mockSearchService) StartPollingStats(interval time.Duration) {}

func newTestRouter(t *testing.T, service SearchService) *chi.Mux {
	t.Helper()

	app, err := NewApp(service, "http://localhost:3590")
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/api/search", app.SearchHandler)
	r.Get("/api/title/{id}", app.TitleHandler)
	r.Get("/api/watched", app.WatchedListHandler)
	r.Put("/api/watched/{id}", app.AddWatchedHandler)
	r.Delete("/api/watched/{id}", app.RemoveWatchedHandler)
	return r
}

func TestSearchHandler(t *testing.T) {
	service := &mockSearchService{
		searchFunc: func(ctx context.Context, query string) ([]omdb.SearchItem, error) {
			assert.Equal(t, "batman", query)
			return []omdb.SearchItem{{ImdbID: "tt0096895", Title: "Batman", Year: "1989"}}, nil
		},
	}
	router := newTestRouter(t, service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search?s=batman", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	response := struct {
		Results []omdb.SearchItem `json:"results"`
	}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Results, 1)
	assert.Equal(t, "tt0096895", response.Results[0].ImdbID)
}

func TestSearchHandlerNotFound(t *testing.T) {
	service := &mockSearchService{
		searchFunc: func(ctx context.Context, query string) ([]omdb.SearchItem, error) {
			return nil, omdb.ErrMovieNotFound
		},
	}
	router := newTestRouter(t, service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search?s=zzzzzz", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Movie not found!")
}

func TestTitleHandler(t *testing.T) {
	service := &mockSearchService{
		getTitleFunc: func(ctx context.Context, imdbID string) (*omdb.Title, error) {
			assert.Equal(t, "tt1375666", imdbID)
			return &omdb.Title{ImdbID: "tt1375666", Title: "Inception", Year: "2010"}, nil
		},
	}
	router := newTestRouter(t, service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/title/tt1375666", nil))

	require.Equal(t, http.StatusOK, w.Code)

	title := omdb.Title{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &title))
	assert.Equal(t, "Inception", title.Title)
}

func TestTitleHandlerInvalidID(t *testing.T) {
	service := &mockSearchService{
		getTitleFunc: func(ctx context.Context, imdbID string) (*omdb.Title, error) {
			t.Fatal("GetTitle should not be called for an invalid ID")
			return nil, nil
		},
	}
	router := newTestRouter(t, service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/title/not-an-id", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWatchedListHandler(t *testing.T) {
	service := &mockSearchService{
		listWatchedFunc: func(ctx context.Context) ([]watched.Movie, error) {
			return []watched.Movie{{ImdbID: "tt1375666", Title: "Inception", UserRating: 9}}, nil
		},
	}
	router := newTestRouter(t, service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/watched", nil))

	require.Equal(t, http.StatusOK, w.Code)

	response := struct {
		Watched []watched.Movie `json:"watched"`
	}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Watched, 1)
	assert.Equal(t, 9, response.Watched[0].UserRating)
}

func TestAddWatchedHandler(t *testing.T) {
	service := &mockSearchService{
		addWatchedFunc: func(ctx context.Context, imdbID string, userRating int) (*watched.Movie, error) {
			assert.Equal(t, "tt1375666", imdbID)
			assert.Equal(t, 8, userRating)
			return &watched.Movie{ImdbID: imdbID, Title: "Inception", UserRating: userRating}, nil
		},
	}
	router := newTestRouter(t, service)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"rating":8}`)
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/watched/tt1375666", body))

	require.Equal(t, http.StatusOK, w.Code)

	movie := watched.Movie{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &movie))
	assert.Equal(t, 8, movie.UserRating)
}

func TestAddWatchedHandlerInvalidRating(t *testing.T) {
	service := &mockSearchService{
		addWatchedFunc: func(ctx context.Context, imdbID string, userRating int) (*watched.Movie, error) {
			t.Fatal("AddWatched should not be called for an invalid rating")
			return nil, nil
		},
	}
	router := newTestRouter(t, service)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"rating":11}`)
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/watched/tt1375666", body))

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddWatchedHandlerNotFound(t *testing.T) {
	service := &mockSearchService{
		addWatchedFunc: func(ctx context.Context, imdbID string, userRating int) (*watched.Movie, error) {
			return nil, omdb.ErrMovieNotFound
		},
	}
	router := newTestRouter(t, service)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"rating":5}`)
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/watched/tt9999999", body))

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoveWatchedHandler(t *testing.T) {
	removed := ""
	service := &mockSearchService{
		removeWatchedFunc: func(ctx context.Context, imdbID string) error {
			removed = imdbID
			return nil
		},
	}
	router := newTestRouter(t, service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/watched/tt1375666", nil))

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "tt1375666", removed)
}
