package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mockKey", r.URL.Query().Get("apikey"))
		assert.Equal(t, "batman", r.URL.Query().Get("s"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Response": "True",
			"Search": []map[string]string{
				{"imdbID": "tt0372784", "Title": "Batman Begins", "Year": "2005", "Poster": "N/A", "Type": "movie"},
				{"imdbID": "tt0468569", "Title": "The Dark Knight", "Year": "2008", "Poster": "N/A", "Type": "movie"},
			},
		})
	}))
	defer server.Close()

	c := &client{
		httpClient: &http.Client{},
		baseURL:    server.URL,
		apiKey:     "mockKey",
	}

	results, err := c.Search(context.Background(), "batman")
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "tt0372784", results[0].ImdbID)
	assert.Equal(t, "Batman Begins", results[0].Title)
	assert.Equal(t, "2005", results[0].Year)
	assert.Equal(t, "The Dark Knight", results[1].Title)
}

func TestSearchNotFound(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"Response": "False", "Error": "Movie not found!"})
	}))
	defer server.Close()

	c := &client{
		httpClient: &http.Client{},
		baseURL:    server.URL,
		apiKey:     "mockKey",
	}

	results, err := c.Search(context.Background(), "qwertyuiop")
	require.ErrorIs(t, err, ErrMovieNotFound)
	assert.Equal(t, "Movie not found!", err.Error())
	assert.Nil(t, results)
}

func TestSearchBadStatus(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := &client{
		httpClient: &http.Client{},
		baseURL:    server.URL,
		apiKey:     "mockKey",
	}

	_, err := c.Search(context.Background(), "batman")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Contains(t, err.Error(), "404")
}

func TestSearchCancelled(t *testing.T) {

	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := &client{
		httpClient: &http.Client{},
		baseURL:    server.URL,
		apiKey:     "mockKey",
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := c.Search(ctx, "batman")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGetTitle(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tt1375666", r.URL.Query().Get("i"))
		assert.Equal(t, "full", r.URL.Query().Get("plot"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"Response":   "True",
			"imdbID":     "tt1375666",
			"Title":      "Inception",
			"Year":       "2010",
			"Runtime":    "148 min",
			"imdbRating": "8.8",
			"Plot":       "A thief who steals corporate secrets.",
		})
	}))
	defer server.Close()

	c := &client{
		httpClient: &http.Client{},
		baseURL:    server.URL,
		apiKey:     "mockKey",
	}

	title, err := c.GetTitle(context.Background(), "tt1375666")
	require.NoError(t, err)

	assert.Equal(t, "Inception", title.Title)
	assert.Equal(t, "2010", title.Year)
	assert.Equal(t, "148 min", title.Runtime)
	assert.Equal(t, "8.8", title.ImdbRating)
}

func TestGetTitleNotFound(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"Response": "False", "Error": "Incorrect IMDb ID."})
	}))
	defer server.Close()

	c := &client{
		httpClient: &http.Client{},
		baseURL:    server.URL,
		apiKey:     "mockKey",
	}

	_, err := c.GetTitle(context.Background(), "tt0000000")
	require.ErrorIs(t, err, ErrMovieNotFound)
}
