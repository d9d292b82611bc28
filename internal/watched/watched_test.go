package watched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })

	return s
}

func TestPutGetDelete(t *testing.T) {
	s := openTestStore(t)

	movie := Movie{
		ImdbID:     "tt1375666",
		Title:      "Inception",
		Year:       "2010",
		Poster:     "https://example.com/inception.jpg",
		RuntimeMin: 148,
		ImdbRating: 8.8,
		UserRating: 9,
		AddedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.Put(movie))

	got, err := s.Get("tt1375666")
	require.NoError(t, err)
	assert.Equal(t, movie.Title, got.Title)
	assert.Equal(t, movie.UserRating, got.UserRating)
	assert.Equal(t, movie.ImdbRating, got.ImdbRating)

	require.NoError(t, s.Delete("tt1375666"))

	_, err = s.Get("tt1375666")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get("tt0000001")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPutReplaces(t *testing.T) {
	s := openTestStore(t)

	movie := Movie{ImdbID: "tt0372784", Title: "Batman Begins", UserRating: 6, AddedAt: time.Now().UTC()}
	require.NoError(t, s.Put(movie))

	movie.UserRating = 8
	require.NoError(t, s.Put(movie))

	got, err := s.Get("tt0372784")
	require.NoError(t, err)
	assert.Equal(t, 8, got.UserRating)

	movies, err := s.List()
	require.NoError(t, err)
	assert.Len(t, movies, 1)
}

func TestListOrder(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC()
	require.NoError(t, s.Put(Movie{ImdbID: "tt0372784", Title: "Batman Begins", AddedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, s.Put(Movie{ImdbID: "tt0468569", Title: "The Dark Knight", AddedAt: now.Add(-1 * time.Hour)}))
	require.NoError(t, s.Put(Movie{ImdbID: "tt1375666", Title: "Inception", AddedAt: now}))

	movies, err := s.List()
	require.NoError(t, err)

	require.Len(t, movies, 3)
	assert.Equal(t, "Inception", movies[0].Title)
	assert.Equal(t, "The Dark Knight", movies[1].Title)
	assert.Equal(t, "Batman Begins", movies[2].Title)
}
