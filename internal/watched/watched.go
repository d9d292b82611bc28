// Package watched persists the user's watched list together with their star ratings.
package watched

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when a movie is not on the watched list.
var ErrNotFound = errors.New("movie not on the watched list")

// Movie is one entry of the watched list.
type Movie struct {
	ImdbID     string    `json:"imdbID"`
	Title      string    `json:"title"`
	Year       string    `json:"year"`
	Poster     string    `json:"poster"`
	RuntimeMin int       `json:"runtimeMin"`
	ImdbRating float64   `json:"imdbRating"`
	UserRating int       `json:"userRating"`
	AddedAt    time.Time `json:"addedAt"`
}

const keyPrefix = "watched : "

// Store is a badger backed watched list.
type Store struct {
	db *badger.DB
}

// Open opens the watched list DB at the given path.
func Open(path string) (*Store, error) {

	db, err := badger.Open(
		badger.DefaultOptions(path).
			WithNumVersionsToKeep(0).
			WithLogger(nil),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to badger.Open: %w", err)
	}

	return &Store{db: db}, nil
}

// Put stores or replaces a movie on the watched list.
func (s *Store) Put(movie Movie) error {

	b, err := json.Marshal(movie)
	if err != nil {
		return fmt.Errorf("failed to json.Marshal: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+movie.ImdbID), b)
	})
	if err != nil {
		return fmt.Errorf("failed to store on watched list: %w", err)
	}

	return nil
}

// Get retrieves a movie from the watched list by its IMDb ID.
func (s *Store) Get(imdbID string) (*Movie, error) {

	movie := &Movie{}

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + imdbID))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, movie)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from watched list: %w", err)
	}

	return movie, nil
}

// Delete removes a movie from the watched list. Removing a movie that is not
// on the list is not an error.
func (s *Store) Delete(imdbID string) error {

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + imdbID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete from watched list: %w", err)
	}

	return nil
}

// List returns all the movies on the watched list, most recently added first.
func (s *Store) List() ([]Movie, error) {

	var movies []Movie

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var movie Movie
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &movie)
			})
			if err != nil {
				return fmt.Errorf("failed to json.Unmarshal: %w", err)
			}
			movies = append(movies, movie)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list watched movies: %w", err)
	}

	sort.Slice(movies, func(i, j int) bool {
		return movies[i].AddedAt.After(movies[j].AddedAt)
	})

	return movies, nil
}

// Close closes the watched list DB.
func (s *Store) Close() error {
	return s.db.Close()
}
