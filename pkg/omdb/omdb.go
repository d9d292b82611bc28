// Package omdb provides a client for the OMDb API (https://www.omdbapi.com).
package omdb

import "context"

// SearchItem represents one movie of a search result page. Field names follow
// the OMDb wire format.
type SearchItem struct {
	ImdbID string `json:"imdbID"`
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	Poster string `json:"Poster"`
	Type   string `json:"Type"`
}

// Title holds the full details of a single title.
type Title struct {
	ImdbID     string `json:"imdbID"`
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Poster     string `json:"Poster"`
	Released   string `json:"Released"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Director   string `json:"Director"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	ImdbRating string `json:"imdbRating"`
}

// Client defines the methods to interact with the OMDb service.
type Client interface {
	// Search fetches the movies matching the given query.
	Search(ctx context.Context, query string) ([]SearchItem, error)
	// GetTitle fetches the full details of a title by its IMDb ID.
	GetTitle(ctx context.Context, imdbID string) (*Title, error)
}
