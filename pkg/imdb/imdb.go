// Package imdb provides a fallback title lookup backed by the public IMDb website.
package imdb

import "context"

// Title represents a movie or series title with its name, release year and poster.
type Title struct {
	ImdbID string
	Name   string
	Year   int
	Poster string
}

// IMDB defines the methods to interact with the IMDB service.
type IMDB interface {
	// GetTitle gets a Title by its ID.
	GetTitle(ctx context.Context, imdbID string) (*Title, error)
}
