package omdb

import (
	"errors"
	"fmt"
)

// ErrMovieNotFound is returned when the endpoint answers with Response "False".
// Its message is shown to users as-is.
var ErrMovieNotFound = errors.New("Movie not found!")

// StatusError reports a non-2xx HTTP response from the endpoint.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching movies failed with status %d", e.Code)
}
