// Package search implements an incremental movie search session: one live
// lookup attempt at a time, the previous attempt cancelled whenever the query
// changes, and a {results, loading, error} triple published to the consumer
// on every change.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/nazarchykur/usepopcorn/internal/common"
	"github.com/nazarchykur/usepopcorn/pkg/omdb"
	"golang.org/x/text/unicode/norm"
)

// State is the triple the consumer observes. Results are replaced wholesale
// on every successful lookup and must not be mutated by consumers.
type State struct {
	Results []omdb.SearchItem `json:"results"`
	Loading bool              `json:"loading"`
	Error   string            `json:"error,omitempty"`
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMinQueryLength overrides the minimum query length gate.
func WithMinQueryLength(n int) Option {
	return func(f *Fetcher) {
		f.minQueryLength = n
	}
}

// WithDebounce delays each lookup attempt by d after the last query change.
func WithDebounce(d time.Duration) Option {
	return func(f *Fetcher) {
		f.debounce = d
	}
}

// WithLogger overrides the diagnostics logger.
func WithLogger(log *slog.Logger) Option {
	return func(f *Fetcher) {
		f.log = log
	}
}

// Fetcher manages the lifecycle of asynchronous lookups against the movie
// search endpoint. All state mutation happens under a single mutex; the
// publish callback runs under that mutex so that published states are seen in
// order, and must therefore not call back into the Fetcher.
type Fetcher struct {
	client  omdb.Client
	publish func(State)
	log     *slog.Logger

	minQueryLength int
	debounce       time.Duration

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	timer  *time.Timer
	state  State
	closed bool
}

// NewFetcher creates a Fetcher publishing every state change through publish.
// A nil publish is allowed; consumers can then poll State instead.
func NewFetcher(client omdb.Client, publish func(State), opts ...Option) *Fetcher {
	f := &Fetcher{
		client:         client,
		publish:        publish,
		log:            slog.Default(),
		minQueryLength: 3,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.publish == nil {
		f.publish = func(State) {}
	}
	return f
}

// SetQuery replaces the current query. The previous attempt, if any, is
// cancelled before anything else happens, so at most one attempt is ever
// live. Queries shorter than the minimum length clear the state without
// issuing a lookup.
func (f *Fetcher) SetQuery(query string) {
	query = norm.NFC.String(strings.TrimSpace(query))

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}

	f.abortLocked()
	f.seq++

	if utf8.RuneCountInString(query) < f.minQueryLength {
		f.state = State{}
		f.publish(f.state)
		return
	}

	seq := f.seq
	f.state.Loading = true
	f.state.Error = ""
	f.publish(f.state)

	if f.debounce > 0 {
		f.timer = time.AfterFunc(f.debounce, func() { f.run(seq, query) })
		return
	}
	go f.run(seq, query)
}

// State returns a snapshot of the current triple.
func (f *Fetcher) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Close cancels any in-flight attempt and clears the state. Nothing is
// published after Close.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	f.abortLocked()
	f.seq++
	f.state = State{}
}

// abortLocked cancels the in-flight attempt and any pending debounce timer.
func (f *Fetcher) abortLocked() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

// run performs one lookup attempt. seq identifies the attempt: a completion
// belonging to a superseded attempt is discarded without touching the state,
// regardless of whether its context observed the cancellation.
func (f *Fetcher) run(seq uint64, query string) {
	f.mu.Lock()
	if seq != f.seq {
		f.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.mu.Unlock()
	defer cancel()

	common.SearchAttemptsTotalIncr(ctx)
	results, err := f.client.Search(ctx, query)

	f.mu.Lock()
	defer f.mu.Unlock()

	if seq != f.seq {
		// A newer query took over while this attempt was in flight.
		return
	}

	f.state.Loading = false
	switch {
	case err == nil:
		f.state.Results = results
		f.state.Error = ""
	case errors.Is(err, context.Canceled):
		// Cancellation is not a reportable failure.
	default:
		f.state.Error = errorMessage(err)
		f.log.Warn("Movie search failed", "query", query, "err", err)
		common.SearchFailuresTotalIncr(context.Background(), failureKind(err))
	}
	f.publish(f.state)
}

// errorMessage maps a lookup failure to the message shown to the consumer.
func errorMessage(err error) string {
	if errors.Is(err, omdb.ErrMovieNotFound) {
		return omdb.ErrMovieNotFound.Error()
	}
	var statusErr *omdb.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	return err.Error()
}

func failureKind(err error) string {
	var statusErr *omdb.StatusError
	switch {
	case errors.Is(err, omdb.ErrMovieNotFound):
		return "not_found"
	case errors.As(err, &statusErr):
		return "transport"
	default:
		return "unknown"
	}
}
