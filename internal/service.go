package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/centrifugal/centrifuge"
	"github.com/nazarchykur/usepopcorn/internal/cache"
	"github.com/nazarchykur/usepopcorn/internal/common"
	"github.com/nazarchykur/usepopcorn/internal/loki"
	"github.com/nazarchykur/usepopcorn/internal/search"
	"github.com/nazarchykur/usepopcorn/internal/watched"
	"github.com/nazarchykur/usepopcorn/pkg/imdb"
	"github.com/nazarchykur/usepopcorn/pkg/omdb"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Stats represents statistical data including search and details-view counts in the last 24 hours and the most recently viewed title.
type Stats struct {
	// SearchesCount24 represents the number of movie searches performed in the last 24 hours.
	SearchesCount24 int `json:"searchesCount24"`
	// DetailsCount24 represents the number of title details views within the last 24 hours.
	DetailsCount24 int `json:"detailsCount24"`
	// TitleInstant holds the title most recently viewed, for immediate broadcasting in statistical data.
	TitleInstant string `json:"titleInstant"`
}

// SearchService defines the movie search, title details and watched list operations of the application.
type SearchService interface {
	// Handler handles incoming HTTP requests via a websocket handler
	http.Handler
	// Search performs a one-shot movie search for the given query.
	Search(ctx context.Context, query string) ([]omdb.SearchItem, error)
	// GetTitle retrieves the full details of a title by its IMDb ID.
	GetTitle(ctx context.Context, imdbID string) (*omdb.Title, error)
	// ListWatched returns the watched list, most recently added first.
	ListWatched(ctx context.Context) ([]watched.Movie, error)
	// AddWatched puts a title on the watched list with the given star rating.
	AddWatched(ctx context.Context, imdbID string, userRating int) (*watched.Movie, error)
	// RemoveWatched removes a title from the watched list.
	RemoveWatched(ctx context.Context, imdbID string) error
	// RefreshWatched re-fetches the current IMDb rating and runtime of every watched movie.
	RefreshWatched(ctx context.Context) ([]watched.Movie, error)
	// BroadcastStats updates and publishes statistical data to a websocket channel.
	// Accepts a function to modify stats and returns an error if updating or publishing fails.
	BroadcastStats(statsUpdater func(stats *Stats) error) error
	// StartPollingStats begins the periodic fetching and broadcasting of statistical data at the specified interval.
	StartPollingStats(interval time.Duration)
}

type searchService struct {
	statsWebsocketChannel string
	minQueryLength        int
	debounce              time.Duration

	omdb    omdb.Client
	imdb    imdb.IMDB
	loki    loki.Loki
	watched *watched.Store

	node             *centrifuge.Node
	websocketHandler *centrifuge.WebsocketHandler
	statsMutex       *sync.Mutex
	stats            Stats
}

// NewSearchService creates a new instance of SearchService with the provided OMDb, IMDb and Loki clients and the watched list store.
func NewSearchService(statsWebsocketChannel string, minQueryLength int, debounce time.Duration, omdbClient omdb.Client, imdbClient imdb.IMDB, lokiClient loki.Loki, watchedStore *watched.Store) SearchService {
	svc := &searchService{
		statsWebsocketChannel: statsWebsocketChannel,
		minQueryLength:        minQueryLength,
		debounce:              debounce,

		omdb:    omdbClient,
		imdb:    imdbClient,
		loki:    lokiClient,
		watched: watchedStore,

		statsMutex: &sync.Mutex{},
	}

	node, err := centrifuge.New(centrifuge.Config{})
	if err != nil {
		common.Log.Error("Failed to centrifuge.New", "err", err)
		os.Exit(1)
	}
	svc.node = node

	node.OnConnecting(func(ctx context.Context, e centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
		return centrifuge.ConnectReply{}, nil
	})

	node.OnConnect(func(client *centrifuge.Client) {

		// Each connection owns one live search session. The fetcher cancels
		// a superseded lookup before the next one starts and discards late
		// completions, so the client only ever sees the state of its newest
		// query.
		fetcher := search.NewFetcher(svc.omdb, func(st search.State) {
			b, err := json.Marshal(st)
			if err != nil {
				common.Log.Warn("Failed to json.Marshal search state", "err", err)
				return
			}
			if err := client.Send(b); err != nil {
				common.Log.Warn("Failed to centrifuge.Client.Send", "err", err)
			}
		},
			search.WithMinQueryLength(svc.minQueryLength),
			search.WithDebounce(svc.debounce),
			search.WithLogger(common.Log),
		)

		client.OnMessage(func(e centrifuge.MessageEvent) {
			msg := struct {
				Query string `json:"query"`
			}{}
			if err := json.Unmarshal(e.Data, &msg); err != nil {
				common.Log.Warn("Failed to json.Unmarshal query message", "err", err)
				return
			}
			fetcher.SetQuery(msg.Query)
		})

		client.OnDisconnect(func(e centrifuge.DisconnectEvent) {
			fetcher.Close()
		})

		client.OnSubscribe(func(e centrifuge.SubscribeEvent, cb centrifuge.SubscribeCallback) {
			if e.Channel != statsWebsocketChannel {
				cb(centrifuge.SubscribeReply{}, centrifuge.ErrorPermissionDenied)
				return
			}

			cb(centrifuge.SubscribeReply{
				Options: centrifuge.SubscribeOptions{},
			}, nil)

			// Todo: Avoid broadcasting to all clients
			go func() {
				err := svc.BroadcastStats(func(data *Stats) error { return nil })
				if err != nil {
					common.Log.Warn("Failed to internal.SearchService.BroadcastStats", "err", err)
				}
			}()
		})

	})

	if err := node.Run(); err != nil {
		common.Log.Error("Failed to centrifuge.Node.Run", "err", err)
		os.Exit(1)
	}

	websocketHandler := centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		ReadBufferSize:     1024,
		UseWriteBufferPool: true,
	})
	svc.websocketHandler = websocketHandler

	return svc
}

// Search performs a one-shot movie search for the given query.
// Results are cached to reduce API calls. Queries below the minimum length
// return an empty result set without a lookup.
func (s *searchService) Search(ctx context.Context, query string) ([]omdb.SearchItem, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.SearchService.Search")
	defer span.End()

	query = strings.TrimSpace(query)
	span.SetAttributes(attribute.String("search.query", query))

	if utf8.RuneCountInString(query) < s.minQueryLength {
		return []omdb.SearchItem{}, nil
	}

	common.SearchAttemptsTotalIncr(ctx)

	cacheResult := "hit"
	cacheKey := fmt.Sprintf("omdb.search : %s", query)
	results, err := cache.Memoize[[]omdb.SearchItem](cacheKey, time.Hour, func() (*[]omdb.SearchItem, error) {

		cacheResult = "miss"
		items, err := s.omdb.Search(ctx, query)
		if err != nil {
			return nil, err
		}

		return &items, nil
	})
	span.SetAttributes(attribute.String("cache.omdb.search.result", cacheResult))
	common.CacheGetsTotalIncr(ctx, "omdb.search", cacheResult)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("omdb.results-count", len(*results)))

	return *results, nil
}

// GetTitle retrieves the full details of a title by its IMDb ID.
// It uses caching to improve performance and falls back to the IMDb website
// when OMDb does not know the title.
func (s *searchService) GetTitle(ctx context.Context, imdbID string) (*omdb.Title, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.SearchService.GetTitle")
	defer span.End()

	cacheResult := "hit"
	cacheKey := fmt.Sprintf("omdb.title : %s", imdbID)
	title, err := cache.Memoize[omdb.Title](cacheKey, 48*time.Hour, func() (*omdb.Title, error) {

		cacheResult = "miss"
		title, err := s.omdb.GetTitle(ctx, imdbID)
		if errors.Is(err, omdb.ErrMovieNotFound) {
			fallback, ferr := s.imdb.GetTitle(ctx, imdbID)
			if ferr != nil {
				common.Log.WarnContext(ctx, "Failed to imdb.IMDB.GetTitle fallback", "err", ferr)
				return nil, err
			}
			return &omdb.Title{
				ImdbID: fallback.ImdbID,
				Title:  fallback.Name,
				Year:   strconv.Itoa(fallback.Year),
				Poster: fallback.Poster,
			}, nil
		}
		if err != nil {
			return nil, err
		}

		return title, nil
	})
	span.SetAttributes(attribute.String("cache.omdb.title.result", cacheResult))
	common.CacheGetsTotalIncr(ctx, "omdb.title", cacheResult)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("imdb.id", imdbID))
	span.SetAttributes(attribute.String("imdb.title", title.Title))

	go func() {
		err := s.BroadcastStats(func(data *Stats) error {
			data.TitleInstant = title.Title
			return nil
		})
		if err != nil {
			common.Log.WarnContext(ctx, "Failed to internal.SearchService.BroadcastStats", "err", err)
		}
	}()

	return title, nil
}

// ListWatched returns the watched list, most recently added first.
func (s *searchService) ListWatched(ctx context.Context) ([]watched.Movie, error) {

	_, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.SearchService.ListWatched")
	defer span.End()

	movies, err := s.watched.List()
	if err != nil {
		return nil, fmt.Errorf("failed to watched.Store.List: %w", err)
	}

	return movies, nil
}

// AddWatched puts a title on the watched list with the given star rating.
func (s *searchService) AddWatched(ctx context.Context, imdbID string, userRating int) (*watched.Movie, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.SearchService.AddWatched")
	defer span.End()

	title, err := s.GetTitle(ctx, imdbID)
	if err != nil {
		return nil, err
	}

	movie := watched.Movie{
		ImdbID:     imdbID,
		Title:      title.Title,
		Year:       title.Year,
		Poster:     title.Poster,
		RuntimeMin: parseRuntime(title.Runtime),
		ImdbRating: parseRating(title.ImdbRating),
		UserRating: userRating,
		AddedAt:    time.Now().UTC(),
	}

	if err := s.watched.Put(movie); err != nil {
		return nil, fmt.Errorf("failed to watched.Store.Put: %w", err)
	}
	common.WatchedSavesTotalIncr(ctx)

	return &movie, nil
}

// RemoveWatched removes a title from the watched list.
func (s *searchService) RemoveWatched(ctx context.Context, imdbID string) error {

	_, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.SearchService.RemoveWatched")
	defer span.End()

	if err := s.watched.Delete(imdbID); err != nil {
		return fmt.Errorf("failed to watched.Store.Delete: %w", err)
	}

	return nil
}

// RefreshWatched re-fetches the current IMDb rating and runtime of every
// watched movie, a few titles at a time.
func (s *searchService) RefreshWatched(ctx context.Context) ([]watched.Movie, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.SearchService.RefreshWatched")
	defer span.End()

	movies, err := s.watched.List()
	if err != nil {
		return nil, fmt.Errorf("failed to watched.Store.List: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	updated := make([]watched.Movie, len(movies))
	for i, movie := range movies {
		g.Go(func() error {
			updated[i] = movie

			title, err := s.omdb.GetTitle(ctx, movie.ImdbID)
			if err != nil {
				if errors.Is(err, omdb.ErrMovieNotFound) {
					// The stored copy stays as-is.
					return nil
				}
				return fmt.Errorf("failed to omdb.Client.GetTitle: %w", err)
			}

			updated[i].ImdbRating = parseRating(title.ImdbRating)
			if minutes := parseRuntime(title.Runtime); minutes != 0 {
				updated[i].RuntimeMin = minutes
			}

			return s.watched.Put(updated[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return updated, nil
}

// BroadcastStats updates and publishes statistical data to a websocket channel.
// Accepts a function to modify stats and returns an error if updating or publishing fails.
// It is a no-op until the websocket node is running.
func (s *searchService) BroadcastStats(statsUpdater func(stats *Stats) error) error {
	if s.node == nil {
		return nil
	}

	stats, err := func() (Stats, error) {
		s.statsMutex.Lock()
		defer s.statsMutex.Unlock()
		err := statsUpdater(&s.stats)
		if err != nil {
			return Stats{}, err
		}
		return s.stats, nil
	}()
	if err != nil {
		return fmt.Errorf("failed to statsUpdater: %w", err)
	}

	b, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to json.Marshal: %w", err)
	}

	_, err = s.node.Publish(s.statsWebsocketChannel, b, nil...)
	if err != nil {
		return fmt.Errorf("failed to centrifuge.Node.Publish: %w", err)
	}

	return nil
}

// StartPollingStats begins the periodic fetching and broadcasting of statistical data at the specified interval.
func (s *searchService) StartPollingStats(interval time.Duration) {
	ticker := time.NewTicker(interval)
	for ; true; <-ticker.C {
		searches, err := s.loki.GetSearches24()
		if err != nil {
			common.Log.Error("failed to loki.Loki.GetSearches24", "err", err)
		}
		details, err := s.loki.GetDetails24()
		if err != nil {
			common.Log.Error("failed to loki.Loki.GetDetails24", "err", err)
		}
		err = s.BroadcastStats(func(stats *Stats) error {
			if searches != 0 {
				stats.SearchesCount24 = searches
			}
			if details != 0 {
				stats.DetailsCount24 = details
			}
			return nil
		})
		if err != nil {
			common.Log.Warn("failed to internal.SearchService.BroadcastStats", "err", err)
		}
	}
}

// ServeHTTP handles incoming HTTP requests via a websocket handler
func (s *searchService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	newCtx := centrifuge.SetCredentials(ctx, &centrifuge.Credentials{})
	r = r.WithContext(newCtx)

	s.websocketHandler.ServeHTTP(w, r)
}

// parseRuntime parses OMDb runtime strings like "148 min" into minutes.
func parseRuntime(runtime string) int {
	fields := strings.Fields(runtime)
	if len(fields) == 0 {
		return 0
	}
	minutes, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return minutes
}

// parseRating parses OMDb rating strings like "8.8". "N/A" parses to 0.
func parseRating(rating string) float64 {
	v, err := strconv.ParseFloat(rating, 64)
	if err != nil {
		return 0
	}
	return v
}
