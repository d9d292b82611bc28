package internal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nazarchykur/usepopcorn/internal/common"
	"github.com/nazarchykur/usepopcorn/internal/watched"
	"github.com/nazarchykur/usepopcorn/pkg/omdb"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// App represents the main application structure that holds the search service and public host information.
type App struct {
	SearchService SearchService
	PublicHost    string
}

/*
NewApp creates a new instance of the App struct.

Parameters:
  - searchService: The service providing movie search, details and watched list operations.
  - publicHost: The public base URL of the service.

Returns:
  - A pointer to the newly created App instance.
*/
func NewApp(searchService SearchService, publicHost string) (*App, error) {
	return &App{
		SearchService: searchService,
		PublicHost:    publicHost,
	}, nil
}

/*
SearchHandler handles one-shot movie search requests.

This method runs the query through the search service and writes the matching movies as a JSON response.
*/
func (a *App) SearchHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "SearchHandler")

	query := r.URL.Query().Get("s")
	span.SetAttributes(attribute.String("params.s", query))

	results, err := a.SearchService.Search(ctx, query)
	if errors.Is(err, omdb.ErrMovieNotFound) {
		common.Log.InfoContext(ctx, "No movies found", "query", query)
		writeJSONError(ctx, w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to SearchService.Search", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	response := struct {
		Results []omdb.SearchItem `json:"results"`
	}{Results: results}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(response); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
		span.RecordError(err)
		return
	}
}

/*
TitleHandler handles requests for the full details of a single title.

This method validates the IMDb ID, fetches the title from the search service and writes it as a JSON response.
*/
func (a *App) TitleHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "TitleHandler")

	paramsID := chi.URLParam(r, "id")
	if err := common.ValidateIMDBTitleID(paramsID); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateIMDBTitleID", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("param.id", paramsID))

	title, err := a.SearchService.GetTitle(ctx, paramsID)
	if errors.Is(err, omdb.ErrMovieNotFound) {
		writeJSONError(ctx, w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to SearchService.GetTitle", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(title); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
		span.RecordError(err)
		return
	}
}

/*
WatchedListHandler handles requests for the watched list.

This method writes the watched list as a JSON response, most recently added first.
*/
func (a *App) WatchedListHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "WatchedListHandler")

	movies, err := a.SearchService.ListWatched(ctx)
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to SearchService.ListWatched", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	response := struct {
		Watched []watched.Movie `json:"watched"`
	}{Watched: movies}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(response); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
		span.RecordError(err)
		return
	}
}

/*
AddWatchedHandler puts a title on the watched list with the user's star rating.

This method validates the IMDb ID and the rating, stores the movie and writes the stored entry as a JSON response.
*/
func (a *App) AddWatchedHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "AddWatchedHandler")

	paramsID := chi.URLParam(r, "id")
	if err := common.ValidateIMDBTitleID(paramsID); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateIMDBTitleID", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("param.id", paramsID))

	body := struct {
		Rating int `json:"rating"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.Log.WarnContext(ctx, "Failed to json.NewDecoder.Decode", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := common.ValidateUserRating(body.Rating); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateUserRating", "err", err)
		span.RecordError(err)
		writeJSONError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	movie, err := a.SearchService.AddWatched(ctx, paramsID, body.Rating)
	if errors.Is(err, omdb.ErrMovieNotFound) {
		writeJSONError(ctx, w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to SearchService.AddWatched", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(movie); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
		span.RecordError(err)
		return
	}
}

/*
RemoveWatchedHandler removes a title from the watched list.
*/
func (a *App) RemoveWatchedHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "RemoveWatchedHandler")

	paramsID := chi.URLParam(r, "id")
	if err := common.ValidateIMDBTitleID(paramsID); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateIMDBTitleID", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("param.id", paramsID))

	if err := a.SearchService.RemoveWatched(ctx, paramsID); err != nil {
		common.Log.ErrorContext(ctx, "Failed to SearchService.RemoveWatched", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

/*
RefreshWatchedHandler re-fetches the current IMDb ratings of the watched list.
*/
func (a *App) RefreshWatchedHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "RefreshWatchedHandler")

	movies, err := a.SearchService.RefreshWatched(ctx)
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to SearchService.RefreshWatched", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	response := struct {
		Watched []watched.Movie `json:"watched"`
	}{Watched: movies}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(response); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
		span.RecordError(err)
		return
	}
}

// WebsocketHandler handles WebSocket connections
func (a *App) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	common.Log.DebugContext(ctx, "WebsocketHandler")

	a.SearchService.ServeHTTP(w, r)
}

func writeJSONError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(map[string]string{"error": message})
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
	}
}
