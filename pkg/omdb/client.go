package omdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nazarchykur/usepopcorn/pkg/transport"
	"go.opentelemetry.io/otel/trace"
)

type client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a new instance of the OMDb service client.
func NewClient(baseURL, apiKey string) Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxConnsPerHost = 100
	t.MaxIdleConnsPerHost = 100

	rt := transport.NewModifyHeadersRoundTripper(t,
		transport.WithAccept("application/json"),
		transport.WithUserAgent("usepopcorn/1.0"),
	)

	return &client{
		httpClient: &http.Client{
			Timeout:   time.Second * 10,
			Transport: rt,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Search fetches the movies matching the given query.
func (c *client) Search(ctx context.Context, query string) ([]SearchItem, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "omdb.Client.Search")
	defer span.End()

	envelope := struct {
		Response string       `json:"Response"`
		Error    string       `json:"Error"`
		Search   []SearchItem `json:"Search"`
	}{}

	if err := c.get(ctx, url.Values{"s": []string{query}}, &envelope); err != nil {
		return nil, err
	}

	if envelope.Response == "False" {
		return nil, ErrMovieNotFound
	}

	return envelope.Search, nil
}

// GetTitle fetches the full details of a title by its IMDb ID.
func (c *client) GetTitle(ctx context.Context, imdbID string) (*Title, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "omdb.Client.GetTitle")
	defer span.End()

	payload := struct {
		Title
		Response string `json:"Response"`
		Error    string `json:"Error"`
	}{}

	if err := c.get(ctx, url.Values{"i": []string{imdbID}, "plot": []string{"full"}}, &payload); err != nil {
		return nil, err
	}

	if payload.Response == "False" {
		return nil, ErrMovieNotFound
	}

	return &payload.Title, nil
}

func (c *client) get(ctx context.Context, params url.Values, out any) error {

	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to http.NewRequestWithContext: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to http.Client.Do: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &StatusError{Code: res.StatusCode}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to json.NewDecoder.Decode: %w", err)
	}

	return nil
}
