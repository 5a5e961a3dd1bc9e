package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhonsle123/ripplefx/internal/model"
)

func TestNewsAPIClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/top-headlines", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"articles": [
				{"title": "Fed Raises Rates", "description": "Surprise hike", "url": "https://example.com/fed"},
				{"title": "", "description": "no title, dropped", "url": "https://example.com/none"}
			]
		}`))
	}))
	defer srv.Close()

	c := NewNewsAPIClient("test-key", 10)
	c.baseURL = srv.URL

	articles, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Fed Raises Rates", articles[0].Title)
	assert.Equal(t, model.SourceNewsAPI, articles[0].SourceAPI)
}

func TestNewsAPIClient_Fetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewNewsAPIClient("test-key", 10)
	c.baseURL = srv.URL

	_, err := c.Fetch(context.Background())
	assert.Error(t, err)
}

func TestFinnhubClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"headline": "Markets tumble", "summary": "Broad selloff", "url": "https://example.com/a"},
			{"headline": "Oil spikes", "summary": "Supply shock", "url": "https://example.com/b"},
			{"headline": "Third item", "summary": "Over the limit", "url": "https://example.com/c"}
		]`))
	}))
	defer srv.Close()

	c := NewFinnhubClient("test-key", 2)
	c.baseURL = srv.URL

	articles, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, model.SourceFinnhubAPI, articles[0].SourceAPI)
}

type stubAdapter struct {
	name     string
	articles []model.Article
	err      error
}

func (s *stubAdapter) Fetch(_ context.Context) ([]model.Article, error) {
	return s.articles, s.err
}

func (s *stubAdapter) Name() string { return s.name }

func TestFetchAll_FailingAdapterDoesNotBlockOthers(t *testing.T) {
	ok := &stubAdapter{
		name:     "ok",
		articles: []model.Article{{Title: "A"}, {Title: "B"}},
	}
	broken := &stubAdapter{name: "broken", err: errors.New("rate limited")}

	all := FetchAll(context.Background(), []Adapter{ok, broken})
	assert.Len(t, all, 2)
}
