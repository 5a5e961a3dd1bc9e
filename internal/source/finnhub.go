package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/abhonsle123/ripplefx/internal/model"
)

const defaultFinnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubClient fetches general market news from finnhub.io.
type FinnhubClient struct {
	apiKey  string
	baseURL string
	limit   int
	client  *http.Client
}

type finnhubArticle struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// NewFinnhubClient creates a Finnhub adapter.
func NewFinnhubClient(apiKey string, limit int) *FinnhubClient {
	return &FinnhubClient{
		apiKey:  apiKey,
		baseURL: defaultFinnhubBaseURL,
		limit:   limit,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch returns the latest general news normalized to Articles.
func (c *FinnhubClient) Fetch(ctx context.Context) ([]model.Article, error) {
	url := fmt.Sprintf("%s/news?category=general&token=%s", c.baseURL, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("finnhub returned status %d", resp.StatusCode)
	}

	var raw []finnhubArticle
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if c.limit > 0 && len(raw) > c.limit {
		raw = raw[:c.limit]
	}

	articles := make([]model.Article, 0, len(raw))
	for _, a := range raw {
		if a.Headline == "" {
			continue
		}

		articles = append(articles, model.Article{
			Title:       a.Headline,
			Description: a.Summary,
			SourceURL:   a.URL,
			SourceAPI:   model.SourceFinnhubAPI,
		})
	}

	return articles, nil
}

// Name returns the adapter identifier used in logs.
func (c *FinnhubClient) Name() string {
	return string(model.SourceFinnhubAPI)
}
