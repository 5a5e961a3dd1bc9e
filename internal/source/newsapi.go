package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/abhonsle123/ripplefx/internal/model"
)

const defaultNewsAPIBaseURL = "https://newsapi.org/v2"

// NewsAPIClient fetches top headlines from newsapi.org.
type NewsAPIClient struct {
	apiKey   string
	baseURL  string
	pageSize int
	client   *http.Client
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
	} `json:"articles"`
}

// NewNewsAPIClient creates a NewsAPI adapter.
func NewNewsAPIClient(apiKey string, pageSize int) *NewsAPIClient {
	return &NewsAPIClient{
		apiKey:   apiKey,
		baseURL:  defaultNewsAPIBaseURL,
		pageSize: pageSize,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch returns the latest headlines normalized to Articles.
func (c *NewsAPIClient) Fetch(ctx context.Context) ([]model.Article, error) {
	url := fmt.Sprintf(
		"%s/top-headlines?apiKey=%s&category=business&language=en&pageSize=%d",
		c.baseURL, c.apiKey, c.pageSize,
	)

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
		return nil, fmt.Errorf("newsapi returned status %d", resp.StatusCode)
	}

	var apiResp newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if apiResp.Status != "ok" {
		return nil, fmt.Errorf("newsapi error: %s", apiResp.Status)
	}

	articles := make([]model.Article, 0, len(apiResp.Articles))
	for _, a := range apiResp.Articles {
		if a.Title == "" {
			continue
		}

		articles = append(articles, model.Article{
			Title:       a.Title,
			Description: a.Description,
			SourceURL:   a.URL,
			SourceAPI:   model.SourceNewsAPI,
		})
	}

	return articles, nil
}

// Name returns the adapter identifier used in logs.
func (c *NewsAPIClient) Name() string {
	return string(model.SourceNewsAPI)
}
