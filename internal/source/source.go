// Package source contains the upstream feed adapters. Each adapter fetches
// raw articles from one provider and converts them to the normalized Article
// shape; provider failures are logged and surface as an empty batch so a
// single broken feed never blocks an ingestion run.
package source

import (
	"context"
	"sync"

	"github.com/wb-go/wbf/zlog"

	"github.com/abhonsle123/ripplefx/internal/model"
)

// Adapter pulls fresh articles from one upstream provider.
type Adapter interface {
	Fetch(ctx context.Context) ([]model.Article, error)
	Name() string
}

// FetchAll queries every adapter concurrently and merges the results.
// Adapter errors are logged and contribute zero articles.
func FetchAll(ctx context.Context, adapters []Adapter) []model.Article {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		all []model.Article
	)

	wg.Add(len(adapters))
	for _, a := range adapters {
		go func(a Adapter) {
			defer wg.Done()

			articles, err := a.Fetch(ctx)
			if err != nil {
				zlog.Logger.Error().Err(err).Str("source", a.Name()).Msg("failed to fetch articles")
				return
			}

			mu.Lock()
			all = append(all, articles...)
			mu.Unlock()
		}(a)
	}
	wg.Wait()

	return all
}
