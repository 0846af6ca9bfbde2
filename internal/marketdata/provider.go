package marketdata

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mauv0809/portfolio-backtest/internal/models"
)

// Provider wraps the client with a TTL cache.
type Provider struct {
	client *Client
	cache  *Cache
}

// NewProvider creates a provider backed by client with cache in front.
func NewProvider(client *Client, cache *Cache) *Provider {
	return &Provider{client: client, cache: cache}
}

// DailyHistory serves a ticker's daily series from cache when fresh,
// fetching and caching it otherwise.
func (p *Provider) DailyHistory(ctx context.Context, ticker string, start, end time.Time) ([]models.PricePoint, error) {
	key := fmt.Sprintf("%s|%s|%s", ticker, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if points, ok := p.cache.Get(key); ok {
		return points, nil
	}

	points, err := p.client.DailyHistory(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	log.Printf("Fetched %d trading days for %s", len(points), ticker)

	p.cache.Set(key, points)
	return points, nil
}
