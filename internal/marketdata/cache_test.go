package marketdata

import (
	"testing"
	"time"

	"github.com/mauv0809/portfolio-backtest/internal/models"
)

func TestCacheSetGet(t *testing.T) {
	cache := NewCache(time.Minute)
	series := []models.PricePoint{
		{Date: date("2024-01-02"), Close: 100, AdjClose: 100, SplitRatio: 1},
		{Date: date("2024-01-03"), Close: 101, AdjClose: 101, SplitRatio: 1},
	}
	cache.Set("AAPL|2024-01-02|2024-01-03", series)

	got, ok := cache.Get("AAPL|2024-01-02|2024-01-03")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 2 || got[0].Close != 100 || got[1].Close != 101 {
		t.Errorf("unexpected cached series: %+v", got)
	}

	if _, ok := cache.Get("MSFT|2024-01-02|2024-01-03"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestCacheReturnsCopies(t *testing.T) {
	cache := NewCache(time.Minute)
	series := []models.PricePoint{{Date: date("2024-01-02"), Close: 100}}
	cache.Set("k", series)

	series[0].Close = 1
	first, _ := cache.Get("k")
	if first[0].Close != 100 {
		t.Errorf("stored series shares memory with caller slice: %v", first[0].Close)
	}

	first[0].Close = 2
	second, _ := cache.Get("k")
	if second[0].Close != 100 {
		t.Errorf("returned series shares memory with cache: %v", second[0].Close)
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := NewCache(10 * time.Millisecond)
	cache.Set("k", []models.PricePoint{{Close: 100}})

	time.Sleep(25 * time.Millisecond)
	if _, ok := cache.Get("k"); ok {
		t.Error("expected entry to expire")
	}
}
