package backtest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mauv0809/portfolio-backtest/internal/models"
)

// PriceSource supplies daily price history for a ticker over an inclusive
// date range. It owns its own retries and caching; the service never retries.
type PriceSource interface {
	DailyHistory(ctx context.Context, ticker string, start, end time.Time) ([]models.PricePoint, error)
}

// Service runs validated simulation requests against a price source and
// assembles the full result.
type Service struct {
	prices PriceSource
}

// NewService creates a new backtest service.
func NewService(prices PriceSource) *Service {
	return &Service{prices: prices}
}

// Run executes one simulation end to end: validate, fetch every series,
// replay the day loop, derive metrics. Market-data and insufficient-data
// failures abort with no partial result.
func (s *Service) Run(ctx context.Context, req models.SimulationRequest) (*models.SimulationResult, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	series, err := s.fetchAll(ctx, req)
	if err != nil {
		return nil, err
	}

	engine, err := NewEngine(req, series)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	outcome, err := engine.Run()
	if err != nil {
		return nil, err
	}
	log.Printf("Simulated %d trading days in %v", len(outcome.Timeline), time.Since(start))

	return assembleResult(req, outcome), nil
}

// BenchmarkSummary fetches a single ticker and summarizes it without any
// portfolio mechanics.
func (s *Service) BenchmarkSummary(ctx context.Context, ticker string, start, end time.Time, riskFreeRate float64) (*models.BenchmarkSummary, error) {
	if !end.After(start) {
		return nil, &ValidationError{Field: "date range", Reason: "end date must be after start date"}
	}
	points, err := s.prices.DailyHistory(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	return BuildBenchmarkSummary(ticker, points, riskFreeRate)
}

// fetchAll retrieves every required ticker's series concurrently. The first
// failure wins; partial data is discarded.
func (s *Service) fetchAll(ctx context.Context, req models.SimulationRequest) (map[string][]models.PricePoint, error) {
	tickers := make([]string, 0, len(req.Allocations)+1)
	seen := map[string]bool{}
	for _, a := range req.Allocations {
		if !seen[a.Ticker] {
			seen[a.Ticker] = true
			tickers = append(tickers, a.Ticker)
		}
	}
	if !seen[req.BenchmarkTicker] {
		tickers = append(tickers, req.BenchmarkTicker)
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		series   = make(map[string][]models.PricePoint, len(tickers))
		firstErr error
	)
	for _, ticker := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			points, err := s.prices.DailyHistory(ctx, ticker, req.StartDate, req.EndDate)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("fetching %s: %w", ticker, err)
				}
				return
			}
			series[ticker] = points
		}(ticker)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return series, nil
}

// assembleResult derives the statistics layer from a finished run.
func assembleResult(req models.SimulationRequest, outcome *Outcome) *models.SimulationResult {
	timeline := outcome.Timeline
	n := len(timeline)

	dates := make([]time.Time, n)
	portValues := make([]float64, n)
	benchValues := make([]float64, n)
	flows := make([]float64, n)
	for i, p := range timeline {
		dates[i] = p.Date
		portValues[i] = p.PortfolioValue
		benchValues[i] = p.BenchmarkValue
		flows[i] = p.NetFlow
	}

	last := timeline[n-1]
	totalInvested := last.InvestedCapital

	portMetrics := ComputeMetrics(dates, portValues, flows, totalInvested, req.RiskFreeRate)
	benchMetrics := ComputeMetrics(dates, benchValues, flows, totalInvested, req.RiskFreeRate)

	portReturns := TimeWeightedDailyReturns(portValues, flows)
	benchReturns := TimeWeightedDailyReturns(benchValues, flows)

	portDD := DrawdownSeries(portValues)
	benchDD := DrawdownSeries(benchValues)
	drawdown := make([]models.DrawdownPoint, n)
	for i := range timeline {
		drawdown[i] = models.DrawdownPoint{
			Date:      dates[i],
			Portfolio: portDD[i],
			Benchmark: benchDD[i],
		}
	}

	return &models.SimulationResult{
		Timeline:      timeline,
		Portfolio:     portMetrics,
		Benchmark:     benchMetrics,
		YearlyReturns: YearlyReturns(dates, portReturns, benchReturns),
		Drawdown:      drawdown,
		Cashflow: models.CashflowBreakdown{
			InitialPrincipal: req.InitialAmount,
			Contributions:    outcome.Contributions,
			TotalInvested:    totalInvested,
			Gains:            last.PortfolioValue - totalInvested,
			EndingCash:       last.CashValue,
			EndingStockValue: last.StockValue,
		},
	}
}
