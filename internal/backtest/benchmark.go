package backtest

import (
	"math"

	"github.com/mauv0809/portfolio-backtest/internal/models"
)

// SimpleDailyReturns computes plain day-over-day returns of an adjusted
// close series, with no flow adjustment. A non-positive base yields 0.
func SimpleDailyReturns(adjCloses []float64) []float64 {
	if len(adjCloses) < 2 {
		return nil
	}

	returns := make([]float64, len(adjCloses)-1)
	for t := 1; t < len(adjCloses); t++ {
		prev := adjCloses[t-1]
		if prev <= 0 {
			continue
		}
		r := adjCloses[t]/prev - 1
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		returns[t-1] = r
	}
	return returns
}

// BuildBenchmarkSummary summarizes a single ticker's adjusted close series
// without any portfolio mechanics. Fewer than 2 points is insufficient data.
func BuildBenchmarkSummary(ticker string, points []models.PricePoint, riskFreeRate float64) (*models.BenchmarkSummary, error) {
	if len(points) < 2 {
		return nil, ErrInsufficientData
	}

	adjCloses := make([]float64, len(points))
	for i, p := range points {
		adjCloses[i] = p.AdjClose
	}

	first := adjCloses[0]
	last := adjCloses[len(adjCloses)-1]

	summary := &models.BenchmarkSummary{
		Ticker:    ticker,
		StartDate: points[0].Date,
		EndDate:   points[len(points)-1].Date,
	}
	if first > 0 {
		summary.CumulativeReturn = last/first - 1
	}

	years := YearFraction(summary.StartDate, summary.EndDate)
	summary.Cagr = Cagr(first, last, years)

	returns := SimpleDailyReturns(adjCloses)
	summary.AnnualizedVolatility = AnnualizedVolatility(returns)
	summary.SharpeRatio = SharpeRatio(summary.Cagr, riskFreeRate, summary.AnnualizedVolatility)
	summary.MaxDrawdown = MaxDrawdown(adjCloses)

	return summary, nil
}
