package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/mauv0809/portfolio-backtest/internal/models"
)

const tradingDaysPerYear = 252.0

// TimeWeightedDailyReturns computes flow-adjusted day-over-day returns:
// (V[t] - V[t-1] - flow[t]) / V[t-1]. Entries with a non-positive base or a
// non-finite result are reported as 0 so degenerate series stay well-defined.
// For an N-point series the result has N-1 entries.
func TimeWeightedDailyReturns(values, flows []float64) []float64 {
	if len(values) < 2 {
		return nil
	}

	returns := make([]float64, len(values)-1)
	for t := 1; t < len(values); t++ {
		prev := values[t-1]
		if prev <= 0 {
			continue
		}
		flow := 0.0
		if t < len(flows) {
			flow = flows[t]
		}
		r := (values[t] - prev - flow) / prev
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		returns[t-1] = r
	}
	return returns
}

// Cagr computes the compound annual growth rate from start to end over the
// given number of years. Non-positive start, end, or years yields 0.
func Cagr(start, end, years float64) float64 {
	if start <= 0 || end <= 0 || years <= 0 {
		return 0
	}
	return math.Pow(end/start, 1/years) - 1
}

// AnnualizedVolatility is the sample standard deviation of daily returns
// scaled by sqrt(252). Fewer than 2 returns yields 0.
func AnnualizedVolatility(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(n)

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(n - 1) // sample variance

	return math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
}

// SharpeRatio is the annualized excess return per unit of volatility;
// 0 when volatility is not positive.
func SharpeRatio(annualReturn, riskFreeRate, volatility float64) float64 {
	if volatility <= 0 {
		return 0
	}
	return (annualReturn - riskFreeRate) / volatility
}

// MaxDrawdown returns the most negative distance from the running peak of a
// raw value series, e.g. -0.25 for a 25% decline.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak == 0 {
			continue
		}
		dd := v/peak - 1
		if dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// DrawdownSeries returns the per-point distance from the running peak.
func DrawdownSeries(values []float64) []float64 {
	series := make([]float64, len(values))
	if len(values) == 0 {
		return series
	}

	peak := values[0]
	for i, v := range values {
		if v > peak {
			peak = v
		}
		if peak != 0 {
			series[i] = v/peak - 1
		}
	}
	return series
}

// YearFraction is the elapsed time from start to end in 365.25-day years;
// 0 when end is not after start.
func YearFraction(start, end time.Time) float64 {
	if !end.After(start) {
		return 0
	}
	return end.Sub(start).Hours() / 24 / 365.25
}

// compoundReturns multiplies (1+r) across the series and subtracts 1.
func compoundReturns(returns []float64) float64 {
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return growth - 1
}

// YearlyReturns compounds the daily return pairs of portfolio and benchmark
// within each calendar year. A day pair belongs to the year of its later
// date. Years present on only one side default the other to 0; the result
// is sorted ascending by year.
func YearlyReturns(dates []time.Time, portfolio, benchmark []float64) []models.YearlyReturn {
	portByYear := groupByYear(dates, portfolio)
	benchByYear := groupByYear(dates, benchmark)

	years := make(map[int]bool, len(portByYear))
	for y := range portByYear {
		years[y] = true
	}
	for y := range benchByYear {
		years[y] = true
	}

	result := make([]models.YearlyReturn, 0, len(years))
	for y := range years {
		result = append(result, models.YearlyReturn{
			Year:      y,
			Portfolio: portByYear[y],
			Benchmark: benchByYear[y],
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Year < result[j].Year })
	return result
}

// groupByYear compounds daily returns keyed by the calendar year of the
// later date in each day pair. returns[i] covers dates[i] -> dates[i+1].
func groupByYear(dates []time.Time, returns []float64) map[int]float64 {
	growth := make(map[int]float64)
	for i, r := range returns {
		if i+1 >= len(dates) {
			break
		}
		year := dates[i+1].Year()
		if _, ok := growth[year]; !ok {
			growth[year] = 1.0
		}
		growth[year] *= 1 + r
	}

	byYear := make(map[int]float64, len(growth))
	for y, g := range growth {
		byYear[y] = g - 1
	}
	return byYear
}

// ComputeMetrics aggregates the performance statistics of one value series.
// totalInvested is the cumulative external capital behind the series; the
// flow series removes contribution timing from the daily returns.
func ComputeMetrics(dates []time.Time, values, flows []float64, totalInvested, riskFreeRate float64) models.PerformanceMetrics {
	var m models.PerformanceMetrics
	if len(values) == 0 {
		return m
	}

	m.EndingValue = values[len(values)-1]
	m.TotalInvested = totalInvested
	m.Gains = m.EndingValue - totalInvested
	if totalInvested > 0 {
		m.CumulativeReturn = m.EndingValue/totalInvested - 1
	}

	years := YearFraction(dates[0], dates[len(dates)-1])
	m.Cagr = Cagr(totalInvested, m.EndingValue, years)

	returns := TimeWeightedDailyReturns(values, flows)
	// Growth CAGR measures pure compounding with contribution timing removed.
	m.GrowthCagr = Cagr(1, 1+compoundReturns(returns), years)
	m.AnnualizedVolatility = AnnualizedVolatility(returns)
	m.SharpeRatio = SharpeRatio(m.GrowthCagr, riskFreeRate, m.AnnualizedVolatility)
	m.MaxDrawdown = MaxDrawdown(values)

	return m
}
