package backtest

import (
	"fmt"
	"strings"

	"github.com/mauv0809/portfolio-backtest/internal/models"
)

const (
	maxAllocations  = 10
	maxExpenseRatio = 0.05
	maxRiskFreeRate = 0.20
)

// DefaultRiskFreeRate is used when a request omits the rate.
const DefaultRiskFreeRate = 0.02

// Validate fail-fast checks a request before any market data is fetched.
// All failures are ValidationError.
func Validate(req models.SimulationRequest) error {
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return &ValidationError{Field: "date range", Reason: "start and end dates are required"}
	}
	if !req.EndDate.After(req.StartDate) {
		return &ValidationError{Field: "date range", Reason: "end date must be after start date"}
	}
	if req.InitialAmount < 0 {
		return &ValidationError{Field: "initial_amount", Reason: "must not be negative"}
	}
	if req.MonthlySalary < 0 {
		return &ValidationError{Field: "monthly_salary", Reason: "must not be negative"}
	}
	if req.MonthlyLivingCost < 0 {
		return &ValidationError{Field: "monthly_living_cost", Reason: "must not be negative"}
	}
	if req.MonthlyContribution < 0 {
		return &ValidationError{Field: "monthly_contribution", Reason: "must not be negative"}
	}
	if req.MinimumCashReserve < 0 {
		return &ValidationError{Field: "minimum_cash_reserve", Reason: "must not be negative"}
	}
	if !req.DividendPolicy.Valid() {
		return &ValidationError{Field: "dividend_policy", Reason: fmt.Sprintf("must be %q or %q", models.DividendReinvest, models.DividendToCash)}
	}
	if req.RiskFreeRate < 0 || req.RiskFreeRate > maxRiskFreeRate {
		return &ValidationError{Field: "risk_free_rate", Reason: "must be between 0 and 0.20"}
	}
	if strings.TrimSpace(req.BenchmarkTicker) == "" {
		return &ValidationError{Field: "benchmark_ticker", Reason: "is required"}
	}
	if req.BenchmarkTicker != strings.TrimSpace(req.BenchmarkTicker) {
		return &ValidationError{Field: "benchmark_ticker", Reason: "must not have surrounding whitespace"}
	}

	if len(req.Allocations) == 0 {
		return &ValidationError{Field: "allocations", Reason: "at least one allocation is required"}
	}
	if len(req.Allocations) > maxAllocations {
		return &ValidationError{Field: "allocations", Reason: fmt.Sprintf("at most %d allocations are allowed", maxAllocations)}
	}

	seen := make(map[string]bool, len(req.Allocations))
	weightSum := 0.0
	for _, a := range req.Allocations {
		// The engine and the price source both key on the raw string, so the
		// raw string is what gets validated.
		ticker := a.Ticker
		if strings.TrimSpace(ticker) == "" {
			return &ValidationError{Field: "allocations", Reason: "allocation ticker is required"}
		}
		if ticker != strings.TrimSpace(ticker) {
			return &ValidationError{Field: "allocations", Reason: fmt.Sprintf("%q: ticker must not have surrounding whitespace", ticker)}
		}
		if seen[ticker] {
			return &ValidationError{Field: "allocations", Reason: fmt.Sprintf("duplicate ticker %s", ticker)}
		}
		seen[ticker] = true
		if a.TargetWeight < 0 || a.TargetWeight > 100 {
			return &ValidationError{Field: "allocations", Reason: fmt.Sprintf("%s: target weight must be between 0 and 100", ticker)}
		}
		if a.ExpenseRatio < 0 || a.ExpenseRatio > maxExpenseRatio {
			return &ValidationError{Field: "allocations", Reason: fmt.Sprintf("%s: expense ratio must be between 0 and 0.05", ticker)}
		}
		weightSum += a.TargetWeight
	}
	if weightSum <= 0 {
		return &ValidationError{Field: "allocations", Reason: "total target weight must be positive"}
	}
	if weightSum > 100 {
		return &ValidationError{Field: "allocations", Reason: fmt.Sprintf("total target weight %.2f exceeds 100", weightSum)}
	}

	return nil
}
