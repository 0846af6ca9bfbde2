package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DividendPolicy controls what the simulation does with dividend payouts.
type DividendPolicy string

const (
	DividendReinvest DividendPolicy = "reinvest" // buy more shares of the paying asset
	DividendToCash   DividendPolicy = "cash"     // accumulate payouts as cash
)

// Valid reports whether p is one of the supported policies.
func (p DividendPolicy) Valid() bool {
	return p == DividendReinvest || p == DividendToCash
}

// PricePoint is one trading day of market data for a single ticker.
// Dividend is the per-share cash amount paid that day (0 if none) and
// SplitRatio is the share multiplier effective that day (1 if none).
type PricePoint struct {
	Date       time.Time `json:"date"`
	Close      float64   `json:"close"`
	AdjClose   float64   `json:"adj_close"`
	Dividend   float64   `json:"dividend"`
	SplitRatio float64   `json:"split_ratio"`
}

// Allocation is one target position in a simulated portfolio.
// TargetWeight is a percentage (0-100); ExpenseRatio is an annual
// fraction (0-0.05) applied as daily drag.
type Allocation struct {
	Ticker       string  `json:"ticker"`
	TargetWeight float64 `json:"target_weight"`
	ExpenseRatio float64 `json:"expense_ratio"`
}

// SimulationRequest is the immutable input to one backtest run.
type SimulationRequest struct {
	StartDate           time.Time      `json:"start_date"`
	EndDate             time.Time      `json:"end_date"`
	InitialAmount       float64        `json:"initial_amount"`
	MonthlySalary       float64        `json:"monthly_salary"`
	MonthlyLivingCost   float64        `json:"monthly_living_cost"`
	MonthlyContribution float64        `json:"monthly_contribution"`
	MinimumCashReserve  float64        `json:"minimum_cash_reserve"`
	DividendPolicy      DividendPolicy `json:"dividend_policy"`
	Allocations         []Allocation   `json:"allocations"`
	BenchmarkTicker     string         `json:"benchmark_ticker"`
	RiskFreeRate        float64        `json:"risk_free_rate"`
}

// TimelinePoint is one trading day of simulation output.
// NetFlow is the external cash injected on that day (initial amount
// plus net salary), InvestedCapital the cumulative total so far.
type TimelinePoint struct {
	Date            time.Time `json:"date"`
	StockValue      float64   `json:"stock_value"`
	CashValue       float64   `json:"cash_value"`
	PortfolioValue  float64   `json:"portfolio_value"`
	BenchmarkValue  float64   `json:"benchmark_value"`
	InvestedCapital float64   `json:"invested_capital"`
	NetFlow         float64   `json:"net_flow"`
}

// PerformanceMetrics are the risk/return statistics derived from a value series.
type PerformanceMetrics struct {
	EndingValue          float64 `json:"ending_value"`
	TotalInvested        float64 `json:"total_invested"`
	Gains                float64 `json:"gains"`
	CumulativeReturn     float64 `json:"cumulative_return"`
	Cagr                 float64 `json:"cagr"`
	GrowthCagr           float64 `json:"growth_cagr"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
}

// YearlyReturn is the compounded return of one calendar year for the
// portfolio and its benchmark.
type YearlyReturn struct {
	Year      int     `json:"year"`
	Portfolio float64 `json:"portfolio"`
	Benchmark float64 `json:"benchmark"`
}

// DrawdownPoint is the distance from the running peak on one trading day.
type DrawdownPoint struct {
	Date      time.Time `json:"date"`
	Portfolio float64   `json:"portfolio"`
	Benchmark float64   `json:"benchmark"`
}

// CashflowBreakdown splits the money that entered a simulation from the
// value it ended with.
type CashflowBreakdown struct {
	InitialPrincipal float64 `json:"initial_principal"`
	Contributions    float64 `json:"contributions"`
	TotalInvested    float64 `json:"total_invested"`
	Gains            float64 `json:"gains"`
	EndingCash       float64 `json:"ending_cash"`
	EndingStockValue float64 `json:"ending_stock_value"`
}

// SimulationResult is the final output of one backtest run.
type SimulationResult struct {
	Timeline      []TimelinePoint    `json:"timeline"`
	Portfolio     PerformanceMetrics `json:"portfolio"`
	Benchmark     PerformanceMetrics `json:"benchmark"`
	YearlyReturns []YearlyReturn     `json:"yearly_returns"`
	Drawdown      []DrawdownPoint    `json:"drawdown"`
	Cashflow      CashflowBreakdown  `json:"cashflow"`
}

// BenchmarkSummary describes a single ticker over a date range without
// any portfolio mechanics.
type BenchmarkSummary struct {
	Ticker               string    `json:"ticker"`
	StartDate            time.Time `json:"start_date"`
	EndDate              time.Time `json:"end_date"`
	CumulativeReturn     float64   `json:"cumulative_return"`
	Cagr                 float64   `json:"cagr"`
	MaxDrawdown          float64   `json:"max_drawdown"`
	AnnualizedVolatility float64   `json:"annualized_volatility"`
	SharpeRatio          float64   `json:"sharpe_ratio"`
}

// Scenario is a saved simulation request. Money fields are stored as
// NUMERIC in the database, hence the decimal types.
type Scenario struct {
	ID                  uuid.UUID       `json:"id"`
	Name                string          `json:"name"`
	StartDate           time.Time       `json:"start_date"`
	EndDate             time.Time       `json:"end_date"`
	InitialAmount       decimal.Decimal `json:"initial_amount"`
	MonthlySalary       decimal.Decimal `json:"monthly_salary"`
	MonthlyLivingCost   decimal.Decimal `json:"monthly_living_cost"`
	MonthlyContribution decimal.Decimal `json:"monthly_contribution"`
	MinimumCashReserve  decimal.Decimal `json:"minimum_cash_reserve"`
	DividendPolicy      DividendPolicy  `json:"dividend_policy"`
	Allocations         []Allocation    `json:"allocations"`
	BenchmarkTicker     string          `json:"benchmark_ticker"`
	RiskFreeRate        float64         `json:"risk_free_rate"`
	CreatedAt           time.Time       `json:"created_at"`
}

// ToRequest converts a saved scenario back into a runnable request.
func (s *Scenario) ToRequest() SimulationRequest {
	return SimulationRequest{
		StartDate:           s.StartDate,
		EndDate:             s.EndDate,
		InitialAmount:       s.InitialAmount.InexactFloat64(),
		MonthlySalary:       s.MonthlySalary.InexactFloat64(),
		MonthlyLivingCost:   s.MonthlyLivingCost.InexactFloat64(),
		MonthlyContribution: s.MonthlyContribution.InexactFloat64(),
		MinimumCashReserve:  s.MinimumCashReserve.InexactFloat64(),
		DividendPolicy:      s.DividendPolicy,
		Allocations:         s.Allocations,
		BenchmarkTicker:     s.BenchmarkTicker,
		RiskFreeRate:        s.RiskFreeRate,
	}
}

// ScenarioFromRequest builds a storable scenario from a validated request.
func ScenarioFromRequest(name string, req SimulationRequest) *Scenario {
	return &Scenario{
		Name:                name,
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
		InitialAmount:       decimal.NewFromFloat(req.InitialAmount),
		MonthlySalary:       decimal.NewFromFloat(req.MonthlySalary),
		MonthlyLivingCost:   decimal.NewFromFloat(req.MonthlyLivingCost),
		MonthlyContribution: decimal.NewFromFloat(req.MonthlyContribution),
		MinimumCashReserve:  decimal.NewFromFloat(req.MinimumCashReserve),
		DividendPolicy:      req.DividendPolicy,
		Allocations:         req.Allocations,
		BenchmarkTicker:     req.BenchmarkTicker,
		RiskFreeRate:        req.RiskFreeRate,
	}
}
