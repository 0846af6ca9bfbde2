package handlers

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/portfolio-backtest/internal/backtest"
	"github.com/mauv0809/portfolio-backtest/internal/models"
)

const dateLayout = "2006-01-02"

// simulationPayload is the wire form of a simulation request. Dates travel
// as YYYY-MM-DD strings; the risk-free rate is optional.
type simulationPayload struct {
	StartDate           string              `json:"start_date"`
	EndDate             string              `json:"end_date"`
	InitialAmount       float64             `json:"initial_amount"`
	MonthlySalary       float64             `json:"monthly_salary"`
	MonthlyLivingCost   float64             `json:"monthly_living_cost"`
	MonthlyContribution float64             `json:"monthly_contribution"`
	MinimumCashReserve  float64             `json:"minimum_cash_reserve"`
	DividendPolicy      string              `json:"dividend_policy"`
	Allocations         []models.Allocation `json:"allocations"`
	BenchmarkTicker     string              `json:"benchmark_ticker"`
	RiskFreeRate        *float64            `json:"risk_free_rate"`
}

func (p *simulationPayload) toRequest() (models.SimulationRequest, error) {
	var req models.SimulationRequest

	start, err := time.Parse(dateLayout, p.StartDate)
	if err != nil {
		return req, &backtest.ValidationError{Field: "start_date", Reason: "must be YYYY-MM-DD"}
	}
	end, err := time.Parse(dateLayout, p.EndDate)
	if err != nil {
		return req, &backtest.ValidationError{Field: "end_date", Reason: "must be YYYY-MM-DD"}
	}

	policy := models.DividendPolicy(p.DividendPolicy)
	if p.DividendPolicy == "" {
		policy = models.DividendReinvest
	}

	riskFree := backtest.DefaultRiskFreeRate
	if p.RiskFreeRate != nil {
		riskFree = *p.RiskFreeRate
	}

	return models.SimulationRequest{
		StartDate:           start,
		EndDate:             end,
		InitialAmount:       p.InitialAmount,
		MonthlySalary:       p.MonthlySalary,
		MonthlyLivingCost:   p.MonthlyLivingCost,
		MonthlyContribution: p.MonthlyContribution,
		MinimumCashReserve:  p.MinimumCashReserve,
		DividendPolicy:      policy,
		Allocations:         p.Allocations,
		BenchmarkTicker:     p.BenchmarkTicker,
		RiskFreeRate:        riskFree,
	}, nil
}

// RunBacktest handles POST /api/backtest
// @Summary Run a backtest
// @Description Simulates a portfolio over the requested date range
// @Tags backtest
// @Accept json
// @Produce json
// @Success 200 {object} models.SimulationResult
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/backtest [post]
func (h *Handler) RunBacktest(c echo.Context) error {
	var payload simulationPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	req, err := payload.toRequest()
	if err != nil {
		return errorJSON(c, err)
	}

	result, err := h.svc.Run(c.Request().Context(), req)
	if err != nil {
		log.Printf("Backtest failed: %v", err)
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// ExportBacktest handles POST /api/backtest/export
// Runs the same simulation and streams the timeline as CSV.
// @Summary Export a backtest timeline
// @Description Runs a simulation and returns the daily timeline as CSV
// @Tags backtest
// @Accept json
// @Produce text/csv
// @Success 200 {string} string "CSV timeline"
// @Failure 400 {object} ErrorResponse
// @Router /api/backtest/export [post]
func (h *Handler) ExportBacktest(c echo.Context) error {
	var payload simulationPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	req, err := payload.toRequest()
	if err != nil {
		return errorJSON(c, err)
	}

	result, err := h.svc.Run(c.Request().Context(), req)
	if err != nil {
		log.Printf("Backtest export failed: %v", err)
		return errorJSON(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="backtest.csv"`)
	c.Response().WriteHeader(http.StatusOK)

	w := csv.NewWriter(c.Response())
	if err := w.Write([]string{"date", "stock_value", "cash_value", "portfolio_value", "benchmark_value", "invested_capital", "net_flow"}); err != nil {
		return err
	}
	for _, p := range result.Timeline {
		record := []string{
			p.Date.Format(dateLayout),
			formatValue(p.StockValue),
			formatValue(p.CashValue),
			formatValue(p.PortfolioValue),
			formatValue(p.BenchmarkValue),
			formatValue(p.InvestedCapital),
			formatValue(p.NetFlow),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// GetBenchmark handles GET /api/benchmark/:ticker
// Query params: start, end (YYYY-MM-DD, required), risk_free_rate (optional).
// @Summary Summarize a benchmark ticker
// @Description Returns return and risk statistics for one ticker over a range
// @Tags benchmark
// @Produce json
// @Param ticker path string true "Ticker symbol"
// @Param start query string true "Start date (YYYY-MM-DD)"
// @Param end query string true "End date (YYYY-MM-DD)"
// @Param risk_free_rate query number false "Annual risk-free rate"
// @Success 200 {object} models.BenchmarkSummary
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/benchmark/{ticker} [get]
func (h *Handler) GetBenchmark(c echo.Context) error {
	ticker := c.Param("ticker")

	start, err := time.Parse(dateLayout, c.QueryParam("start"))
	if err != nil {
		return errorJSON(c, &backtest.ValidationError{Field: "start", Reason: "must be YYYY-MM-DD"})
	}
	end, err := time.Parse(dateLayout, c.QueryParam("end"))
	if err != nil {
		return errorJSON(c, &backtest.ValidationError{Field: "end", Reason: "must be YYYY-MM-DD"})
	}

	riskFree := backtest.DefaultRiskFreeRate
	if raw := c.QueryParam("risk_free_rate"); raw != "" {
		riskFree, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return errorJSON(c, &backtest.ValidationError{Field: "risk_free_rate", Reason: fmt.Sprintf("invalid number %q", raw)})
		}
	}

	summary, err := h.svc.BenchmarkSummary(c.Request().Context(), ticker, start, end, riskFree)
	if err != nil {
		log.Printf("Benchmark summary failed for %s: %v", ticker, err)
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, summary)
}
