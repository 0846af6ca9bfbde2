package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/mauv0809/portfolio-backtest/internal/models"
)

// driftTolerance is the maximum weight deviation allowed before a rebalance
// day actually trades.
const driftTolerance = 0.005

// Engine replays trading days one at a time against pre-fetched price
// series, maintaining holdings and cash as it goes. One engine owns one run;
// its state is discarded when Run returns.
type Engine struct {
	req      models.SimulationRequest
	prices   map[string]map[string]models.PricePoint // ticker -> day key -> point
	calendar []time.Time
	schedule *Schedule
	totalW   float64 // sum of allocation weights, as a fraction of 1

	holdings    map[string]float64
	cash        float64
	benchShares float64
	invested    float64
	contributed float64
}

// Outcome is what a finished run hands to the metrics layer.
type Outcome struct {
	Timeline      []models.TimelinePoint
	Contributions float64
}

// NewEngine prepares a run: it indexes the supplied per-ticker series by day
// and intersects their trading calendars. It fails with ConfigurationError
// when no allocation has positive weight and with ErrInsufficientData when
// fewer than 2 trading days are shared by every ticker and the benchmark.
func NewEngine(req models.SimulationRequest, series map[string][]models.PricePoint) (*Engine, error) {
	totalW := 0.0
	for _, a := range req.Allocations {
		if a.TargetWeight > 0 {
			totalW += a.TargetWeight / 100
		}
	}
	if totalW <= 0 {
		return nil, &ConfigurationError{Reason: "no allocation has positive weight"}
	}

	prices := make(map[string]map[string]models.PricePoint, len(series))
	for ticker, points := range series {
		byDay := make(map[string]models.PricePoint, len(points))
		for _, p := range points {
			byDay[dayKey(p.Date)] = p
		}
		prices[ticker] = byDay
	}

	calendar := intersectCalendars(req, series)
	if len(calendar) < 2 {
		return nil, ErrInsufficientData
	}

	return &Engine{
		req:      req,
		prices:   prices,
		calendar: calendar,
		schedule: BuildSchedule(calendar),
		totalW:   totalW,
		holdings: make(map[string]float64, len(req.Allocations)),
	}, nil
}

// intersectCalendars keeps only dates present in every required series,
// sorted ascending and deduplicated.
func intersectCalendars(req models.SimulationRequest, series map[string][]models.PricePoint) []time.Time {
	required := make([]string, 0, len(req.Allocations)+1)
	seen := map[string]bool{}
	for _, a := range req.Allocations {
		if !seen[a.Ticker] {
			seen[a.Ticker] = true
			required = append(required, a.Ticker)
		}
	}
	if !seen[req.BenchmarkTicker] {
		required = append(required, req.BenchmarkTicker)
	}

	counts := make(map[string]int)
	dates := make(map[string]time.Time)
	for _, ticker := range required {
		inSeries := map[string]bool{}
		for _, p := range series[ticker] {
			key := dayKey(p.Date)
			if inSeries[key] {
				continue
			}
			inSeries[key] = true
			counts[key]++
			dates[key] = p.Date
		}
	}

	var calendar []time.Time
	for key, n := range counts {
		if n == len(required) {
			calendar = append(calendar, dates[key])
		}
	}
	sort.Slice(calendar, func(i, j int) bool { return calendar[i].Before(calendar[j]) })
	return calendar
}

// Run advances the day loop over the whole calendar and returns the value
// timeline. The per-day operation order is fixed: splits, dividends, initial
// investment, periodic contribution, expense drag, rebalance, record.
func (e *Engine) Run() (*Outcome, error) {
	timeline := make([]models.TimelinePoint, 0, len(e.calendar))

	for i, day := range e.calendar {
		key := dayKey(day)
		flow := 0.0

		e.applySplits(key)
		e.applyDividends(key)

		if i == 0 && e.req.InitialAmount > 0 {
			e.investInitial(key)
			flow += e.req.InitialAmount
		}

		if e.schedule.IsContributionDay(day) {
			flow += e.contribute(key)
		}

		e.applyExpenseDrag()

		if i > 0 && e.schedule.IsRebalanceDay(day) {
			e.maybeRebalance(key)
		}

		stock := e.stockValue(key)
		timeline = append(timeline, models.TimelinePoint{
			Date:            day,
			StockValue:      stock,
			CashValue:       e.cash,
			PortfolioValue:  stock + e.cash,
			BenchmarkValue:  e.benchShares * e.adjCloseAt(e.req.BenchmarkTicker, key),
			InvestedCapital: e.invested,
			NetFlow:         flow,
		})
	}

	return &Outcome{Timeline: timeline, Contributions: e.contributed}, nil
}

func (e *Engine) priceAt(ticker, key string) (models.PricePoint, bool) {
	p, ok := e.prices[ticker][key]
	return p, ok
}

func (e *Engine) closeAt(ticker, key string) float64 {
	if p, ok := e.priceAt(ticker, key); ok {
		return p.Close
	}
	return 0
}

func (e *Engine) adjCloseAt(ticker, key string) float64 {
	if p, ok := e.priceAt(ticker, key); ok {
		return p.AdjClose
	}
	return 0
}

func (e *Engine) stockValue(key string) float64 {
	total := 0.0
	for ticker, shares := range e.holdings {
		if price := e.closeAt(ticker, key); price > 0 {
			total += shares * price
		}
	}
	return total
}

func (e *Engine) applySplits(key string) {
	for _, a := range e.req.Allocations {
		p, ok := e.priceAt(a.Ticker, key)
		if !ok || p.SplitRatio <= 0 || p.SplitRatio == 1 {
			continue
		}
		if shares := e.holdings[a.Ticker]; shares > 0 {
			e.holdings[a.Ticker] = shares * p.SplitRatio
		}
	}
}

func (e *Engine) applyDividends(key string) {
	for _, a := range e.req.Allocations {
		p, ok := e.priceAt(a.Ticker, key)
		if !ok || p.Dividend <= 0 {
			continue
		}
		shares := e.holdings[a.Ticker]
		if shares <= 0 {
			continue
		}
		payout := shares * p.Dividend
		if e.req.DividendPolicy == models.DividendReinvest && p.Close > 0 {
			e.holdings[a.Ticker] = shares + payout/p.Close
		} else {
			// to-cash policy, or no usable price to reinvest at
			e.cash += payout
		}
	}
}

// investableBudget limits how much of the portfolio may sit in stocks under
// the minimum cash reserve. The floor is soft: it constrains new investment
// and rebalancing only, never dividend accrual or expense drag.
func (e *Engine) investableBudget(portfolioValue float64) float64 {
	cashFloor := math.Min(e.req.MinimumCashReserve, portfolioValue)
	budget := portfolioValue * e.totalW
	limit := math.Max(0, portfolioValue-cashFloor)
	if budget > limit {
		budget = limit
	}
	if budget < 0 {
		budget = 0
	}
	return budget
}

// investInitial runs once on day 0: the initial amount lands in cash, then
// the investable part is distributed across allocations by relative weight.
// The benchmark leg buys the full amount at adjusted close and is never
// touched again.
func (e *Engine) investInitial(key string) {
	e.cash += e.req.InitialAmount
	e.invested += e.req.InitialAmount

	e.buyByWeight(e.investableBudget(e.stockValue(key)+e.cash), key)

	if adj := e.adjCloseAt(e.req.BenchmarkTicker, key); adj > 0 {
		e.benchShares += e.req.InitialAmount / adj
	}
}

// contribute handles a contribution day: net salary is injected as external
// cash (mirrored into the benchmark leg), then up to the monthly contribution
// is moved from cash into stocks above the reserve floor. Returns the
// external flow added.
func (e *Engine) contribute(key string) float64 {
	flow := 0.0

	netSalary := e.req.MonthlySalary - e.req.MonthlyLivingCost
	if netSalary > 0 {
		e.cash += netSalary
		e.invested += netSalary
		e.contributed += netSalary
		flow += netSalary
		if adj := e.adjCloseAt(e.req.BenchmarkTicker, key); adj > 0 {
			e.benchShares += netSalary / adj
		}
	}

	if e.req.MonthlyContribution > 0 {
		portfolioValue := e.stockValue(key) + e.cash
		cashFloor := math.Min(e.req.MinimumCashReserve, portfolioValue)
		available := math.Max(0, e.cash-cashFloor)
		amount := math.Min(e.req.MonthlyContribution, available)
		if amount > 0 {
			e.buyByWeight(amount, key)
		}
	}

	return flow
}

// buyByWeight spends amount on stocks, split across allocations proportional
// to their weight relative to the total. A leg without a positive close that
// day is skipped and its share of the money stays in cash.
func (e *Engine) buyByWeight(amount float64, key string) {
	if amount <= 0 {
		return
	}
	for _, a := range e.req.Allocations {
		if a.TargetWeight <= 0 {
			continue
		}
		legAmount := amount * (a.TargetWeight / 100) / e.totalW
		price := e.closeAt(a.Ticker, key)
		if price <= 0 {
			continue
		}
		e.holdings[a.Ticker] += legAmount / price
		e.cash -= legAmount
	}
}

func (e *Engine) applyExpenseDrag() {
	for _, a := range e.req.Allocations {
		if a.ExpenseRatio <= 0 {
			continue
		}
		if shares := e.holdings[a.Ticker]; shares > 0 {
			e.holdings[a.Ticker] = shares * (1 - a.ExpenseRatio/tradingDaysPerYear)
		}
	}
}

// maybeRebalance checks the drift trigger and, when tripped, re-targets the
// whole portfolio: every allocation's position is replaced outright rather
// than traded incrementally.
func (e *Engine) maybeRebalance(key string) {
	portfolioValue := e.stockValue(key) + e.cash
	if portfolioValue <= 0 {
		return
	}

	budget := e.investableBudget(portfolioValue)
	targetCashWeight := (portfolioValue - budget) / portfolioValue
	currentCashWeight := e.cash / portfolioValue

	triggered := math.Abs(currentCashWeight-targetCashWeight) > driftTolerance
	if !triggered {
		for _, a := range e.req.Allocations {
			if a.TargetWeight <= 0 {
				continue
			}
			current := 0.0
			if price := e.closeAt(a.Ticker, key); price > 0 {
				current = e.holdings[a.Ticker] * price / portfolioValue
			}
			target := budget * (a.TargetWeight / 100) / e.totalW / portfolioValue
			if math.Abs(current-target) > driftTolerance {
				triggered = true
				break
			}
		}
	}
	if !triggered {
		return
	}

	if budget <= 0 {
		// Nothing may be held in stocks; liquidate everything to cash.
		e.cash = portfolioValue
		for ticker := range e.holdings {
			e.holdings[ticker] = 0
		}
		return
	}

	for _, a := range e.req.Allocations {
		if a.TargetWeight <= 0 {
			continue
		}
		price := e.closeAt(a.Ticker, key)
		if price <= 0 {
			continue
		}
		e.holdings[a.Ticker] = budget * (a.TargetWeight / 100) / e.totalW / price
	}
	e.cash = math.Max(0, portfolioValue-e.stockValue(key))
}
