package backtest

import (
	"math"
	"testing"
	"time"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestCagr(t *testing.T) {
	tests := []struct {
		name              string
		start, end, years float64
		want              float64
	}{
		{"10% over two years", 100, 121, 2, 0.10},
		{"flat", 100, 100, 3, 0},
		{"zero start", 0, 121, 2, 0},
		{"zero end", 100, 0, 2, 0},
		{"zero years", 100, 121, 0, 0},
		{"negative start", -5, 121, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cagr(tt.start, tt.end, tt.years)
			if !approxEqual(got, tt.want, 1e-8) {
				t.Errorf("Cagr(%v, %v, %v) = %v, want %v", tt.start, tt.end, tt.years, got, tt.want)
			}
		})
	}
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"peak then trough", []float64{100, 120, 90, 130}, -0.25},
		{"monotonic up", []float64{100, 110, 120}, 0},
		{"empty", nil, 0},
		{"single value", []float64{100}, 0},
		{"all zero", []float64{0, 0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDrawdown(tt.values)
			if !approxEqual(got, tt.want, 1e-8) {
				t.Errorf("MaxDrawdown(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestDrawdownSeries(t *testing.T) {
	got := DrawdownSeries([]float64{100, 120, 90, 130})
	want := []float64{0, 0, -0.25, 0}
	if len(got) != len(want) {
		t.Fatalf("got %d points, want %d", len(got), len(want))
	}
	for i := range want {
		if !approxEqual(got[i], want[i], 1e-8) {
			t.Errorf("point %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	got := AnnualizedVolatility([]float64{0.01, -0.01, 0.01, -0.01})
	if !approxEqual(got, 0.1833, 1e-3) {
		t.Errorf("AnnualizedVolatility = %v, want ~0.1833", got)
	}

	if v := AnnualizedVolatility([]float64{0.01}); v != 0 {
		t.Errorf("one return should yield 0, got %v", v)
	}
	if v := AnnualizedVolatility(nil); v != 0 {
		t.Errorf("no returns should yield 0, got %v", v)
	}
}

func TestSharpeRatio(t *testing.T) {
	if got := SharpeRatio(0.10, 0.02, 0.16); !approxEqual(got, 0.5, 1e-8) {
		t.Errorf("SharpeRatio = %v, want 0.5", got)
	}
	if got := SharpeRatio(0.10, 0.02, 0); got != 0 {
		t.Errorf("zero volatility should yield 0, got %v", got)
	}
}

func TestTimeWeightedDailyReturns(t *testing.T) {
	got := TimeWeightedDailyReturns([]float64{100, 110, 170}, []float64{100, 0, 50})
	if len(got) != 2 {
		t.Fatalf("got %d returns, want 2", len(got))
	}
	if !approxEqual(got[0], 0.1, 1e-6) {
		t.Errorf("first return = %v, want 0.1", got[0])
	}
	if !approxEqual(got[1], 0.090909, 1e-6) {
		t.Errorf("second return = %v, want 0.090909", got[1])
	}
}

func TestTimeWeightedDailyReturnsGuards(t *testing.T) {
	// Non-positive base days report 0 instead of blowing up.
	got := TimeWeightedDailyReturns([]float64{0, 100, 110}, []float64{0, 0, 0})
	if got[0] != 0 {
		t.Errorf("return off a zero base = %v, want 0", got[0])
	}
	if !approxEqual(got[1], 0.1, 1e-8) {
		t.Errorf("second return = %v, want 0.1", got[1])
	}

	if r := TimeWeightedDailyReturns([]float64{100}, []float64{0}); r != nil {
		t.Errorf("single point should yield nil, got %v", r)
	}
}

func TestYearFraction(t *testing.T) {
	got := YearFraction(day("2022-01-01"), day("2024-01-01"))
	if !approxEqual(got, 730.0/365.25, 1e-9) {
		t.Errorf("YearFraction = %v, want %v", got, 730.0/365.25)
	}
	if y := YearFraction(day("2024-01-01"), day("2024-01-01")); y != 0 {
		t.Errorf("zero span should yield 0, got %v", y)
	}
	if y := YearFraction(day("2024-01-02"), day("2024-01-01")); y != 0 {
		t.Errorf("inverted span should yield 0, got %v", y)
	}
}

func TestYearlyReturnsGroupsByLaterDate(t *testing.T) {
	// The pair 2023-12-29 -> 2024-01-02 belongs to 2024.
	dates := []time.Time{day("2023-12-28"), day("2023-12-29"), day("2024-01-02"), day("2024-01-03")}
	portfolio := []float64{0.01, 0.02, 0.03}
	benchmark := []float64{0.01, -0.01, 0.01}

	got := YearlyReturns(dates, portfolio, benchmark)
	if len(got) != 2 {
		t.Fatalf("got %d years, want 2", len(got))
	}

	if got[0].Year != 2023 || got[1].Year != 2024 {
		t.Fatalf("years = [%d, %d], want [2023, 2024]", got[0].Year, got[1].Year)
	}
	if !approxEqual(got[0].Portfolio, 0.01, 1e-9) {
		t.Errorf("2023 portfolio = %v, want 0.01", got[0].Portfolio)
	}
	if !approxEqual(got[1].Portfolio, 1.02*1.03-1, 1e-9) {
		t.Errorf("2024 portfolio = %v, want %v", got[1].Portfolio, 1.02*1.03-1)
	}
	if !approxEqual(got[1].Benchmark, 0.99*1.01-1, 1e-9) {
		t.Errorf("2024 benchmark = %v, want %v", got[1].Benchmark, 0.99*1.01-1)
	}
}

func TestComputeMetricsWithoutFlows(t *testing.T) {
	dates := []time.Time{day("2022-01-01"), day("2023-01-01"), day("2024-01-01")}
	values := []float64{100, 110, 121}
	flows := []float64{100, 0, 0}

	m := ComputeMetrics(dates, values, flows, 100, 0.02)

	if m.EndingValue != 121 {
		t.Errorf("EndingValue = %v, want 121", m.EndingValue)
	}
	if !approxEqual(m.Gains, 21, 1e-9) {
		t.Errorf("Gains = %v, want 21", m.Gains)
	}
	if !approxEqual(m.CumulativeReturn, 0.21, 1e-9) {
		t.Errorf("CumulativeReturn = %v, want 0.21", m.CumulativeReturn)
	}
	// With no intermediate flows both CAGR figures measure the same growth.
	if !approxEqual(m.Cagr, m.GrowthCagr, 1e-6) {
		t.Errorf("Cagr %v and GrowthCagr %v should agree without flows", m.Cagr, m.GrowthCagr)
	}
	if m.Cagr <= 0.09 || m.Cagr >= 0.11 {
		t.Errorf("Cagr = %v, want ~0.10", m.Cagr)
	}
}

func TestComputeMetricsDegenerate(t *testing.T) {
	m := ComputeMetrics(nil, nil, nil, 0, 0.02)
	if m.EndingValue != 0 || m.Cagr != 0 || m.SharpeRatio != 0 {
		t.Errorf("empty series should yield zero metrics, got %+v", m)
	}

	dates := []time.Time{day("2024-01-02"), day("2024-01-03")}
	m = ComputeMetrics(dates, []float64{0, 0}, []float64{0, 0}, 0, 0.02)
	if m.CumulativeReturn != 0 || m.MaxDrawdown != 0 {
		t.Errorf("flat zero series should yield zero metrics, got %+v", m)
	}
}
