package backtest

import "time"

const dayKeyFormat = "2006-01-02"

func dayKey(t time.Time) string {
	return t.Format(dayKeyFormat)
}

// Schedule marks which trading days trigger contributions and rebalances.
// The first trading day observed in each calendar month is a contribution
// day; when that month opens a quarter (January, April, July, October) the
// same day is also a rebalance day. Deriving both sets from the trading
// calendar itself keeps the "first trading day of month" semantics correct
// across weekends and holidays without an exchange calendar.
type Schedule struct {
	contributionDays map[string]bool
	rebalanceDays    map[string]bool
}

// BuildSchedule scans sorted, deduplicated trading dates and derives the
// contribution and rebalance day sets. Empty input yields empty sets.
func BuildSchedule(days []time.Time) *Schedule {
	s := &Schedule{
		contributionDays: make(map[string]bool),
		rebalanceDays:    make(map[string]bool),
	}

	currentMonth := ""
	for _, day := range days {
		monthKey := day.Format("2006-01")
		if monthKey == currentMonth {
			continue
		}
		currentMonth = monthKey

		key := dayKey(day)
		s.contributionDays[key] = true
		if isQuarterStartMonth(day.Month()) {
			s.rebalanceDays[key] = true
		}
	}

	return s
}

func isQuarterStartMonth(m time.Month) bool {
	return m == time.January || m == time.April || m == time.July || m == time.October
}

// IsContributionDay reports whether t is the first trading day of its month.
func (s *Schedule) IsContributionDay(t time.Time) bool {
	return s.contributionDays[dayKey(t)]
}

// IsRebalanceDay reports whether t is the first trading day of a quarter.
func (s *Schedule) IsRebalanceDay(t time.Time) bool {
	return s.rebalanceDays[dayKey(t)]
}
