package marketdata

import "fmt"

// Error reports a failure to obtain usable market data for a ticker: an
// unknown symbol, an empty range, or an upstream failure. Runs consuming the
// data abort on it; nothing retries above the client.
type Error struct {
	Ticker string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("market data for %s: %s: %v", e.Ticker, e.Reason, e.Err)
	}
	return fmt.Sprintf("market data for %s: %s", e.Ticker, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}
