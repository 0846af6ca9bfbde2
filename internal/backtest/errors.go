package backtest

import (
	"errors"
	"fmt"
)

// ErrInsufficientData means fewer than 2 trading days overlap across all
// requested tickers and the benchmark, so no simulation can run.
var ErrInsufficientData = errors.New("fewer than 2 overlapping trading days")

// ValidationError reports a malformed or out-of-range request field. It is
// raised before any market data is fetched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// ConfigurationError means the request cannot produce a meaningful run even
// with perfect data, e.g. no allocation carries positive weight.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}
