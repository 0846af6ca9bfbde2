package marketdata

// chartResponse mirrors the Yahoo Finance v8 chart API payload, reduced to
// the fields the provider consumes.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp []int64 `json:"timestamp"`
			Events    struct {
				Dividends map[string]dividendEvent `json:"dividends"`
				Splits    map[string]splitEvent    `json:"splits"`
			} `json:"events"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

type dividendEvent struct {
	Amount float64 `json:"amount"`
	Date   int64   `json:"date"`
}

type splitEvent struct {
	Date        int64   `json:"date"`
	Numerator   float64 `json:"numerator"`
	Denominator float64 `json:"denominator"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}
