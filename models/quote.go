package models

import "time"

// ErrorPrice replaces the price when no provider yields a value.
const ErrorPrice = "Error"

// TimestampLayout renders Quote.Timestamp as yyyy-MM-dd HH:mm:ss.
const TimestampLayout = "2006-01-02 15:04:05"

// Quote is one resolved row of the output table. It is created once per
// symbol per run and never modified afterwards.
type Quote struct {
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Timestamp string `json:"timestamp"`

	// Source names the provider that produced Price. Empty for ErrorPrice.
	Source string `json:"source,omitempty"`
}

// NewQuote stamps a quote with the given wall-clock time.
func NewQuote(symbol, price, source string, at time.Time) Quote {
	return Quote{
		Symbol:    symbol,
		Price:     price,
		Timestamp: at.Format(TimestampLayout),
		Source:    source,
	}
}

// ErrorQuote is the sentinel row for a symbol no provider could price.
func ErrorQuote(symbol string, at time.Time) Quote {
	return NewQuote(symbol, ErrorPrice, "", at)
}

// Failed reports whether q carries the sentinel price.
func (q Quote) Failed() bool {
	return q.Price == ErrorPrice
}
