package models

import "time"

// PriceQuote is one ticker price used by a balance report.
type PriceQuote struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Ticker    string    `json:"ticker"`
	Price     string    `json:"price"` // decimal text as returned by the oracle
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}
