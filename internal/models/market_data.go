package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketItem is one labelled reading of the dashboard market data snapshot,
// e.g. {"label": "VIX", "value": "18.42", "changeNum": -0.8}.
type MarketItem struct {
	Label     string              `json:"label"`
	Value     string              `json:"value"`
	Change    string              `json:"change,omitempty"`
	ChangeNum decimal.NullDecimal `json:"changeNum"`
	// Inverted marks a curve spread whose sign was stripped from Value.
	Inverted bool `json:"inverted,omitempty"`
}

// MarketSnapshot is the cached market data written by the market data
// collaborator.
type MarketSnapshot struct {
	Data      []MarketItem `json:"data"`
	Closes    []float64    `json:"closes,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Find returns the first item with the given label.
func (s MarketSnapshot) Find(label string) (MarketItem, bool) {
	for _, item := range s.Data {
		if item.Label == label {
			return item, true
		}
	}
	return MarketItem{}, false
}
