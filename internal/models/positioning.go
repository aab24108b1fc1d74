package models

import "time"

// Contract describes a futures contract tracked by the positioning view.
type Contract struct {
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

// PositioningRecord is one weekly speculative positioning observation.
type PositioningRecord struct {
	Date         time.Time `json:"date"`
	Long         float64   `json:"long"`
	Short        float64   `json:"short"`
	OpenInterest float64   `json:"open_interest"`
	Net          float64   `json:"net"`
	NetPctOI     float64   `json:"net_pct_oi"`
}

// PositioningMetrics summarizes a contract's positioning over a lookback.
type PositioningMetrics struct {
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	Category     Category `json:"category"`
	CurrentNet   float64  `json:"current_net"`
	CurrentLong  float64  `json:"current_long"`
	CurrentShort float64  `json:"current_short"`
	OpenInterest float64  `json:"open_interest"`
	NetPctOI     float64  `json:"net_pct_oi"`
	ZScore       float64  `json:"z_score"`
	PctZScore    float64  `json:"pct_z_score"`
	Mean         float64  `json:"mean"`
	StdDev       float64  `json:"std_dev"`
	WeeklyChange float64  `json:"weekly_change"`
	// WeeklyChangePct is relative to |previous net|; 0 when previous net is 0.
	WeeklyChangePct float64   `json:"weekly_change_pct"`
	IsExtreme       bool      `json:"is_extreme"`
	ExtremeType     string    `json:"extreme_type,omitempty"`
	ReportDate      time.Time `json:"report_date"`
}

// PositioningExtreme is a contract whose net positioning z-score is extreme.
type PositioningExtreme struct {
	Symbol string  `json:"symbol"`
	ZScore float64 `json:"z_score"`
	Type   string  `json:"type"`
	Net    float64 `json:"net"`
}
