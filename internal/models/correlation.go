package models

// Category groups instruments by asset class.
type Category string

const (
	CategoryEquity      Category = "equity"
	CategoryFixedIncome Category = "fixed-income"
	CategoryCommodity   Category = "commodity"
	CategoryFX          Category = "fx"
	CategoryVolatility  Category = "volatility"
	CategoryCredit      Category = "credit"
	CategoryEnergy      Category = "energy"
	CategoryRates       Category = "rates"
)

// Instrument is immutable reference data for one monitored asset.
type Instrument struct {
	Symbol      string   `json:"symbol" yaml:"symbol"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	Category    Category `json:"category" yaml:"category"`
}

// ReturnSeries holds aligned daily fractional returns per symbol. Index i of
// every series refers to the same simulated day.
type ReturnSeries struct {
	Symbols []string             `json:"symbols"`
	Returns map[string][]float64 `json:"returns"`
}

// Days returns the common series length, or 0 when empty.
func (r ReturnSeries) Days() int {
	if len(r.Symbols) == 0 {
		return 0
	}
	return len(r.Returns[r.Symbols[0]])
}

// CorrelationMatrix is a symmetric N×N matrix with unit diagonal, indexed in
// the order of Symbols.
type CorrelationMatrix struct {
	Symbols []string    `json:"symbols"`
	Window  int         `json:"window"`
	Values  [][]float64 `json:"values"`
}

// Index returns the position of symbol, or -1.
func (m CorrelationMatrix) Index(symbol string) int {
	for i, s := range m.Symbols {
		if s == symbol {
			return i
		}
	}
	return -1
}

// Get looks up the correlation between two symbols.
func (m CorrelationMatrix) Get(a, b string) (float64, bool) {
	i, j := m.Index(a), m.Index(b)
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

// AlertKind is the rule that produced a RegimeAlert.
type AlertKind string

const (
	AlertSignFlip   AlertKind = "sign-flip"
	AlertWeakening  AlertKind = "weakening"
	AlertDecoupling AlertKind = "decoupling"
	AlertDeviation  AlertKind = "deviation"
)

// Severity of a RegimeAlert.
type Severity string

const (
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// Direction of the move relative to baseline.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// RegimeAlert flags a pair whose current correlation departs from its
// historical baseline.
type RegimeAlert struct {
	Pair        string    `json:"pair"`
	PairName    string    `json:"pair_name"`
	Current     float64   `json:"current"`
	Baseline    float64   `json:"baseline"`
	Kind        AlertKind `json:"kind"`
	Type        string    `json:"type"`
	Severity    Severity  `json:"severity"`
	Direction   Direction `json:"direction"`
	Description string    `json:"description"`
}

// Deviation is |Current - Baseline|.
func (a RegimeAlert) Deviation() float64 {
	d := a.Current - a.Baseline
	if d < 0 {
		return -d
	}
	return d
}

// AlertSummary is the reduced alert shape shared with other dashboard views.
type AlertSummary struct {
	Pair     string   `json:"pair"`
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// AlertCounts summarizes an alert list for the alert panel header.
type AlertCounts struct {
	Total    int `json:"total"`
	High     int `json:"high"`
	Moderate int `json:"moderate"`
}

// ComparisonRow compares one key pair against both baselines. Delta5Y falls
// back to the 1-year baseline when no 5-year value exists.
type ComparisonRow struct {
	Pair         string   `json:"pair"`
	PairName     string   `json:"pair_name"`
	Current      float64  `json:"current"`
	Baseline1Y   float64  `json:"baseline_1y"`
	Baseline5Y   *float64 `json:"baseline_5y"`
	Delta1Y      float64  `json:"delta_1y"`
	Delta5Y      float64  `json:"delta_5y"`
	DeltaClass   ColorTag `json:"delta_class"`
	DeltaClass5Y ColorTag `json:"delta_class_5y"`
}

// HeatmapCell is one rendered cell of the correlation heatmap.
type HeatmapCell struct {
	Row        int      `json:"row"`
	Col        int      `json:"col"`
	Value      float64  `json:"value"`
	RowSymbol  string   `json:"row_symbol"`
	ColSymbol  string   `json:"col_symbol"`
	IsDiagonal bool     `json:"is_diagonal"`
	Strength   string   `json:"strength,omitempty"`
	Direction  string   `json:"direction,omitempty"`
	Versus1Y   *float64 `json:"vs_1y,omitempty"`
}
