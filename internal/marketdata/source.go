// Package marketdata adapts the cached dashboard market snapshot into the
// readings the regime scorer consumes.
package marketdata

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/irfndi/quant-regime/internal/logging"
	"github.com/irfndi/quant-regime/internal/models"
	"github.com/irfndi/quant-regime/internal/utils"
)

// Snapshot labels written by the market data collaborator.
const (
	LabelVIX          = "VIX"
	LabelTenYear      = "10Y Yield"
	LabelFiveYear     = "5Y Yield"
	LabelSpread2s10s  = "2s10s"
	LabelDXY          = "DXY"
	LabelSPX          = "S&P 500"
	LabelStockBond    = "SPY-TLT Corr"
	LabelCreditStress = "Credit Stress"
)

// SnapshotLoader reads the latest market snapshot.
type SnapshotLoader interface {
	Load(ctx context.Context) (models.MarketSnapshot, bool, error)
}

// SnapshotSource serves market metrics from the cached snapshot. A missing
// snapshot yields empty metrics, so every indicator reports no data.
type SnapshotSource struct {
	loader SnapshotLoader
	logger logging.Logger
}

func NewSnapshotSource(loader SnapshotLoader, logger logging.Logger) *SnapshotSource {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &SnapshotSource{loader: loader, logger: logger}
}

func (s *SnapshotSource) Metrics(ctx context.Context) (models.MarketMetrics, error) {
	snap, found, err := s.loader.Load(ctx)
	if err != nil {
		return models.MarketMetrics{}, fmt.Errorf("failed to load market snapshot: %w", err)
	}
	if !found {
		s.logger.WithComponent("marketdata").Debug("No market snapshot cached")
		return models.MarketMetrics{}, nil
	}
	return FromSnapshot(snap), nil
}

// FromSnapshot maps snapshot items onto metrics by label. Values are display
// strings; everything but digits, '.' and '-' is stripped before parsing.
func FromSnapshot(snap models.MarketSnapshot) models.MarketMetrics {
	m := models.MarketMetrics{AsOf: snap.Timestamp}
	if len(snap.Closes) > 0 {
		m.EquityCloses = append([]float64(nil), snap.Closes...)
	}

	if item, ok := snap.Find(LabelVIX); ok {
		m.VIX = ParseValue(item.Value)
	}
	if item, ok := snap.Find(LabelTenYear); ok {
		m.TenYearYield = ParseValue(item.Value)
	}
	if item, ok := snap.Find(LabelFiveYear); ok {
		m.FiveYearYield = ParseValue(item.Value)
	}
	if item, ok := snap.Find(LabelSpread2s10s); ok {
		m.Spread2s10s = ParseValue(item.Value)
		m.SpreadInverted = item.Inverted
	}
	if item, ok := snap.Find(LabelDXY); ok {
		m.DXYChange = item.ChangeNum
		m.DXYLevel = ParseValue(item.Value)
	}
	if item, ok := snap.Find(LabelSPX); ok {
		m.SPXChange = item.ChangeNum
		m.SPXLevel = ParseValue(item.Value)
	}
	if item, ok := snap.Find(LabelStockBond); ok {
		m.StockBondCorrelation = ParseValue(item.Value)
	}
	if item, ok := snap.Find(LabelCreditStress); ok {
		m.CreditStress = ParseValue(item.Value)
	}
	return m
}

// ParseValue parses a display string such as "4.21%" or "-38 bp". The result
// is invalid when nothing numeric remains.
func ParseValue(s string) decimal.NullDecimal {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// Validate rejects snapshots that cannot be scored consistently.
func Validate(snap models.MarketSnapshot) error {
	seen := make(map[string]bool, len(snap.Data))
	for i, item := range snap.Data {
		if strings.TrimSpace(item.Label) == "" {
			return utils.NewFieldError(fmt.Sprintf("data[%d].label", i), "must not be empty")
		}
		if seen[item.Label] {
			return utils.NewFieldError(fmt.Sprintf("data[%d].label", i), "duplicate label %q", item.Label)
		}
		seen[item.Label] = true
	}
	for i, c := range snap.Closes {
		if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
			return utils.NewFieldError(fmt.Sprintf("closes[%d]", i), "must be a positive price, got %v", c)
		}
	}
	return nil
}

// StaticSource always returns the same metrics.
type StaticSource struct {
	metrics models.MarketMetrics
}

func NewStaticSource(m models.MarketMetrics) *StaticSource {
	return &StaticSource{metrics: m}
}

func (s *StaticSource) Metrics(ctx context.Context) (models.MarketMetrics, error) {
	return s.metrics, nil
}
