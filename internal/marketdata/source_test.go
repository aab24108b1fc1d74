package marketdata

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/quant-regime/internal/models"
	"github.com/irfndi/quant-regime/internal/regime"
	"github.com/irfndi/quant-regime/internal/store"
	"github.com/irfndi/quant-regime/internal/utils"
)

type failingLoader struct{}

func (failingLoader) Load(ctx context.Context) (models.MarketSnapshot, bool, error) {
	return models.MarketSnapshot{}, false, errors.New("redis down")
}

func change(v float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(v))
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"18.42", "18.42", true},
		{"4.21%", "4.21", true},
		{"-38 bp", "-38", true},
		{"$5,123.40", "5123.4", true},
		{"--", "", false},
		{"n/a", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseValue(tt.in)
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.Equal(t, tt.want, got.Decimal.String())
			}
		})
	}
}

func TestFromSnapshot(t *testing.T) {
	at := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	snap := models.MarketSnapshot{
		Data: []models.MarketItem{
			{Label: "VIX", Value: "22.10"},
			{Label: "10Y Yield", Value: "4.35%"},
			{Label: "5Y Yield", Value: "4.05%"},
			{Label: "2s10s", Value: "12bp", Inverted: true},
			{Label: "DXY", Value: "104.2", ChangeNum: change(0.45)},
			{Label: "S&P 500", Value: "5,210.55", ChangeNum: change(-1.2)},
		},
		Closes:    []float64{100, 101},
		Timestamp: at,
	}
	m := FromSnapshot(snap)

	assert.Equal(t, "22.1", m.VIX.Decimal.String())
	assert.Equal(t, "4.35", m.TenYearYield.Decimal.String())
	assert.Equal(t, "12", m.Spread2s10s.Decimal.String())
	assert.True(t, m.SpreadInverted)
	assert.Equal(t, "0.45", m.DXYChange.Decimal.String())
	assert.Equal(t, "5210.55", m.SPXLevel.Decimal.String())
	assert.Equal(t, "-1.2", m.SPXChange.Decimal.String())
	assert.False(t, m.StockBondCorrelation.Valid)
	assert.False(t, m.CreditStress.Valid)
	assert.Equal(t, []float64{100, 101}, m.EquityCloses)
	assert.Equal(t, at, m.AsOf)

	raw := regime.Inputs(m, regime.AlertSnapshot{})
	require.NotNil(t, raw[regime.KeyYieldCurve])
	assert.Equal(t, -12.0, *raw[regime.KeyYieldCurve])
	assert.Equal(t, -1.2, *raw[regime.KeyEquityTrend])
}

func TestFromSnapshot_DXYWithoutChange(t *testing.T) {
	m := FromSnapshot(models.MarketSnapshot{Data: []models.MarketItem{{Label: "DXY", Value: "104.2"}}})
	assert.False(t, m.DXYChange.Valid)
	assert.True(t, m.DXYLevel.Valid)
}

func TestSnapshotSource(t *testing.T) {
	repo := store.NewRepository(store.NewMemoryStore(), "", nil)
	snaps := store.NewMarketSnapshotStore(repo)
	src := NewSnapshotSource(snaps, nil)
	ctx := context.Background()

	m, err := src.Metrics(ctx)
	require.NoError(t, err)
	assert.False(t, m.VIX.Valid, "no snapshot means no readings")

	require.NoError(t, snaps.Save(ctx, models.MarketSnapshot{Data: []models.MarketItem{{Label: "VIX", Value: "31.5"}}}))
	m, err = src.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, "31.5", m.VIX.Decimal.String())

	state := regime.Evaluate(regime.Inputs(m, regime.AlertSnapshot{}), time.Now())
	assert.Equal(t, "Crisis", state.Indicators[regime.KeyVIX].Label)
	assert.Equal(t, "High", state.Indicators[regime.KeyCreditStress].Label)
}

func TestSnapshotSource_LoadError(t *testing.T) {
	_, err := NewSnapshotSource(failingLoader{}, nil).Metrics(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

func TestStaticSource(t *testing.T) {
	want := models.MarketMetrics{VIX: change(14)}
	got, err := NewStaticSource(want).Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestValidate(t *testing.T) {
	ok := models.MarketSnapshot{Data: []models.MarketItem{{Label: "VIX", Value: "18"}}, Closes: []float64{1, 2}}
	assert.NoError(t, Validate(ok))
	assert.NoError(t, Validate(models.MarketSnapshot{}))

	bad := []models.MarketSnapshot{
		{Data: []models.MarketItem{{Label: " "}}},
		{Data: []models.MarketItem{{Label: "VIX"}, {Label: "VIX"}}},
		{Closes: []float64{100, math.NaN()}},
		{Closes: []float64{-1}},
	}
	for _, snap := range bad {
		err := Validate(snap)
		require.Error(t, err)
		assert.True(t, utils.IsValidationError(err))
	}
}
