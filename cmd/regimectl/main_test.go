package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/irfndi/quant-regime/internal/models"
	"github.com/irfndi/quant-regime/internal/positioning"
	"github.com/irfndi/quant-regime/internal/regime"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeSnapshot(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestSimulate_JSON(t *testing.T) {
	out, err := execute(t, "simulate", "--seed", "42", "--window", "30", "--format", "json")
	require.NoError(t, err)

	var res simulation
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 30, res.Window)
	assert.Equal(t, 250, res.Days)
	assert.Len(t, res.Matrix.Symbols, 8)
	assert.NotEmpty(t, res.Headline)
	assert.Len(t, res.Alerts, res.Counts.High+res.Counts.Moderate)
	for i := range res.Matrix.Values {
		assert.InDelta(t, 1.0, res.Matrix.Values[i][i], 1e-9)
	}
}

func TestSimulate_Reproducible(t *testing.T) {
	a, err := execute(t, "simulate", "--seed", "9", "--format", "json")
	require.NoError(t, err)
	b, err := execute(t, "simulate", "--seed", "9", "--format", "json")
	require.NoError(t, err)

	var ra, rb simulation
	require.NoError(t, json.Unmarshal([]byte(a), &ra))
	require.NoError(t, json.Unmarshal([]byte(b), &rb))
	assert.Equal(t, ra.Matrix, rb.Matrix)
	assert.Equal(t, ra.Alerts, rb.Alerts)
}

func TestSimulate_BadFlags(t *testing.T) {
	_, err := execute(t, "simulate", "--window", "45")
	assert.Error(t, err)

	_, err = execute(t, "simulate", "--mode", "svd")
	assert.Error(t, err)
}

func TestRegime_FromSnapshot(t *testing.T) {
	path := writeSnapshot(t, `{"data":[{"label":"VIX","value":"35.2"},{"label":"10Y Yield","value":"4.10%"},{"label":"5Y Yield","value":"4.30%"}]}`)

	out, err := execute(t, "regime", "--snapshot", path, "--format", "json")
	require.NoError(t, err)

	var state models.CompositeRegimeState
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	require.Len(t, state.Indicators, 6)
	assert.Equal(t, "Crisis", state.Indicators[regime.KeyVIX].Label)
	assert.Nil(t, state.Indicators[regime.KeyStockBond].RawValue)
	assert.Equal(t, models.RegimeRiskOff, state.Overall.Label)
}

func TestRegime_WithCorrelations(t *testing.T) {
	path := writeSnapshot(t, `{"data":[{"label":"VIX","value":"14"}]}`)

	out, err := execute(t, "regime", "--snapshot", path, "--correlations", "--seed", "5", "--format", "json")
	require.NoError(t, err)

	var state models.CompositeRegimeState
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.NotNil(t, state.Indicators[regime.KeyStockBond].RawValue)
}

func TestRegime_Errors(t *testing.T) {
	_, err := execute(t, "regime")
	assert.Error(t, err)

	_, err = execute(t, "regime", "--snapshot", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := writeSnapshot(t, `{"data":[{"label":"","value":"1"}]}`)
	_, err = execute(t, "regime", "--snapshot", bad)
	assert.Error(t, err)
}

func TestPositioning_YAML(t *testing.T) {
	out, err := execute(t, "positioning", "--seed", "3", "--lookback", "26")
	require.NoError(t, err)

	var report map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, positioning.SourceSimulated, report["source"])
	assert.Equal(t, 26, report["lookback"])
	contracts, ok := report["contracts"].([]interface{})
	require.True(t, ok)
	assert.Len(t, contracts, len(positioning.Contracts))
}

func TestPositioning_BadLookback(t *testing.T) {
	_, err := execute(t, "positioning", "--lookback", "1")
	assert.Error(t, err)
}

func TestBaselines_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.yaml")
	require.NoError(t, os.WriteFile(path, []byte("five_year:\n  GLD-SPY: 0.42\n"), 0o600))

	out, err := execute(t, "baselines", "--file", path, "--format", "json")
	require.NoError(t, err)

	var tables map[string]map[string]float64
	require.NoError(t, json.Unmarshal([]byte(out), &tables))
	assert.Equal(t, 0.42, tables["five_year"]["SPY-GLD"])
	assert.Equal(t, -0.35, tables["one_year"]["SPY-TLT"])
}

func TestRender_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, render(&buf, "xml", map[string]int{"a": 1}))
}
