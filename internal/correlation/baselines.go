package correlation

import (
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

// Baselines holds historical average correlations keyed by canonical pair.
type Baselines struct {
	OneYear  map[string]float64 `yaml:"one_year"`
	FiveYear map[string]float64 `yaml:"five_year"`
}

var defaultOneYear = map[string]float64{
	"SPY-TLT": -0.35, "SPY-GLD": 0.05, "SPY-DXY": -0.15,
	"SPY-VIX": -0.82, "SPY-HYG": 0.65, "SPY-USO": 0.25, "SPY-EEM": 0.72,
	"TLT-GLD": 0.30, "TLT-DXY": -0.20, "TLT-VIX": 0.40, "TLT-HYG": -0.15,
	"TLT-USO": -0.10, "TLT-EEM": -0.25,
	"GLD-DXY": -0.45, "GLD-VIX": 0.15, "GLD-HYG": -0.05, "GLD-USO": 0.20, "GLD-EEM": 0.15,
	"DXY-VIX": 0.10, "DXY-HYG": -0.20, "DXY-USO": -0.30, "DXY-EEM": -0.55,
	"VIX-HYG": -0.60, "VIX-USO": -0.15, "VIX-EEM": -0.65,
	"HYG-USO": 0.30, "HYG-EEM": 0.55,
	"USO-EEM": 0.35,
}

var defaultFiveYear = map[string]float64{
	"SPY-TLT": -0.25, "SPY-GLD": 0.10, "SPY-DXY": -0.10,
	"SPY-VIX": -0.80, "SPY-HYG": 0.60, "SPY-USO": 0.30, "SPY-EEM": 0.68,
	"TLT-GLD": 0.25, "TLT-DXY": -0.15, "TLT-VIX": 0.35, "TLT-HYG": -0.10,
	"TLT-USO": -0.05, "TLT-EEM": -0.20,
	"GLD-DXY": -0.40, "GLD-VIX": 0.10, "GLD-HYG": 0.00, "GLD-USO": 0.15, "GLD-EEM": 0.10,
	"DXY-VIX": 0.05, "DXY-HYG": -0.15, "DXY-USO": -0.25, "DXY-EEM": -0.50,
	"VIX-HYG": -0.55, "VIX-USO": -0.10, "VIX-EEM": -0.60,
	"HYG-USO": 0.25, "HYG-EEM": 0.50,
	"USO-EEM": 0.30,
}

// DefaultBaselines returns a fresh copy of the built-in 1Y and 5Y tables.
func DefaultBaselines() Baselines {
	return Baselines{
		OneYear:  maps.Clone(defaultOneYear),
		FiveYear: maps.Clone(defaultFiveYear),
	}
}

// LoadBaselines reads a YAML override file and merges it over the built-in
// tables. Keys are canonicalized against the universe, so "DXY-GLD" and
// "GLD-DXY" refer to the same entry.
func LoadBaselines(path string, u *Universe) (Baselines, error) {
	b := DefaultBaselines()
	if path == "" {
		return b, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Baselines{}, fmt.Errorf("read baseline file: %w", err)
	}

	var override Baselines
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Baselines{}, fmt.Errorf("parse baseline file %s: %w", path, err)
	}

	if err := mergeTable(b.OneYear, override.OneYear, u); err != nil {
		return Baselines{}, fmt.Errorf("one_year: %w", err)
	}
	if err := mergeTable(b.FiveYear, override.FiveYear, u); err != nil {
		return Baselines{}, fmt.Errorf("five_year: %w", err)
	}
	return b, nil
}

func mergeTable(dst, src map[string]float64, u *Universe) error {
	for key, v := range src {
		canon, ok := u.Canonical(key)
		if !ok {
			return fmt.Errorf("malformed pair key %q", key)
		}
		if v < -1 || v > 1 {
			return fmt.Errorf("baseline %s = %v outside [-1, 1]", key, v)
		}
		dst[canon] = v
	}
	return nil
}

// OneYearFor returns the 1-year baseline for a canonical key.
func (b Baselines) OneYearFor(key string) (float64, bool) {
	v, ok := b.OneYear[key]
	return v, ok
}

// FiveYearFor returns the 5-year baseline for a canonical key.
func (b Baselines) FiveYearFor(key string) (float64, bool) {
	v, ok := b.FiveYear[key]
	return v, ok
}
