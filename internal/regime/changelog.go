package regime

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/irfndi/quant-regime/internal/models"
)

// DefaultLogCap is the number of change-log entries kept.
const DefaultLogCap = 50

// OverallIndicatorName is the indicator name used for overall label changes.
const OverallIndicatorName = "Overall Regime"

// IDFunc generates change-log entry ids.
type IDFunc func() string

// NewID returns a random UUID string.
func NewID() string { return uuid.NewString() }

// DetectChanges compares next against prev and returns one entry per
// transition, newest first. The overall label change, if any, ends up last
// so that indicator changes sit above it in the log. A nil prev yields no
// entries. Indicators missing from prev are not compared.
func DetectChanges(prev *models.CompositeRegimeState, next models.CompositeRegimeState, at time.Time, id IDFunc) []models.RegimeChange {
	if prev == nil {
		return nil
	}
	if id == nil {
		id = NewID
	}

	var entries []models.RegimeChange
	if prev.Overall.Label != next.Overall.Label {
		entries = append(entries, models.RegimeChange{
			ID:        id(),
			Date:      at,
			Indicator: OverallIndicatorName,
			From:      string(prev.Overall.Label),
			To:        string(next.Overall.Label),
		})
	}
	for _, ind := range Indicators {
		was, ok := prev.Indicators[ind.Key]
		if !ok {
			continue
		}
		now := next.Indicators[ind.Key]
		if was.Label == now.Label {
			continue
		}
		entries = append(entries, models.RegimeChange{
			ID:        id(),
			Date:      at,
			Indicator: ind.Name,
			From:      was.Label,
			To:        now.Label,
		})
	}

	// Each detection was prepended in turn, so the most recently detected
	// entry is at the head.
	slices.Reverse(entries)
	return entries
}

// Prepend puts entries at the head of log and truncates the result to
// maxEntries. A non-positive maxEntries means DefaultLogCap.
func Prepend(log, entries []models.RegimeChange, maxEntries int) []models.RegimeChange {
	if maxEntries <= 0 {
		maxEntries = DefaultLogCap
	}
	out := make([]models.RegimeChange, 0, min(len(entries)+len(log), maxEntries))
	out = append(out, entries...)
	out = append(out, log...)
	if len(out) > maxEntries {
		out = out[:maxEntries]
	}
	return out
}

// Recent returns up to limit of the newest entries. A non-positive limit
// returns the whole log.
func Recent(log []models.RegimeChange, limit int) []models.RegimeChange {
	if limit <= 0 || limit >= len(log) {
		return append([]models.RegimeChange{}, log...)
	}
	return append([]models.RegimeChange{}, log[:limit]...)
}
