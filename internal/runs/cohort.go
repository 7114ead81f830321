package runs

import (
	"sort"

	"github.com/verte-zerg/spirecurve/internal/model"
)

// Cohort selects records comparable enough to aggregate together.
type Cohort struct {
	// MinAscension is a lower bound. The game caps ascension at 20, so the
	// default of 20 admits exactly the top difficulty.
	MinAscension int
	MinFloor     int
	ExcludeDaily bool
}

// NewCohort builds a Cohort from pipeline settings.
func NewCohort(cfg model.PipelineConfig) Cohort {
	return Cohort{
		MinAscension: cfg.MinAscension,
		MinFloor:     cfg.MinFloor,
		ExcludeDaily: cfg.ExcludeDaily,
	}
}

// Eligible reports whether r belongs to the cohort.
func (c Cohort) Eligible(r model.RunRecord) bool {
	if r.AscensionLevel < c.MinAscension {
		return false
	}
	if !r.Character.IsKnown() {
		return false
	}
	if r.FloorReached < c.MinFloor {
		return false
	}
	if c.ExcludeDaily && r.IsDaily {
		return false
	}
	return true
}

// Filter returns the eligible records in their original order.
func (c Cohort) Filter(records []model.RunRecord) []model.RunRecord {
	out := make([]model.RunRecord, 0, len(records))
	for _, r := range records {
		if c.Eligible(r) {
			out = append(out, r)
		}
	}
	return out
}

// SortChronological returns a copy of records stably ordered by timestamp.
func SortChronological(records []model.RunRecord) []model.RunRecord {
	sorted := make([]model.RunRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// ByCharacter restricts records to one character. AllChars returns records
// unchanged; an unknown character yields an empty slice.
func ByCharacter(records []model.RunRecord, c model.Character) []model.RunRecord {
	if c == model.AllChars || c == "" {
		return records
	}
	out := make([]model.RunRecord, 0, len(records))
	for _, r := range records {
		if r.Character == c {
			out = append(out, r)
		}
	}
	return out
}
