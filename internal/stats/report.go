package stats

import (
	"fmt"
	"strings"

	"github.com/verte-zerg/spirecurve/internal/model"
	"github.com/verte-zerg/spirecurve/internal/runs"
)

// Curve holds the rolling statistics of one character (or of all of them).
type Curve struct {
	Character  model.Character
	Points     []model.WindowPoint
	Considered int
	Wins       int
	Streak     int
	AvgFloor   float64
}

// WinRate returns the overall win rate of the records behind the curve.
func (c Curve) WinRate() float64 {
	if c.Considered == 0 {
		return 0
	}
	return float64(c.Wins) / float64(c.Considered)
}

// Title returns a panel title such as "Defect (w=50, 212 runs)".
func (c Curve) Title(window int) string {
	return fmt.Sprintf("%s (w=%d, %d runs)", c.Character.Label(), window, c.Considered)
}

// Series converts the curve into plottable series.
func (c Curve) Series() []Series {
	indices := make([]int, len(c.Points))
	win := make([]float64, len(c.Points))
	depth := make([]float64, len(c.Points))
	for i, p := range c.Points {
		indices[i] = p.Index
		win[i] = p.WinRate
		depth[i] = p.DepthRatio
	}
	return []Series{
		{Name: "Win rate", Indices: indices, Values: win},
		{Name: "Depth", Indices: indices, Values: depth},
	}
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Window       int
	MaxFloor     int
	Records      []model.RunRecord
	Overall      Curve
	PerCharacter []Curve
}

// BuildReport applies the stats filters to a chronological cohort and
// computes the overall curve plus one curve per character. When cfg selects a
// single character only that curve is built.
func BuildReport(records []model.RunRecord, cfg model.StatsConfig, maxFloor int) (Report, error) {
	selected := records
	if cfg.Since != nil {
		since := *cfg.Since
		selected = make([]model.RunRecord, 0, len(records))
		for _, r := range records {
			if !r.Timestamp.Before(since) {
				selected = append(selected, r)
			}
		}
	}
	if cfg.Last > 0 && len(selected) > cfg.Last {
		selected = selected[len(selected)-cfg.Last:]
	}

	character := cfg.Character
	if character == "" {
		character = model.AllChars
	}
	overall, err := buildCurve(selected, cfg.Window, character, maxFloor)
	if err != nil {
		return Report{}, err
	}
	report := Report{
		Window:   cfg.Window,
		MaxFloor: maxFloor,
		Records:  selected,
		Overall:  overall,
	}
	if character != model.AllChars {
		return report, nil
	}
	for _, ch := range model.KnownCharacters {
		curve, err := buildCurve(selected, cfg.Window, ch, maxFloor)
		if err != nil {
			return Report{}, err
		}
		report.PerCharacter = append(report.PerCharacter, curve)
	}
	return report, nil
}

func buildCurve(records []model.RunRecord, window int, character model.Character, maxFloor int) (Curve, error) {
	points, considered, err := Aggregate(records, window, character, maxFloor)
	if err != nil {
		return Curve{}, err
	}
	restricted := runs.ByCharacter(records, character)
	return Curve{
		Character:  character,
		Points:     points,
		Considered: considered,
		Wins:       CountWins(restricted),
		Streak:     LongestVictoryStreak(restricted),
		AvgFloor:   AverageFloor(restricted),
	}, nil
}

// Curves returns the overall curve followed by the per-character ones.
func (r Report) Curves() []Curve {
	return append([]Curve{r.Overall}, r.PerCharacter...)
}

// Present sends every non-empty curve to p, overall first.
func (r Report) Present(p Presenter) error {
	for _, c := range r.Curves() {
		if len(c.Points) == 0 {
			continue
		}
		if err := p.Present(c.Title(r.Window), c.Series()); err != nil {
			return fmt.Errorf("failed to present %s: %w", strings.ToLower(c.Character.Label()), err)
		}
	}
	return nil
}
