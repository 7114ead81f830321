// Package stats computes rolling run statistics and renders them.
package stats

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/verte-zerg/spirecurve/internal/model"
	"github.com/verte-zerg/spirecurve/internal/runs"
)

// ErrInvalidParameter is returned for window sizes or floor counts below one.
var ErrInvalidParameter = errors.New("invalid parameter")

const sparkChars = " .:-=+*#%@"

// Aggregate computes win rate and depth ratio over every full window of
// window consecutive records ending at each index of the sequence, after
// restricting it to character (AllChars keeps every record). The second result
// is the length of the restricted sequence. Fewer records than window yields
// an empty, non-nil slice.
func Aggregate(seq []model.RunRecord, window int, character model.Character, maxFloor int) ([]model.WindowPoint, int, error) {
	if window < 1 {
		return nil, 0, fmt.Errorf("%w: window size must be >= 1, got %d", ErrInvalidParameter, window)
	}
	if maxFloor < 1 {
		return nil, 0, fmt.Errorf("%w: max floor must be >= 1, got %d", ErrInvalidParameter, maxFloor)
	}
	restricted := runs.ByCharacter(seq, character)
	n := len(restricted)
	if n < window {
		return []model.WindowPoint{}, n, nil
	}
	points := make([]model.WindowPoint, 0, n-window+1)
	for i := window - 1; i < n; i++ {
		var wins, depth float64
		for _, r := range restricted[i-window+1 : i+1] {
			if r.Victory {
				wins++
			}
			depth += depthRatio(r.FloorReached, maxFloor)
		}
		points = append(points, model.WindowPoint{
			Index:      i,
			WinRate:    wins / float64(window),
			DepthRatio: depth / float64(window),
		})
	}
	return points, n, nil
}

// depthRatio is clamped so records built outside the normalizer stay in [0, 1].
func depthRatio(floor, maxFloor int) float64 {
	ratio := float64(floor) / float64(maxFloor)
	return math.Max(0, math.Min(1, ratio))
}

// LongestVictoryStreak returns the longest run of consecutive victories.
func LongestVictoryStreak(seq []model.RunRecord) int {
	best, current := 0, 0
	for _, r := range seq {
		if !r.Victory {
			current = 0
			continue
		}
		current++
		if current > best {
			best = current
		}
	}
	return best
}

// CountWins returns the number of victories.
func CountWins(seq []model.RunRecord) int {
	wins := 0
	for _, r := range seq {
		if r.Victory {
			wins++
		}
	}
	return wins
}

// WinRate returns the fraction of victories, 0 for an empty sequence.
func WinRate(seq []model.RunRecord) float64 {
	if len(seq) == 0 {
		return 0
	}
	return float64(CountWins(seq)) / float64(len(seq))
}

// AverageFloor returns the mean floor reached, 0 for an empty sequence.
func AverageFloor(seq []model.RunRecord) float64 {
	if len(seq) == 0 {
		return 0
	}
	total := 0
	for _, r := range seq {
		total += r.FloorReached
	}
	return float64(total) / float64(len(seq))
}

// FormatPlaytime renders seconds as HH:MM:SS; hours are not wrapped.
func FormatPlaytime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// Sparkline renders values in [lo, hi] as a single line of ASCII ramps.
func Sparkline(values []float64, lo, hi float64) string {
	if len(values) == 0 {
		return ""
	}
	if hi-lo < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	top := len(sparkChars) - 1
	for _, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(top)))
		idx = max(0, min(top, idx))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}
