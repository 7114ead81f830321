package stats

import (
	"fmt"
	"io"
	"strconv"

	"github.com/verte-zerg/spirecurve/internal/model"
)

const runTimeLayout = "2006-01-02 15:04:05"

// killedByWidth bounds the killer column; event encounter names run long.
const killedByWidth = 24

var summaryColumns = []column{
	{Title: "Character"},
	{Title: "Runs", Right: true},
	{Title: "Wins", Right: true},
	{Title: "Win rate", Right: true},
	{Title: "Avg floor", Right: true},
	{Title: "Best streak", Right: true},
	{Title: "Trend"},
}

var runColumns = []column{
	{Title: "Time"},
	{Title: "Playtime"},
	{Title: "Max HP", Right: true},
	{Title: "Deck", Right: true},
	{Title: "Floor", Right: true},
	{Title: "Victory"},
	{Title: "Character"},
	{Title: "Killed by", MaxWidth: killedByWidth},
}

// RenderSummary prints one row per curve with totals and a win-rate trend.
func RenderSummary(w io.Writer, report Report) error {
	if len(report.Records) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	rows := make([][]string, 0, len(report.PerCharacter)+1)
	for _, c := range report.Curves() {
		rows = append(rows, []string{
			c.Character.Label(),
			strconv.Itoa(c.Considered),
			strconv.Itoa(c.Wins),
			fmt.Sprintf("%.1f%%", c.WinRate()*100),
			fmt.Sprintf("%.1f", c.AvgFloor),
			strconv.Itoa(c.Streak),
			Sparkline(trendValues(c.Points, 24), 0, 1),
		})
	}
	if _, err := fmt.Fprintf(w, "Summary (window %d, max floor %d)\n", report.Window, report.MaxFloor); err != nil {
		return err
	}
	for _, line := range formatTable(summaryColumns, rows) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// trendValues downsamples win rates to at most n buckets for a sparkline.
func trendValues(points []model.WindowPoint, n int) []float64 {
	if len(points) == 0 {
		return nil
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.WinRate
	}
	if len(values) <= n {
		return values
	}
	return resample(values, n)
}

// RenderRuns prints every run in order followed by the overall win rate and
// the longest victory streak.
func RenderRuns(w io.Writer, records []model.RunRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Timestamp.Format(runTimeLayout),
			FormatPlaytime(r.PlaytimeSeconds),
			strconv.Itoa(r.MaxHP),
			strconv.Itoa(r.DeckSize),
			strconv.Itoa(r.FloorReached),
			strconv.FormatBool(r.Victory),
			string(r.Character),
			r.KilledBy,
		})
	}
	for _, line := range formatTable(runColumns, rows) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "\nRuns: %d  Wins: %d  Win rate: %.4f\n", len(records), CountWins(records), WinRate(records)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Longest victory streak: %d\n", LongestVictoryStreak(records))
	return err
}
