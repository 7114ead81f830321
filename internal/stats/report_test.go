package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/spirecurve/internal/model"
)

type recordingPresenter struct {
	titles []string
	series [][]Series
}

func (p *recordingPresenter) Present(title string, series []Series) error {
	p.titles = append(p.titles, title)
	p.series = append(p.series, series)
	return nil
}

func reportFixture() []model.RunRecord {
	chars := []model.Character{
		model.Ironclad, model.Silent, model.Ironclad, model.Defect,
		model.Ironclad, model.Silent, model.Ironclad, model.Watcher,
	}
	victories := []bool{true, false, true, false, false, true, true, false}
	floors := []int{57, 20, 57, 33, 12, 57, 57, 40}
	return seqOf(victories, floors, chars)
}

func TestBuildReportAll(t *testing.T) {
	report, err := BuildReport(reportFixture(), model.StatsConfig{Window: 2, Character: model.AllChars}, 57)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.Overall.Considered != 8 || len(report.Overall.Points) != 7 {
		t.Fatalf("unexpected overall curve: %+v", report.Overall)
	}
	if report.Overall.Wins != 4 || report.Overall.Streak != 2 {
		t.Fatalf("unexpected overall totals: wins=%d streak=%d", report.Overall.Wins, report.Overall.Streak)
	}
	if len(report.PerCharacter) != len(model.KnownCharacters) {
		t.Fatalf("expected %d character curves, got %d", len(model.KnownCharacters), len(report.PerCharacter))
	}
	ironclad := report.PerCharacter[0]
	if ironclad.Character != model.Ironclad || ironclad.Considered != 4 || len(ironclad.Points) != 3 {
		t.Fatalf("unexpected ironclad curve: %+v", ironclad)
	}
	if ironclad.WinRate() != 0.75 {
		t.Fatalf("expected ironclad win rate 0.75, got %v", ironclad.WinRate())
	}
	watcher := report.PerCharacter[3]
	if watcher.Considered != 1 || len(watcher.Points) != 0 {
		t.Fatalf("expected no watcher windows, got %+v", watcher)
	}
}

func TestBuildReportSingleCharacterAndLast(t *testing.T) {
	report, err := BuildReport(reportFixture(), model.StatsConfig{Window: 1, Character: model.Ironclad, Last: 4}, 57)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Records) != 4 {
		t.Fatalf("expected last 4 records, got %d", len(report.Records))
	}
	if report.Overall.Character != model.Ironclad || report.Overall.Considered != 2 {
		t.Fatalf("unexpected curve: %+v", report.Overall)
	}
	if len(report.PerCharacter) != 0 {
		t.Fatalf("expected no per-character curves")
	}
}

func TestBuildReportSince(t *testing.T) {
	records := reportFixture()
	since := records[6].Timestamp
	report, err := BuildReport(records, model.StatsConfig{Window: 1, Since: &since}, 57)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Records) != 2 {
		t.Fatalf("expected 2 records since %s, got %d", since.Format(time.RFC3339), len(report.Records))
	}
	if report.Overall.Character != model.AllChars {
		t.Fatalf("expected empty character to mean all, got %q", report.Overall.Character)
	}
}

func TestBuildReportInvalidWindow(t *testing.T) {
	if _, err := BuildReport(reportFixture(), model.StatsConfig{Window: 0}, 57); err == nil {
		t.Fatalf("expected error for window 0")
	}
}

func TestReportPresentSkipsEmptyCurves(t *testing.T) {
	report, err := BuildReport(reportFixture(), model.StatsConfig{Window: 2}, 57)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	var p recordingPresenter
	if err := report.Present(&p); err != nil {
		t.Fatalf("present: %v", err)
	}
	want := []string{"All (w=2, 8 runs)", "Ironclad (w=2, 4 runs)", "Silent (w=2, 2 runs)"}
	if strings.Join(p.titles, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected panels: %v", p.titles)
	}
	if p.series[0][0].Name != "Win rate" || p.series[0][1].Name != "Depth" {
		t.Fatalf("unexpected series names: %+v", p.series[0])
	}
	if p.series[0][0].Indices[0] != 1 {
		t.Fatalf("expected first index 1, got %d", p.series[0][0].Indices[0])
	}
}

func TestRenderSummary(t *testing.T) {
	report, err := BuildReport(reportFixture(), model.StatsConfig{Window: 2}, 57)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	var buf bytes.Buffer
	if err := RenderSummary(&buf, report); err != nil {
		t.Fatalf("render summary: %v", err)
	}
	out := buf.String()
	for _, needle := range []string{"Summary (window 2, max floor 57)", "Character", "Ironclad", "75.0%", "Watcher"} {
		if !strings.Contains(out, needle) {
			t.Fatalf("summary missing %q:\n%s", needle, out)
		}
	}
}

func TestRenderRuns(t *testing.T) {
	records := reportFixture()[:3]
	records[0].PlaytimeSeconds = 3725
	var buf bytes.Buffer
	if err := RenderRuns(&buf, records); err != nil {
		t.Fatalf("render runs: %v", err)
	}
	out := buf.String()
	for _, needle := range []string{"01:02:05", "IRONCLAD", "THE_SILENT", "Win rate: 0.6667", "Longest victory streak: 1"} {
		if !strings.Contains(out, needle) {
			t.Fatalf("runs output missing %q:\n%s", needle, out)
		}
	}

	buf.Reset()
	if err := RenderRuns(&buf, nil); err != nil {
		t.Fatalf("render runs: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No runs found." {
		t.Fatalf("unexpected empty output %q", buf.String())
	}
}

func TestRenderRunsTruncatesKillerName(t *testing.T) {
	records := reportFixture()[1:2]
	records[0].KilledBy = "Shield and Spear and a Very Long Event Name"
	var buf bytes.Buffer
	if err := RenderRuns(&buf, records); err != nil {
		t.Fatalf("render runs: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, records[0].KilledBy) {
		t.Fatalf("expected killer name to be truncated:\n%s", out)
	}
	if !strings.Contains(out, "Shield and Spear and a …") {
		t.Fatalf("expected ellipsis-cut killer name:\n%s", out)
	}
}
