// Package export serializes stats reports for other tools.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/spirecurve/internal/stats"
)

// Format names an output encoding.
type Format string

// Supported formats.
const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml" in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unknown export format %q (use json or yaml)", s)
}

// Document is the serialized shape of a report.
type Document struct {
	Window   int             `json:"window" yaml:"window"`
	MaxFloor int             `json:"max_floor" yaml:"max_floor"`
	Runs     int             `json:"runs" yaml:"runs"`
	From     *time.Time      `json:"from,omitempty" yaml:"from,omitempty"`
	To       *time.Time      `json:"to,omitempty" yaml:"to,omitempty"`
	Curves   []CurveDocument `json:"curves" yaml:"curves"`
}

// CurveDocument is one character's curve.
type CurveDocument struct {
	Character string        `json:"character" yaml:"character"`
	Runs      int           `json:"runs" yaml:"runs"`
	Wins      int           `json:"wins" yaml:"wins"`
	WinRate   float64       `json:"win_rate" yaml:"win_rate"`
	AvgFloor  float64       `json:"avg_floor" yaml:"avg_floor"`
	Streak    int           `json:"longest_streak" yaml:"longest_streak"`
	Points    []PointRecord `json:"points" yaml:"points"`
}

// PointRecord is a window point with a 1-based run number.
type PointRecord struct {
	Run        int     `json:"run" yaml:"run"`
	WinRate    float64 `json:"win_rate" yaml:"win_rate"`
	DepthRatio float64 `json:"depth_ratio" yaml:"depth_ratio"`
}

// NewDocument flattens a report.
func NewDocument(report stats.Report) Document {
	doc := Document{
		Window:   report.Window,
		MaxFloor: report.MaxFloor,
		Runs:     len(report.Records),
		Curves:   make([]CurveDocument, 0, len(report.PerCharacter)+1),
	}
	if n := len(report.Records); n > 0 {
		from, to := report.Records[0].Timestamp, report.Records[n-1].Timestamp
		doc.From, doc.To = &from, &to
	}
	for _, c := range report.Curves() {
		cd := CurveDocument{
			Character: string(c.Character),
			Runs:      c.Considered,
			Wins:      c.Wins,
			WinRate:   c.WinRate(),
			AvgFloor:  c.AvgFloor,
			Streak:    c.Streak,
			Points:    make([]PointRecord, len(c.Points)),
		}
		for i, p := range c.Points {
			cd.Points[i] = PointRecord{Run: p.Index + 1, WinRate: p.WinRate, DepthRatio: p.DepthRatio}
		}
		doc.Curves = append(doc.Curves, cd)
	}
	return doc
}

// Write encodes report to w.
func Write(w io.Writer, report stats.Report, format Format) error {
	doc := NewDocument(report)
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown export format %q", format)
}
