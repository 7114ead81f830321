// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Character identifies a playable character.
type Character string

// Known playable characters.
const (
	Ironclad Character = "IRONCLAD"
	Silent   Character = "THE_SILENT"
	Defect   Character = "DEFECT"
	Watcher  Character = "WATCHER"
	AllChars Character = "ALL"
)

// KnownCharacters lists the released characters in select-screen order.
var KnownCharacters = []Character{Ironclad, Silent, Defect, Watcher}

// IsKnown reports whether c is one of the released characters.
func (c Character) IsKnown() bool {
	for _, k := range KnownCharacters {
		if c == k {
			return true
		}
	}
	return false
}

// Label returns a short display name.
func (c Character) Label() string {
	switch c {
	case Ironclad:
		return "Ironclad"
	case Silent:
		return "Silent"
	case Defect:
		return "Defect"
	case Watcher:
		return "Watcher"
	case AllChars:
		return "All"
	default:
		return string(c)
	}
}

// ParseCharacter accepts upper or lower case identifiers plus the short aliases
// "silent" and "all". Unknown identifiers are returned as-is so that filtering
// on them simply matches nothing.
func ParseCharacter(s string) Character {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "", string(AllChars):
		return AllChars
	case "SILENT":
		return Silent
	}
	return Character(s)
}

// VictoryDerivation selects how a run's victory flag is computed.
type VictoryDerivation string

// Victory derivation strategies.
const (
	VictoryFromField      VictoryDerivation = "fromField"
	VictoryFloorEqualsMax VictoryDerivation = "floorEqualsMax"
)

// ParseVictoryDerivation validates a derivation name.
func ParseVictoryDerivation(s string) (VictoryDerivation, error) {
	switch VictoryDerivation(strings.TrimSpace(s)) {
	case VictoryFromField:
		return VictoryFromField, nil
	case VictoryFloorEqualsMax:
		return VictoryFloorEqualsMax, nil
	}
	return "", fmt.Errorf("unknown victory derivation %q (use %s or %s)", s, VictoryFromField, VictoryFloorEqualsMax)
}

// Game constants used as defaults.
const (
	DefaultMinAscension = 20
	DefaultMinFloor     = 2
	DefaultMaxFloor     = 57
	DefaultWindow       = 50
)

// PipelineConfig controls discovery, normalization and cohort selection.
type PipelineConfig struct {
	RootPath     string
	MinAscension int
	MinFloor     int
	MaxFloor     int
	Victory      VictoryDerivation
	ExcludeDaily bool
}

// DefaultPipelineConfig returns the settings matching the most recent game
// data layout.
func DefaultPipelineConfig(root string) PipelineConfig {
	return PipelineConfig{
		RootPath:     root,
		MinAscension: DefaultMinAscension,
		MinFloor:     DefaultMinFloor,
		MaxFloor:     DefaultMaxFloor,
		Victory:      VictoryFromField,
		ExcludeDaily: true,
	}
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Window    int
	Character Character
	Since     *time.Time
	Last      int
}

// RunRecord is one normalized game attempt.
type RunRecord struct {
	ID              string
	Timestamp       time.Time
	PlaytimeSeconds int
	AscensionLevel  int
	Character       Character
	FloorReached    int
	Victory         bool
	// VictoryField is the file's own victory flag, nil when absent. Victory is
	// derived from it or from FloorReached depending on the configured rule.
	VictoryField *bool
	DeckSize     int
	MaxHP        int
	IsDaily      bool
	KilledBy     string
	Seed         string
}

// WindowPoint is one sample of a rolling window ending at Index.
type WindowPoint struct {
	Index      int     `json:"index" yaml:"index"`
	WinRate    float64 `json:"win_rate" yaml:"win_rate"`
	DepthRatio float64 `json:"depth_ratio" yaml:"depth_ratio"`
}
