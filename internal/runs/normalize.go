// Package runs turns decoded run files into normalized records and selects
// the comparable cohort.
package runs

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/spirecurve/internal/model"
)

// TimestampLayout is the layout of the local_time field.
const TimestampLayout = "20060102150405"

var fallbackIDNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("spirecurve/run"))

// Normalizer converts raw decoded records into RunRecords.
type Normalizer struct {
	MaxFloor int
	Victory  model.VictoryDerivation
	// Location is used to interpret local_time; time.Local when nil.
	Location *time.Location
}

// NewNormalizer builds a Normalizer from pipeline settings.
func NewNormalizer(cfg model.PipelineConfig) Normalizer {
	return Normalizer{MaxFloor: cfg.MaxFloor, Victory: cfg.Victory}
}

// Normalize validates raw and derives the canonical record. Any shape problem
// is reported as a *MalformedRecordError.
func (n Normalizer) Normalize(raw map[string]any) (model.RunRecord, error) {
	if n.MaxFloor < 1 {
		return model.RunRecord{}, fmt.Errorf("max floor must be >= 1, got %d", n.MaxFloor)
	}
	derivation := n.Victory
	if derivation == "" {
		derivation = model.VictoryFromField
	}
	if err := validateShape(raw, derivation); err != nil {
		return model.RunRecord{}, err
	}

	var rec model.RunRecord
	var err error

	localTime, _ := raw["local_time"].(string)
	loc := n.Location
	if loc == nil {
		loc = time.Local
	}
	rec.Timestamp, err = time.ParseInLocation(TimestampLayout, localTime, loc)
	if err != nil {
		return model.RunRecord{}, malformed("local_time", "invalid timestamp %q", localTime)
	}

	if rec.PlaytimeSeconds, err = intField(raw, "playtime"); err != nil {
		return model.RunRecord{}, err
	}
	if rec.AscensionLevel, err = intField(raw, "ascension_level"); err != nil {
		return model.RunRecord{}, err
	}
	if rec.FloorReached, err = intField(raw, "floor_reached"); err != nil {
		return model.RunRecord{}, err
	}

	character, _ := raw["character_chosen"].(string)
	rec.Character = model.Character(character)

	deck, _ := raw["master_deck"].([]any)
	rec.DeckSize = len(deck)

	hps, _ := raw["max_hp_per_floor"].([]any)
	if len(hps) == 0 {
		return model.RunRecord{}, malformed("max_hp_per_floor", "empty sequence")
	}
	if rec.MaxHP, err = toInt("max_hp_per_floor", hps[len(hps)-1]); err != nil {
		return model.RunRecord{}, err
	}

	rec.IsDaily, _ = raw["is_daily"].(bool)
	rec.KilledBy, _ = raw["killed_by"].(string)
	rec.Seed = stringish(raw["seed_played"])

	if v, ok := raw["victory"].(bool); ok {
		rec.VictoryField = &v
	}

	rec.ID = recordID(raw, rec)
	return n.Rederive(rec)
}

// Rederive re-applies the floor bound and the victory rule to a record that
// was normalized earlier, possibly under other settings.
func (n Normalizer) Rederive(rec model.RunRecord) (model.RunRecord, error) {
	if n.MaxFloor < 1 {
		return model.RunRecord{}, fmt.Errorf("max floor must be >= 1, got %d", n.MaxFloor)
	}
	if rec.FloorReached > n.MaxFloor {
		return model.RunRecord{}, malformed("floor_reached", "%d exceeds max floor %d", rec.FloorReached, n.MaxFloor)
	}
	switch n.Victory {
	case model.VictoryFloorEqualsMax:
		rec.Victory = rec.FloorReached == n.MaxFloor
	case model.VictoryFromField, "":
		if rec.VictoryField == nil {
			return model.RunRecord{}, malformed("victory", "missing")
		}
		rec.Victory = *rec.VictoryField
	default:
		return model.RunRecord{}, fmt.Errorf("unknown victory derivation %q", n.Victory)
	}
	return rec, nil
}

func recordID(raw map[string]any, rec model.RunRecord) string {
	if s, ok := raw["play_id"].(string); ok {
		if id, err := uuid.Parse(s); err == nil {
			return id.String()
		}
	}
	key := strings.Join([]string{
		rec.Timestamp.Format(TimestampLayout),
		string(rec.Character),
		rec.Seed,
		fmt.Sprint(rec.FloorReached),
		fmt.Sprint(rec.PlaytimeSeconds),
	}, "|")
	return uuid.NewSHA1(fallbackIDNamespace, []byte(key)).String()
}

func intField(raw map[string]any, field string) (int, error) {
	v, ok := raw[field]
	if !ok {
		return 0, malformed(field, "missing")
	}
	return toInt(field, v)
}

func toInt(field string, v any) (int, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, malformed(field, "not an integer: %s", n)
		}
		return int(i), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, malformed(field, "not an integer: %v", n)
		}
		return int(n), nil
	default:
		return 0, malformed(field, "expected integer, got %T", v)
	}
}

func stringish(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}
