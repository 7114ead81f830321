package runs

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/verte-zerg/spirecurve/internal/model"
)

const baseSchema = `{
  "type": "object",
  "required": [
    "local_time", "playtime", "ascension_level", "character_chosen",
    "floor_reached", "master_deck", "max_hp_per_floor"
  ],
  "properties": {
    "local_time":       {"type": "string", "pattern": "^[0-9]{14}$"},
    "playtime":         {"type": "integer", "minimum": 0},
    "ascension_level":  {"type": "integer", "minimum": 0, "maximum": 20},
    "character_chosen": {"type": "string"},
    "floor_reached":    {"type": "integer", "minimum": 1},
    "master_deck":      {"type": "array"},
    "max_hp_per_floor": {"type": "array", "minItems": 1, "items": {"type": "integer"}},
    "is_daily":         {"type": "boolean"},
    "victory":          {"type": "boolean"},
    "play_id":          {"type": "string"},
    "killed_by":        {"type": ["string", "null"]}
  }
}`

const victoryFieldSchema = `{"allOf": [` + baseSchema + `, {"required": ["victory"]}]}`

var compiledSchemas = sync.OnceValues(func() (map[model.VictoryDerivation]*gojsonschema.Schema, error) {
	out := make(map[model.VictoryDerivation]*gojsonschema.Schema, 2)
	for derivation, src := range map[model.VictoryDerivation]string{
		model.VictoryFromField:      victoryFieldSchema,
		model.VictoryFloorEqualsMax: baseSchema,
	} {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			return nil, fmt.Errorf("failed to compile run schema: %w", err)
		}
		out[derivation] = schema
	}
	return out, nil
})

// validateShape checks the raw record against the run file schema and
// reports the first violation as a MalformedRecordError.
func validateShape(raw map[string]any, derivation model.VictoryDerivation) error {
	schemas, err := compiledSchemas()
	if err != nil {
		return err
	}
	schema, ok := schemas[derivation]
	if !ok {
		return fmt.Errorf("unknown victory derivation %q", derivation)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return malformed("", "%v", err)
	}
	if result.Valid() {
		return nil
	}
	first := result.Errors()[0]
	field, _, _ := strings.Cut(first.Field(), ".")
	if first.Type() == "required" {
		if prop, ok := first.Details()["property"].(string); ok {
			field = prop
		}
	}
	return malformed(field, "%s", first.Description())
}
