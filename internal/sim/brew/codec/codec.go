package codec

import (
	"encoding/json"
	"math"

	"tealeaf.ai/internal/sim/brew/ingredient"
	"tealeaf.ai/internal/sim/brew/vessel"
)

const (
	KeyLevel       = "level"
	KeyNeedsUpdate = "needsUpdate"
	KeyIngredients = "Ingredients"
	KeyID          = "id"
	KeyFlair       = "flair"
	KeyStrength    = "strength"
	KeyColour      = "colour"
)

// Tree is the generic structured form a vessel is persisted as.
type Tree = map[string]any

func Encode(v *vessel.Vessel) Tree {
	t := Tree{
		KeyLevel:       v.Level(),
		KeyNeedsUpdate: v.Dirty(),
	}
	recs := v.Records()
	if len(recs) == 0 {
		return t
	}
	list := make([]any, 0, len(recs))
	for _, r := range recs {
		m := map[string]any{
			KeyID:       r.Item,
			KeyStrength: r.Intensity,
			KeyFlair:    r.Flair,
		}
		if r.Colour != "" {
			m[KeyColour] = r.Colour
		}
		list = append(list, m)
	}
	t[KeyIngredients] = list
	return t
}

// Decode never fails: missing or ill-typed fields fall back to an empty vessel.
func Decode(t Tree, maxLevel int) *vessel.Vessel {
	if t == nil {
		return vessel.New(maxLevel)
	}
	level, _ := intField(t[KeyLevel])
	dirty, _ := t[KeyNeedsUpdate].(bool)
	return vessel.Restore(maxLevel, level, decodeIngredients(t[KeyIngredients]), dirty)
}

func decodeIngredients(raw any) []ingredient.Record {
	list, ok := raw.([]any)
	if !ok {
		if maps, ok := raw.([]map[string]any); ok {
			list = make([]any, len(maps))
			for i, m := range maps {
				list[i] = m
			}
		}
	}
	var out []ingredient.Record
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		id, _ := m[KeyID].(string)
		if id == "" {
			continue
		}
		r := ingredient.Record{Item: id, Intensity: ingredient.DefaultIntensity}
		if n, ok := intField(m[KeyStrength]); ok {
			r.Intensity = n
		}
		if n, ok := intField(m[KeyFlair]); ok {
			r.Flair = n
		}
		r.Colour, _ = m[KeyColour].(string)
		out = append(out, r)
	}
	return out
}

// intField accepts whole numbers within the int32 range; anything else is treated as absent.
func intField(v any) (int, bool) {
	var i int64
	switch n := v.(type) {
	case int:
		i = int64(n)
	case int8:
		i = int64(n)
	case int16:
		i = int64(n)
	case int32:
		i = int64(n)
	case int64:
		i = n
	case uint8:
		i = int64(n)
	case uint16:
		i = int64(n)
	case uint32:
		i = int64(n)
	case float64:
		// NaN fails the first check, infinities the second.
		if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
			return 0, false
		}
		i = int64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return intField(f)
	default:
		return 0, false
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return 0, false
	}
	return int(i), true
}
