package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tealeaf.ai/internal/sim/brew/colour"
	"tealeaf.ai/internal/sim/brew/ingredient"
)

const DefaultIngredientTag = "TEA_INGREDIENTS"

type Catalogs struct {
	Items   ItemCatalog
	Colours ColourCatalog
	Brew    BrewCatalog
}

type ItemCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string

	byTag map[string]map[string]struct{}
}

type ItemDef struct {
	ID             string   `json:"id"`
	Kind           string   `json:"kind"` // "INGREDIENT","CONTAINER","MATERIAL"
	Tags           []string `json:"tags,omitempty"`
	TranslationKey string   `json:"translation_key,omitempty"`
}

type ColourCatalog struct {
	Defs    map[string]ColourDef
	Default string
	Digest  string
}

type ColourDef struct {
	ID  string `json:"id"`
	RGB [3]int `json:"rgb"`
}

type BrewCatalog struct {
	Flairs    []string   `json:"flairs"`
	Strengths []string   `json:"strengths"`
	Station   StationDef `json:"station"`
	Digest    string     `json:"-"`
}

type StationDef struct {
	Block         string `json:"block"`
	FilledItem    string `json:"filled_item"`
	EmptyItem     string `json:"empty_item"`
	IngredientTag string `json:"ingredient_tag"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadColours(filepath.Join(configDir, "colours.json"), &c.Colours); err != nil {
		return nil, err
	}
	if err := loadBrew(filepath.Join(configDir, "brew.json"), &c.Brew); err != nil {
		return nil, err
	}
	for _, id := range []string{c.Brew.Station.FilledItem, c.Brew.Station.EmptyItem} {
		if _, ok := c.Items.Defs[id]; !ok {
			return nil, fmt.Errorf("brew.json: station item %q not in items.json", id)
		}
	}

	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[string]ItemDef{}
	out.byTag = map[string]map[string]struct{}{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		out.Defs[d.ID] = d
		for _, tag := range d.Tags {
			tag = strings.ToUpper(strings.TrimSpace(tag))
			if out.byTag[tag] == nil {
				out.byTag[tag] = map[string]struct{}{}
			}
			out.byTag[tag][d.ID] = struct{}{}
		}
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func (c *ItemCatalog) HasTag(item, tag string) bool {
	_, ok := c.byTag[strings.ToUpper(tag)][item]
	return ok
}

// TranslationKey falls back to "item.<id>" in lower case.
func (c *ItemCatalog) TranslationKey(item string) string {
	if d, ok := c.Defs[item]; ok && d.TranslationKey != "" {
		return d.TranslationKey
	}
	return "item." + strings.ToLower(item)
}

// TagSet is an ingredient.AllowSet backed by one item tag.
type TagSet struct {
	items *ItemCatalog
	tag   string
}

func (c *ItemCatalog) TagSet(tag string) TagSet { return TagSet{items: c, tag: tag} }

func (s TagSet) IsValidIngredient(item string) bool { return s.items.HasTag(item, s.tag) }

func loadColours(path string, out *ColourCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var file struct {
		Default string      `json:"default"`
		Colours []ColourDef `json:"colours"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("colours.json: %w", err)
	}
	out.Defs = map[string]ColourDef{}
	for _, d := range file.Colours {
		if d.ID == "" {
			return fmt.Errorf("colours.json: empty id")
		}
		for _, v := range d.RGB {
			if v < 0 || v > 255 {
				return fmt.Errorf("colours.json: %s: rgb out of range", d.ID)
			}
		}
		out.Defs[d.ID] = d
	}
	if _, ok := out.Defs[file.Default]; !ok {
		return fmt.Errorf("colours.json: default %q not defined", file.Default)
	}
	out.Default = file.Default
	return nil
}

func (c *ColourCatalog) Palette() *colour.Palette {
	m := make(map[string]colour.RGB, len(c.Defs))
	for id, d := range c.Defs {
		m[id] = colour.RGB(d.RGB)
	}
	return colour.NewPalette(m, c.Default)
}

func loadBrew(path string, out *BrewCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("brew.json: %w", err)
	}
	out.Digest = sha256Hex(raw)
	if len(out.Flairs) == 0 {
		return fmt.Errorf("brew.json: no flairs")
	}
	if len(out.Strengths) == 0 {
		return fmt.Errorf("brew.json: no strengths")
	}
	if out.Station.FilledItem == "" || out.Station.EmptyItem == "" {
		return fmt.Errorf("brew.json: station items required")
	}
	if out.Station.Block == "" {
		out.Station.Block = "STILL_CAULDRON"
	}
	if out.Station.IngredientTag == "" {
		out.Station.IngredientTag = DefaultIngredientTag
	}
	return nil
}

func (b *BrewCatalog) FlairTable() ingredient.FlairTable {
	return ingredient.FlairTable(append([]string(nil), b.Flairs...))
}
