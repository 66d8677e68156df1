package derive

import (
	"strings"

	"tealeaf.ai/internal/sim/brew/ingredient"
)

// Label tokens shared by every vessel label.
const (
	TokenContainer = "item.tealeaf.bottle"
	TokenOf        = "text.tealeaf.of"
	TokenTea       = "item.tealeaf.tea"
)

type Translator interface {
	Translate(token string) string
}

type Blender interface {
	Blend(colours []string) string
}

// Label is a symbolic "bottle of {tier} {ingredient} tea" name; rendering is left to a Translator.
type Label struct {
	Container  string `json:"container"`
	Of         string `json:"of"`
	Tier       string `json:"tier"`
	Ingredient string `json:"ingredient"`
	Tea        string `json:"tea"`
}

func (l Label) Tokens() []string {
	return []string{l.Container, l.Of, l.Tier, l.Ingredient, l.Tea}
}

func (l Label) Render(tr Translator) string {
	parts := make([]string, 0, 5)
	for _, tok := range l.Tokens() {
		if tok == "" {
			continue
		}
		if tr != nil {
			tok = tr.Translate(tok)
		}
		parts = append(parts, tok)
	}
	return strings.Join(parts, " ")
}

type Properties struct {
	Dominant    ingredient.Record `json:"dominant"`
	HasDominant bool              `json:"has_dominant"`
	Tier        int               `json:"tier"`
	Label       Label             `json:"label"`
	Colour      string            `json:"colour"`
}

type Aggregator struct {
	// Tiers holds one label token per intensity tier, weakest first.
	Tiers     []string
	Blender   Blender
	ItemToken func(item string) string
}

func (a *Aggregator) Compute(l *ingredient.Ledger) Properties {
	p := Properties{
		Label: Label{Container: TokenContainer, Of: TokenOf, Tea: TokenTea},
	}

	p.Dominant, p.HasDominant = l.Primary()
	p.Tier = l.OverallIntensityTier(len(a.Tiers))
	if p.Tier < len(a.Tiers) {
		p.Label.Tier = a.Tiers[p.Tier]
	}
	if p.HasDominant {
		p.Label.Ingredient = p.Dominant.Item
		if a.ItemToken != nil {
			p.Label.Ingredient = a.ItemToken(p.Dominant.Item)
		}
	}

	var colours []string
	for _, r := range l.Records() {
		if r.Colour != "" {
			colours = append(colours, r.Colour)
		}
	}
	if a.Blender != nil {
		p.Colour = a.Blender.Blend(colours)
	}
	return p
}
