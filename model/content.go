package model

import (
	"time"

	"github.com/google/uuid"
)

// Category identifies one kind of canonical rules content.
type Category string

const (
	CategoryAdversary   Category = "adversary"
	CategoryEnvironment Category = "environment"
	CategoryWeapon      Category = "weapon"
	CategoryArmor       Category = "armor"
	CategoryItem        Category = "item"
	CategoryConsumable  Category = "consumable"
	CategoryClass       Category = "class"
	CategoryAncestry    Category = "ancestry"
	CategoryCommunity   Category = "community"
	CategoryDomain      Category = "domain"
	CategoryAbility     Category = "ability"
	CategoryFrame       Category = "frame"
)

// AllCategories lists every content category in seeding order.
var AllCategories = []Category{
	CategoryAdversary,
	CategoryEnvironment,
	CategoryWeapon,
	CategoryArmor,
	CategoryItem,
	CategoryConsumable,
	CategoryClass,
	CategoryAncestry,
	CategoryCommunity,
	CategoryDomain,
	CategoryAbility,
	CategoryFrame,
}

// tieredCategories are the categories whose rows carry a tier and are
// filtered against the party's tier ceiling during retrieval.
var tieredCategories = map[Category]bool{
	CategoryAdversary:   true,
	CategoryEnvironment: true,
	CategoryWeapon:      true,
	CategoryArmor:       true,
	CategoryItem:        true,
	CategoryConsumable:  true,
}

// Valid reports whether c is a known content category.
func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Tiered reports whether rows of this category carry a tier.
func (c Category) Tiered() bool {
	return tieredCategories[c]
}

// TierCeiling returns the highest content tier appropriate for a party level,
// ceil(partyLevel / 3) clamped to the 1-3 tier band.
func TierCeiling(partyLevel int) int {
	ceiling := (partyLevel + 2) / 3
	if ceiling < 1 {
		ceiling = 1
	}
	if ceiling > 3 {
		ceiling = 3
	}
	return ceiling
}

// ContentEntity is one canonical rules database row. Entities are created by
// the one-time seed load and never mutated by the generation engine.
type ContentEntity struct {
	ID             uuid.UUID  `json:"id"`
	Category       Category   `json:"category"`
	Name           string     `json:"name"`
	Tier           *int       `json:"tier,omitempty"` // nil for untiered categories
	Attributes     Attributes `json:"attributes,omitempty"`
	SearchableText string     `json:"searchable_text"`
	Embedding      []float32  `json:"embedding,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	// Results
	Similarity float64 `json:"similarity,omitempty"`
}

// EntityTier returns the entity's tier, or 0 for untiered categories.
func (e *ContentEntity) EntityTier() int {
	if e.Tier == nil {
		return 0
	}
	return *e.Tier
}
