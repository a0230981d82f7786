package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/daggergm/daggergm/helper"
	"github.com/daggergm/daggergm/model"
)

// SeedEntity is one row of the one-time content load before embedding.
type SeedEntity struct {
	Category   model.Category   `json:"category"`
	Name       string           `json:"name"`
	Tier       *int             `json:"tier,omitempty"`
	Attributes model.Attributes `json:"attributes,omitempty"`
}

// Seeder turns raw seed rows into embedded content entities
type Seeder struct {
	Embedder EmbedFunc
}

// NewSeeder creates a new content seeder
func NewSeeder(embedder EmbedFunc) *Seeder {
	return &Seeder{Embedder: embedder}
}

// Process validates the seed rows, builds their searchable text, and
// generates an embedding for each. It returns entities ready for insertion;
// no database write happens here.
func (s *Seeder) Process(entities []SeedEntity) ([]*model.ContentEntity, error) {
	if s.Embedder == nil {
		return nil, helper.NewError("process seed entities", fmt.Errorf("embedder not set"))
	}

	results := make([]*model.ContentEntity, 0, len(entities))
	for i, seed := range entities {
		if !seed.Category.Valid() {
			return nil, helper.NewError("validate seed entity", fmt.Errorf("entity %d: unknown category %q", i, seed.Category))
		}
		if strings.TrimSpace(seed.Name) == "" {
			return nil, helper.NewError("validate seed entity", fmt.Errorf("entity %d: empty name", i))
		}
		if seed.Category.Tiered() {
			if seed.Tier == nil || *seed.Tier < 1 || *seed.Tier > 3 {
				return nil, helper.NewError("validate seed entity", fmt.Errorf("entity %d (%s): tiered category requires tier 1-3", i, seed.Name))
			}
		} else if seed.Tier != nil {
			return nil, helper.NewError("validate seed entity", fmt.Errorf("entity %d (%s): untiered category must not carry a tier", i, seed.Name))
		}

		searchableText := BuildSearchableText(seed)
		embedding, err := s.Embedder(searchableText)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("embed seed entity %d (%s)", i, seed.Name), err)
		}

		results = append(results, &model.ContentEntity{
			Category:       seed.Category,
			Name:           seed.Name,
			Tier:           seed.Tier,
			Attributes:     seed.Attributes,
			SearchableText: searchableText,
			Embedding:      embedding,
		})
	}

	return results, nil
}

// BuildSearchableText flattens a seed row into the summary string that gets
// embedded and indexed for full-text fallback. Attribute keys are emitted in
// sorted order so the text is deterministic for a given row.
func BuildSearchableText(seed SeedEntity) string {
	var b strings.Builder
	b.WriteString(string(seed.Category))
	b.WriteString(": ")
	b.WriteString(seed.Name)
	if seed.Tier != nil {
		fmt.Fprintf(&b, " (tier %d)", *seed.Tier)
	}

	keys := make([]string, 0, len(seed.Attributes))
	for k := range seed.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, ". %s: %v", k, seed.Attributes[k])
	}

	return b.String()
}
