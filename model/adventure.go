package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/daggergm/daggergm/helper"
)

// Regeneration budget limits per adventure. Both counters are capacity
// limits, not monetization; no credits are consumed by regeneration.
const (
	MaxScaffoldRegens  = 10
	MaxExpansionRegens = 20
)

// Scaffold size bounds per adventure.
const (
	MinScenes = 3
	MaxScenes = 5
)

// SceneType classifies one beat of an adventure.
type SceneType string

const (
	SceneTypeCombat      SceneType = "combat"
	SceneTypeExploration SceneType = "exploration"
	SceneTypeSocial      SceneType = "social"
	SceneTypePuzzle      SceneType = "puzzle"
)

// Valid reports whether t is a known scene type.
func (t SceneType) Valid() bool {
	switch t {
	case SceneTypeCombat, SceneTypeExploration, SceneTypeSocial, SceneTypePuzzle:
		return true
	}
	return false
}

// SceneState is the per-scene confirmation lifecycle state. It is derived
// from the expansion fields rather than stored, so the invariants stay
// checkable from the persisted data alone.
type SceneState string

const (
	SceneNotExpanded SceneState = "not_expanded"
	SceneExpanded    SceneState = "expanded"
	SceneConfirmed   SceneState = "confirmed"
)

// NPCRole classifies a generated NPC's relationship to the party.
type NPCRole string

const (
	NPCRoleAlly       NPCRole = "ally"
	NPCRoleNeutral    NPCRole = "neutral"
	NPCRoleAntagonist NPCRole = "antagonist"
	NPCRoleQuestGiver NPCRole = "quest_giver"
)

// Valid reports whether r is a known NPC role.
func (r NPCRole) Valid() bool {
	switch r {
	case NPCRoleAlly, NPCRoleNeutral, NPCRoleAntagonist, NPCRoleQuestGiver:
		return true
	}
	return false
}

// Adventure is the top-level aggregate: parameters, the ordered scene list,
// and the regeneration counters. Scenes are stored as one JSONB blob and
// every mutation rewrites the whole list (copy-on-write), guarded by Version.
type Adventure struct {
	ID                  uuid.UUID `json:"id"`
	OwnerID             string    `json:"owner_id"`
	Title               string    `json:"title"`
	Frame               string    `json:"frame"`
	Focus               string    `json:"focus"`
	Difficulty          string    `json:"difficulty,omitempty"`
	Stakes              string    `json:"stakes,omitempty"`
	PartySize           int       `json:"party_size"`
	PartyLevel          int       `json:"party_level"`
	Scenes              SceneList `json:"scenes"`
	ScaffoldRegensUsed  int       `json:"scaffold_regens_used"`
	ExpansionRegensUsed int       `json:"expansion_regens_used"`
	Version             int       `json:"version"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Scene is one beat of an adventure: a scaffold outline plus an optional
// expansion. The ID is stable across regeneration.
type Scene struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Type        SceneType       `json:"type"`
	Description string          `json:"description"`
	OrderIndex  int             `json:"order_index"`
	Locked      bool            `json:"locked,omitempty"`
	Expansion   *SceneExpansion `json:"expansion,omitempty"`
}

// SceneExpansion is the structured elaboration of a scene. Descriptions is
// the only required component; everything else is optional.
type SceneExpansion struct {
	Descriptions []string        `json:"descriptions"`
	Narration    *string         `json:"narration,omitempty"`
	NPCs         []NPC           `json:"npcs,omitempty"`
	Adversaries  []AdversaryRef  `json:"adversaries,omitempty"`
	Environment  *EnvironmentRef `json:"environment,omitempty"`
	Loot         []LootRef       `json:"loot,omitempty"`
	Confirmed    bool            `json:"confirmed"`
	ConfirmedAt  *time.Time      `json:"confirmed_at,omitempty"`
}

// NPC is a generated non-player character grounded in canonical class,
// ancestry, and community entities. Display names are cached next to the ids
// so rendering never needs a content store round trip.
type NPC struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	ClassID       *uuid.UUID  `json:"class_id,omitempty"`
	ClassName     string      `json:"class_name,omitempty"`
	AncestryID    *uuid.UUID  `json:"ancestry_id,omitempty"`
	AncestryName  string      `json:"ancestry_name,omitempty"`
	CommunityID   *uuid.UUID  `json:"community_id,omitempty"`
	CommunityName string      `json:"community_name,omitempty"`
	Level         int         `json:"level"`
	HP            int         `json:"hp"`
	Stress        int         `json:"stress"`
	Evasion       int         `json:"evasion"`
	EquipmentIDs  []uuid.UUID `json:"equipment_ids,omitempty"`
	Personality   string      `json:"personality,omitempty"`
	Role          NPCRole     `json:"role"`
	Description   string      `json:"description,omitempty"`
}

// AdversaryRef points one adversary instance at a canonical adversary row.
type AdversaryRef struct {
	ID              uuid.UUID `json:"id"`
	ContentEntityID uuid.UUID `json:"content_entity_id"`
	DisplayName     string    `json:"display_name"`
	Quantity        int       `json:"quantity"`
	Customizations  string    `json:"customizations,omitempty"`
}

// EnvironmentRef points the scene environment at a canonical environment row.
type EnvironmentRef struct {
	ContentEntityID   uuid.UUID `json:"content_entity_id"`
	DisplayName       string    `json:"display_name"`
	CustomDescription string    `json:"custom_description,omitempty"`
}

// LootRef points one loot entry at a canonical weapon/armor row.
type LootRef struct {
	ContentEntityID uuid.UUID `json:"content_entity_id"`
	ItemType        Category  `json:"item_type"`
	Quantity        int       `json:"quantity"`
	Tier            int       `json:"tier"`
}

// State derives the scene's confirmation lifecycle state.
func (s *Scene) State() SceneState {
	if s.Expansion == nil {
		return SceneNotExpanded
	}
	if s.Expansion.Confirmed {
		return SceneConfirmed
	}
	return SceneExpanded
}

// SceneByID returns the scene with the given id, or nil.
func (a *Adventure) SceneByID(sceneID uuid.UUID) *Scene {
	for i := range a.Scenes {
		if a.Scenes[i].ID == sceneID {
			return &a.Scenes[i]
		}
	}
	return nil
}

// ReplaceScene returns a copy of the scene list with the scene of the same
// id replaced. The receiver's list is left untouched so callers get
// copy-on-write semantics for aggregate updates.
func (a *Adventure) ReplaceScene(updated Scene) (SceneList, bool) {
	replaced := false
	scenes := make(SceneList, len(a.Scenes))
	for i, scene := range a.Scenes {
		if scene.ID == updated.ID {
			scenes[i] = updated
			replaced = true
		} else {
			scenes[i] = scene
		}
	}
	return scenes, replaced
}

// SceneList is the ordered scene collection, stored as a single JSONB value.
type SceneList []Scene

// Value implements the driver.Valuer interface for database storage
func (l SceneList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(SceneList{})
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for database retrieval
func (l *SceneList) Scan(value interface{}) error {
	if value == nil {
		*l = SceneList{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}

	return json.Unmarshal(b, l)
}

// NPCStats are the derived combat numbers for a generated NPC.
type NPCStats struct {
	Level   int
	HP      int
	Stress  int
	Evasion int
}

// DeriveNPCStats computes NPC numbers from the party level and the tier of
// the NPC's class reference. The formulas are intentionally simple monotone
// functions; they live here so swapping in real game math touches one place.
func DeriveNPCStats(partyLevel, classTier int) NPCStats {
	if partyLevel < 1 {
		partyLevel = 1
	}
	if classTier < 1 {
		classTier = TierCeiling(partyLevel)
	}
	return NPCStats{
		Level:   partyLevel,
		HP:      4 + 2*classTier,
		Stress:  4 + classTier,
		Evasion: 9 + partyLevel/2,
	}
}
