package generate

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/daggergm/daggergm/apperror"
	"github.com/daggergm/daggergm/model"
)

// An expansion carries 3 to 5 GM-facing description paragraphs.
const (
	minDescriptions = 3
	maxDescriptions = 5
)

// Decoded generation payloads. These mirror the JSON schemas; validation and
// reference resolution turn them into model types or a typed error.

type scaffoldPayload struct {
	Scenes []sceneOutlinePayload `json:"scenes"`
}

type sceneOutlinePayload struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type expansionPayload struct {
	Descriptions []string            `json:"descriptions"`
	Narration    *string             `json:"narration,omitempty"`
	NPCs         []npcPayload        `json:"npcs,omitempty"`
	Adversaries  []adversaryPayload  `json:"adversaries,omitempty"`
	Environment  *environmentPayload `json:"environment,omitempty"`
	Loot         []lootPayload       `json:"loot,omitempty"`
}

type npcPayload struct {
	Name        string   `json:"name"`
	Class       string   `json:"class,omitempty"`
	Ancestry    string   `json:"ancestry,omitempty"`
	Community   string   `json:"community,omitempty"`
	Equipment   []string `json:"equipment,omitempty"`
	Personality string   `json:"personality,omitempty"`
	Role        string   `json:"role"`
	Description string   `json:"description,omitempty"`
}

type adversaryPayload struct {
	Name           string `json:"name"`
	DisplayName    string `json:"display_name,omitempty"`
	Quantity       int    `json:"quantity"`
	Customizations string `json:"customizations,omitempty"`
}

type environmentPayload struct {
	Name              string `json:"name"`
	CustomDescription string `json:"custom_description,omitempty"`
}

type lootPayload struct {
	Name     string `json:"name"`
	ItemType string `json:"item_type"`
	Quantity int    `json:"quantity"`
}

func decodeScaffold(raw json.RawMessage) (*scaffoldPayload, error) {
	payload := &scaffoldPayload{}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, apperror.NewValidation("malformed scaffold response", err)
	}
	return payload, nil
}

func decodeSceneOutline(raw json.RawMessage) (*sceneOutlinePayload, error) {
	payload := &sceneOutlinePayload{}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, apperror.NewValidation("malformed scene outline response", err)
	}
	return payload, nil
}

func decodeExpansion(raw json.RawMessage) (*expansionPayload, error) {
	payload := &expansionPayload{}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, apperror.NewValidation("malformed expansion response", err)
	}
	return payload, nil
}

// validateSceneOutline checks one scaffold-level scene for required fields
// and a known type.
func validateSceneOutline(index int, outline *sceneOutlinePayload) error {
	if outline.Title == "" {
		return apperror.NewValidation(fmt.Sprintf("scene %d has an empty title", index+1), nil)
	}
	if outline.Description == "" {
		return apperror.NewValidation(fmt.Sprintf("scene %d has an empty description", index+1), nil)
	}
	if !model.SceneType(outline.Type).Valid() {
		return apperror.NewValidation(fmt.Sprintf("scene %d has unknown type %q", index+1, outline.Type), nil)
	}
	return nil
}

// buildScenes turns a validated scaffold payload into a fresh scene list with
// new ids and sequential order indexes.
func buildScenes(payload *scaffoldPayload) (model.SceneList, error) {
	if len(payload.Scenes) < model.MinScenes || len(payload.Scenes) > model.MaxScenes {
		return nil, apperror.NewValidation(
			fmt.Sprintf("scaffold must have %d to %d scenes, got %d", model.MinScenes, model.MaxScenes, len(payload.Scenes)), nil)
	}
	scenes := make(model.SceneList, len(payload.Scenes))
	for i := range payload.Scenes {
		outline := &payload.Scenes[i]
		if err := validateSceneOutline(i, outline); err != nil {
			return nil, err
		}
		scenes[i] = model.Scene{
			ID:          uuid.New(),
			Title:       outline.Title,
			Type:        model.SceneType(outline.Type),
			Description: outline.Description,
			OrderIndex:  i,
		}
	}
	return scenes, nil
}

// mergeRegeneratedScenes overlays a regenerated scaffold onto the existing
// one: locked scenes survive verbatim, unlocked scenes keep their ids and
// order but take the regenerated outline, and their expansions are discarded.
func mergeRegeneratedScenes(existing model.SceneList, payload *scaffoldPayload) (model.SceneList, error) {
	if len(payload.Scenes) != len(existing) {
		return nil, apperror.NewValidation(
			fmt.Sprintf("regenerated scaffold must keep %d scenes, got %d", len(existing), len(payload.Scenes)), nil)
	}
	scenes := make(model.SceneList, len(existing))
	for i, scene := range existing {
		if scene.Locked {
			scenes[i] = scene
			continue
		}
		outline := &payload.Scenes[i]
		if err := validateSceneOutline(i, outline); err != nil {
			return nil, err
		}
		scenes[i] = model.Scene{
			ID:          scene.ID,
			Title:       outline.Title,
			Type:        model.SceneType(outline.Type),
			Description: outline.Description,
			OrderIndex:  scene.OrderIndex,
		}
	}
	return scenes, nil
}

// entityIndex resolves generated names against one candidate list.
type entityIndex map[string]*model.ContentEntity

func indexEntities(entities []*model.ContentEntity) entityIndex {
	index := make(entityIndex, len(entities))
	for _, e := range entities {
		index[e.Name] = e
	}
	return index
}

// buildExpansion validates and resolves one expansion payload into a model
// expansion. Every referenced name must resolve against the candidate set it
// was offered, and every tiered reference is re-checked against the party's
// tier ceiling using the resolved entity's stored tier.
func buildExpansion(payload *expansionPayload, cand *candidateSet, partyLevel int) (*model.SceneExpansion, error) {
	if len(payload.Descriptions) < minDescriptions || len(payload.Descriptions) > maxDescriptions {
		return nil, apperror.NewValidation(
			fmt.Sprintf("expansion must have 3 to 5 descriptions, got %d", len(payload.Descriptions)), nil)
	}
	for i, d := range payload.Descriptions {
		if d == "" {
			return nil, apperror.NewValidation(fmt.Sprintf("expansion description %d is empty", i+1), nil)
		}
	}

	ceiling := model.TierCeiling(partyLevel)
	expansion := &model.SceneExpansion{
		Descriptions: payload.Descriptions,
		Narration:    payload.Narration,
	}

	adversaries, err := resolveAdversaries(payload.Adversaries, indexEntities(cand.Adversaries), ceiling)
	if err != nil {
		return nil, err
	}
	expansion.Adversaries = adversaries

	if payload.Environment != nil {
		environment, err := resolveEnvironment(payload.Environment, indexEntities(cand.Environments), ceiling)
		if err != nil {
			return nil, err
		}
		expansion.Environment = environment
	}

	npcs, err := resolveNPCs(payload.NPCs, cand, partyLevel)
	if err != nil {
		return nil, err
	}
	expansion.NPCs = npcs

	loot, err := resolveLoot(payload.Loot, cand, ceiling)
	if err != nil {
		return nil, err
	}
	expansion.Loot = loot

	return expansion, nil
}

func resolveAdversaries(payloads []adversaryPayload, index entityIndex, ceiling int) ([]model.AdversaryRef, error) {
	if len(payloads) == 0 {
		return nil, nil
	}
	refs := make([]model.AdversaryRef, 0, len(payloads))
	var unresolved []string
	for _, p := range payloads {
		entity, ok := index[p.Name]
		if !ok {
			unresolved = append(unresolved, p.Name)
			continue
		}
		if entity.EntityTier() > ceiling {
			return nil, apperror.NewValidation(
				fmt.Sprintf("adversary %q is tier %d, above the party ceiling %d", entity.Name, entity.EntityTier(), ceiling), nil)
		}
		quantity := p.Quantity
		if quantity < 1 {
			quantity = 1
		}
		displayName := p.DisplayName
		if displayName == "" {
			displayName = entity.Name
		}
		refs = append(refs, model.AdversaryRef{
			ID:              uuid.New(),
			ContentEntityID: entity.ID,
			DisplayName:     displayName,
			Quantity:        quantity,
			Customizations:  p.Customizations,
		})
	}
	if len(unresolved) > 0 {
		return nil, apperror.NewReferenceResolution("adversary", unresolved)
	}
	return refs, nil
}

func resolveEnvironment(payload *environmentPayload, index entityIndex, ceiling int) (*model.EnvironmentRef, error) {
	entity, ok := index[payload.Name]
	if !ok {
		return nil, apperror.NewReferenceResolution("environment", []string{payload.Name})
	}
	if entity.EntityTier() > ceiling {
		return nil, apperror.NewValidation(
			fmt.Sprintf("environment %q is tier %d, above the party ceiling %d", entity.Name, entity.EntityTier(), ceiling), nil)
	}
	return &model.EnvironmentRef{
		ContentEntityID:   entity.ID,
		DisplayName:       entity.Name,
		CustomDescription: payload.CustomDescription,
	}, nil
}

func resolveNPCs(payloads []npcPayload, cand *candidateSet, partyLevel int) ([]model.NPC, error) {
	if len(payloads) == 0 {
		return nil, nil
	}
	classes := indexEntities(cand.Classes)
	ancestries := indexEntities(cand.Ancestries)
	communities := indexEntities(cand.Communities)
	equipment := indexEntities(cand.Weapons)
	for name, e := range indexEntities(cand.Armor) {
		equipment[name] = e
	}

	npcs := make([]model.NPC, 0, len(payloads))
	ceiling := model.TierCeiling(partyLevel)
	for i, p := range payloads {
		if p.Name == "" {
			return nil, apperror.NewValidation(fmt.Sprintf("npc %d has an empty name", i+1), nil)
		}
		if !model.NPCRole(p.Role).Valid() {
			return nil, apperror.NewValidation(fmt.Sprintf("npc %q has unknown role %q", p.Name, p.Role), nil)
		}

		npc := model.NPC{
			ID:          uuid.New(),
			Name:        p.Name,
			Personality: p.Personality,
			Role:        model.NPCRole(p.Role),
			Description: p.Description,
		}

		classTier := 0
		if p.Class != "" {
			entity, ok := classes[p.Class]
			if !ok {
				return nil, apperror.NewReferenceResolution("class", []string{p.Class})
			}
			id := entity.ID
			npc.ClassID = &id
			npc.ClassName = entity.Name
			classTier = entity.EntityTier()
		}
		if p.Ancestry != "" {
			entity, ok := ancestries[p.Ancestry]
			if !ok {
				return nil, apperror.NewReferenceResolution("ancestry", []string{p.Ancestry})
			}
			id := entity.ID
			npc.AncestryID = &id
			npc.AncestryName = entity.Name
		}
		if p.Community != "" {
			entity, ok := communities[p.Community]
			if !ok {
				return nil, apperror.NewReferenceResolution("community", []string{p.Community})
			}
			id := entity.ID
			npc.CommunityID = &id
			npc.CommunityName = entity.Name
		}

		var unresolved []string
		for _, name := range p.Equipment {
			entity, ok := equipment[name]
			if !ok {
				unresolved = append(unresolved, name)
				continue
			}
			if entity.EntityTier() > ceiling {
				return nil, apperror.NewValidation(
					fmt.Sprintf("equipment %q is tier %d, above the party ceiling %d", entity.Name, entity.EntityTier(), ceiling), nil)
			}
			npc.EquipmentIDs = append(npc.EquipmentIDs, entity.ID)
		}
		if len(unresolved) > 0 {
			return nil, apperror.NewReferenceResolution("equipment", unresolved)
		}

		stats := model.DeriveNPCStats(partyLevel, classTier)
		npc.Level = stats.Level
		npc.HP = stats.HP
		npc.Stress = stats.Stress
		npc.Evasion = stats.Evasion

		npcs = append(npcs, npc)
	}
	return npcs, nil
}

func resolveLoot(payloads []lootPayload, cand *candidateSet, ceiling int) ([]model.LootRef, error) {
	if len(payloads) == 0 {
		return nil, nil
	}
	weapons := indexEntities(cand.Weapons)
	armor := indexEntities(cand.Armor)

	refs := make([]model.LootRef, 0, len(payloads))
	var unresolved []string
	for _, p := range payloads {
		var index entityIndex
		switch model.Category(p.ItemType) {
		case model.CategoryWeapon:
			index = weapons
		case model.CategoryArmor:
			index = armor
		default:
			return nil, apperror.NewValidation(fmt.Sprintf("loot %q has unknown item type %q", p.Name, p.ItemType), nil)
		}
		entity, ok := index[p.Name]
		if !ok {
			unresolved = append(unresolved, p.Name)
			continue
		}
		if entity.EntityTier() > ceiling {
			return nil, apperror.NewValidation(
				fmt.Sprintf("loot %q is tier %d, above the party ceiling %d", entity.Name, entity.EntityTier(), ceiling), nil)
		}
		quantity := p.Quantity
		if quantity < 1 {
			quantity = 1
		}
		refs = append(refs, model.LootRef{
			ContentEntityID: entity.ID,
			ItemType:        entity.Category,
			Quantity:        quantity,
			Tier:            entity.EntityTier(),
		})
	}
	if len(unresolved) > 0 {
		return nil, apperror.NewReferenceResolution("loot", unresolved)
	}
	return refs, nil
}
