package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/daggergm/daggergm/apperror"
	"github.com/daggergm/daggergm/core/budget"
	"github.com/daggergm/daggergm/helper"
	"github.com/daggergm/daggergm/model"
)

// ExpandScene expands an outlined scene into playable detail: retrieve the
// candidate content the expansion may reference, generate a schema-bound
// response, resolve every reference, then commit the new scene list and
// charge the expansion budget in one write.
func (e *Engine) ExpandScene(ctx context.Context, adventure *model.Adventure, sceneID uuid.UUID) error {
	scene := adventure.SceneByID(sceneID)
	if scene == nil {
		return apperror.NewNotFound(fmt.Sprintf("scene %s not found", sceneID), nil)
	}
	if scene.State() == model.SceneConfirmed {
		return apperror.NewConflict(fmt.Sprintf("scene %s is confirmed, unconfirm it before expanding", sceneID), nil)
	}
	if err := budget.CheckExpansion(adventure); err != nil {
		return err
	}

	cand, err := e.retrieveCandidates(ctx, adventure, scene)
	if err != nil {
		return err
	}

	raw, err := e.generator.GenerateJSON(ctx, expansionSystemPrompt, expansionUserPrompt(adventure, scene, cand), "scene_expansion", expansionSchema())
	if err != nil {
		return helper.NewError("generate expansion", err)
	}

	payload, err := decodeExpansion(raw)
	if err != nil {
		return err
	}
	expansion, err := buildExpansion(payload, cand, adventure.PartyLevel)
	if err != nil {
		return err
	}

	updated := *scene
	updated.Expansion = expansion
	scenes, _ := adventure.ReplaceScene(updated)

	err = e.adventures.CommitSceneExpansion(adventure, scenes)
	if err != nil {
		return err
	}

	e.log.Info("Expanded scene", "adventure", adventure.ID, "scene", sceneID,
		"npcs", len(expansion.NPCs), "adversaries", len(expansion.Adversaries))

	return nil
}

// RefineScene rewrites an existing expansion according to a free-form
// instruction, through the same validation pipeline as ExpandScene. It draws
// from the shared expansion budget.
func (e *Engine) RefineScene(ctx context.Context, adventure *model.Adventure, sceneID uuid.UUID, instruction string) error {
	if strings.TrimSpace(instruction) == "" {
		return apperror.NewValidation("refinement instruction is empty", nil)
	}

	scene := adventure.SceneByID(sceneID)
	if scene == nil {
		return apperror.NewNotFound(fmt.Sprintf("scene %s not found", sceneID), nil)
	}
	switch scene.State() {
	case model.SceneNotExpanded:
		return apperror.NewNotExpanded(sceneID)
	case model.SceneConfirmed:
		return apperror.NewConflict(fmt.Sprintf("scene %s is confirmed, unconfirm it before refining", sceneID), nil)
	}
	if err := budget.CheckExpansion(adventure); err != nil {
		return err
	}

	cand, err := e.retrieveCandidates(ctx, adventure, scene)
	if err != nil {
		return err
	}

	raw, err := e.generator.GenerateJSON(ctx, expansionSystemPrompt, refineUserPrompt(adventure, scene, cand, instruction), "scene_expansion", expansionSchema())
	if err != nil {
		return helper.NewError("refine expansion", err)
	}

	payload, err := decodeExpansion(raw)
	if err != nil {
		return err
	}
	expansion, err := buildExpansion(payload, cand, adventure.PartyLevel)
	if err != nil {
		return err
	}

	updated := *scene
	updated.Expansion = expansion
	scenes, _ := adventure.ReplaceScene(updated)

	err = e.adventures.CommitSceneExpansion(adventure, scenes)
	if err != nil {
		return err
	}

	e.log.Info("Refined scene", "adventure", adventure.ID, "scene", sceneID)

	return nil
}

// retrieveCandidates embeds the scene query once and gathers every candidate
// list the expansion prompt enumerates. Tiered categories are bounded by the
// party's tier ceiling inside the similarity query.
func (e *Engine) retrieveCandidates(ctx context.Context, adventure *model.Adventure, scene *model.Scene) (*candidateSet, error) {
	query := fmt.Sprintf("%s. %s %s scene. %s", scene.Title, scene.Description, scene.Type, adventure.Focus)
	embedding, err := e.embedder(query)
	if err != nil {
		return nil, helper.NewError("embed scene query", err)
	}

	cand := &candidateSet{}
	lists := []struct {
		category model.Category
		limit    int
		dest     *[]*model.ContentEntity
	}{
		{model.CategoryAdversary, e.config.AdversaryLimit, &cand.Adversaries},
		{model.CategoryEnvironment, e.config.EnvironmentLimit, &cand.Environments},
		{model.CategoryClass, e.config.NPCSourceLimit, &cand.Classes},
		{model.CategoryAncestry, e.config.NPCSourceLimit, &cand.Ancestries},
		{model.CategoryCommunity, e.config.NPCSourceLimit, &cand.Communities},
		{model.CategoryWeapon, e.config.LootLimit, &cand.Weapons},
		{model.CategoryArmor, e.config.LootLimit, &cand.Armor},
	}
	for _, l := range lists {
		results, err := e.retrieval.RetrieveEmbedded(ctx, l.category, embedding, adventure.PartyLevel, l.limit)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("retrieve %s candidates", l.category), err)
		}
		entities := make([]*model.ContentEntity, 0, len(results))
		for _, r := range results {
			entities = append(entities, r.Entity)
		}
		*l.dest = entities
	}

	return cand, nil
}
