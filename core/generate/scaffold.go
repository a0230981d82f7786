package generate

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/daggergm/daggergm/apperror"
	"github.com/daggergm/daggergm/core/budget"
	"github.com/daggergm/daggergm/helper"
	"github.com/daggergm/daggergm/model"
)

// GenerateScaffold generates a 3-5 scene outline for the adventure and
// commits it. The first scaffold of an adventure is free; replacing an
// existing scaffold draws one use from the scaffold budget.
func (e *Engine) GenerateScaffold(ctx context.Context, adventure *model.Adventure) error {
	charge := len(adventure.Scenes) > 0
	if charge {
		if err := budget.CheckScaffold(adventure); err != nil {
			return err
		}
	}

	raw, err := e.generator.GenerateJSON(ctx, scaffoldSystemPrompt, scaffoldUserPrompt(adventure), "adventure_scaffold", scaffoldSchema())
	if err != nil {
		return helper.NewError("generate scaffold", err)
	}

	payload, err := decodeScaffold(raw)
	if err != nil {
		return err
	}
	scenes, err := buildScenes(payload)
	if err != nil {
		return err
	}

	err = e.adventures.CommitScaffold(adventure, scenes, charge)
	if err != nil {
		return err
	}

	e.log.Info("Generated scaffold", "adventure", adventure.ID, "scenes", len(adventure.Scenes), "charged", charge)

	return nil
}

// RegenerateScaffold regenerates every unlocked scene of an existing
// scaffold in one pass. Locked scenes are kept verbatim, scene ids are kept
// positionally, and expansions of regenerated scenes are discarded. Always
// draws one use from the scaffold budget.
func (e *Engine) RegenerateScaffold(ctx context.Context, adventure *model.Adventure) error {
	if len(adventure.Scenes) == 0 {
		return apperror.NewValidation("adventure has no scaffold to regenerate", nil)
	}
	if err := budget.CheckScaffold(adventure); err != nil {
		return err
	}

	raw, err := e.generator.GenerateJSON(ctx, scaffoldSystemPrompt, regenerateScaffoldUserPrompt(adventure), "adventure_scaffold", scaffoldSchema())
	if err != nil {
		return helper.NewError("regenerate scaffold", err)
	}

	payload, err := decodeScaffold(raw)
	if err != nil {
		return err
	}
	scenes, err := mergeRegeneratedScenes(adventure.Scenes, payload)
	if err != nil {
		return err
	}

	err = e.adventures.CommitScaffold(adventure, scenes, true)
	if err != nil {
		return err
	}

	e.log.Info("Regenerated scaffold", "adventure", adventure.ID, "scenes", len(adventure.Scenes))

	return nil
}

// RegenerateScaffoldScene regenerates the outline of one scene. The scene
// keeps its id and order index; its expansion is discarded. A confirmed
// scene must be unconfirmed first. A locked scene may still be regenerated
// here, the lock only shields it from bulk regeneration.
func (e *Engine) RegenerateScaffoldScene(ctx context.Context, adventure *model.Adventure, sceneID uuid.UUID) error {
	scene := adventure.SceneByID(sceneID)
	if scene == nil {
		return apperror.NewNotFound(fmt.Sprintf("scene %s not found", sceneID), nil)
	}
	if scene.State() == model.SceneConfirmed {
		return apperror.NewConflict(fmt.Sprintf("scene %s is confirmed, unconfirm it before regenerating", sceneID), nil)
	}
	if err := budget.CheckScaffold(adventure); err != nil {
		return err
	}

	raw, err := e.generator.GenerateJSON(ctx, scaffoldSystemPrompt, sceneOutlineUserPrompt(adventure, scene), "scene_outline", sceneOutlineSchema())
	if err != nil {
		return helper.NewError("regenerate scene outline", err)
	}

	payload, err := decodeSceneOutline(raw)
	if err != nil {
		return err
	}
	if err := validateSceneOutline(scene.OrderIndex, payload); err != nil {
		return err
	}

	updated := model.Scene{
		ID:          scene.ID,
		Title:       payload.Title,
		Type:        model.SceneType(payload.Type),
		Description: payload.Description,
		OrderIndex:  scene.OrderIndex,
		Locked:      scene.Locked,
	}
	scenes, _ := adventure.ReplaceScene(updated)

	err = e.adventures.CommitScaffold(adventure, scenes, true)
	if err != nil {
		return err
	}

	e.log.Info("Regenerated scene outline", "adventure", adventure.ID, "scene", sceneID)

	return nil
}
