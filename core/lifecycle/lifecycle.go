// Package lifecycle implements the per-scene confirmation state machine and
// the export gate. All functions are pure aggregate computations; the caller
// persists the returned scene list under the adventure's version guard.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/daggergm/daggergm/apperror"
	"github.com/daggergm/daggergm/model"
)

// Confirm marks a scene's expansion as confirmed at the given time. A scene
// without an expansion cannot be confirmed. Confirming an already confirmed
// scene keeps its original confirmation time.
func Confirm(adventure *model.Adventure, sceneID uuid.UUID, now time.Time) (model.SceneList, error) {
	scene := adventure.SceneByID(sceneID)
	if scene == nil {
		return nil, apperror.NewNotFound(fmt.Sprintf("scene %s not found", sceneID), nil)
	}
	if scene.Expansion == nil {
		return nil, apperror.NewNotExpanded(sceneID)
	}

	updated := *scene
	expansion := *scene.Expansion
	if !expansion.Confirmed {
		expansion.Confirmed = true
		confirmedAt := now.UTC()
		expansion.ConfirmedAt = &confirmedAt
	}
	updated.Expansion = &expansion

	scenes, _ := adventure.ReplaceScene(updated)
	return scenes, nil
}

// Unconfirm returns a confirmed scene to the expanded state. It is required
// before any regeneration of a confirmed scene. Unconfirming a scene that is
// expanded but not confirmed is a no-op.
func Unconfirm(adventure *model.Adventure, sceneID uuid.UUID) (model.SceneList, error) {
	scene := adventure.SceneByID(sceneID)
	if scene == nil {
		return nil, apperror.NewNotFound(fmt.Sprintf("scene %s not found", sceneID), nil)
	}
	if scene.Expansion == nil {
		return nil, apperror.NewNotExpanded(sceneID)
	}

	updated := *scene
	expansion := *scene.Expansion
	expansion.Confirmed = false
	expansion.ConfirmedAt = nil
	updated.Expansion = &expansion

	scenes, _ := adventure.ReplaceScene(updated)
	return scenes, nil
}

// Edit replaces a scene's expansion with a manually edited one. Editing never
// confirms: the result is always in the expanded state, and a confirmed scene
// must be unconfirmed first.
func Edit(adventure *model.Adventure, sceneID uuid.UUID, expansion *model.SceneExpansion) (model.SceneList, error) {
	scene := adventure.SceneByID(sceneID)
	if scene == nil {
		return nil, apperror.NewNotFound(fmt.Sprintf("scene %s not found", sceneID), nil)
	}
	if scene.State() == model.SceneConfirmed {
		return nil, apperror.NewConflict(fmt.Sprintf("scene %s is confirmed, unconfirm it before editing", sceneID), nil)
	}
	if scene.Expansion == nil {
		return nil, apperror.NewNotExpanded(sceneID)
	}
	if len(expansion.Descriptions) == 0 {
		return nil, apperror.NewValidation("expansion must keep at least one description", nil)
	}

	edited := *expansion
	edited.Confirmed = false
	edited.ConfirmedAt = nil

	updated := *scene
	updated.Expansion = &edited

	scenes, _ := adventure.ReplaceScene(updated)
	return scenes, nil
}

// SetSceneLocked toggles a scene's lock flag. A locked scene survives bulk
// scaffold regeneration verbatim.
func SetSceneLocked(adventure *model.Adventure, sceneID uuid.UUID, locked bool) (model.SceneList, error) {
	scene := adventure.SceneByID(sceneID)
	if scene == nil {
		return nil, apperror.NewNotFound(fmt.Sprintf("scene %s not found", sceneID), nil)
	}

	updated := *scene
	updated.Locked = locked

	scenes, _ := adventure.ReplaceScene(updated)
	return scenes, nil
}

// CanExport reports whether every scene is confirmed. An adventure with no
// scaffold is never exportable. This is a pure read; it mutates nothing.
func CanExport(adventure *model.Adventure) *model.ExportCheck {
	check := &model.ExportCheck{}
	if len(adventure.Scenes) == 0 {
		return check
	}
	for i := range adventure.Scenes {
		scene := &adventure.Scenes[i]
		if scene.State() != model.SceneConfirmed {
			check.BlockingScenes = append(check.BlockingScenes, scene.ID)
		}
	}
	check.Allowed = len(check.BlockingScenes) == 0
	return check
}
