package lifecycle

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daggergm/daggergm/apperror"
	"github.com/daggergm/daggergm/model"
)

func expandedScene(id uuid.UUID, orderIndex int) model.Scene {
	return model.Scene{
		ID:          id,
		Title:       "Scene",
		Type:        model.SceneTypeExploration,
		Description: "An outline.",
		OrderIndex:  orderIndex,
		Expansion: &model.SceneExpansion{
			Descriptions: []string{"a", "b", "c"},
		},
	}
}

func TestConfirm(t *testing.T) {
	sceneID := uuid.New()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	t.Run("Confirming an expanded scene sets the flag and timestamp", func(t *testing.T) {
		adventure := &model.Adventure{Scenes: model.SceneList{expandedScene(sceneID, 0)}}

		scenes, err := Confirm(adventure, sceneID, now)
		require.NoError(t, err)
		require.NotNil(t, scenes[0].Expansion)
		assert.True(t, scenes[0].Expansion.Confirmed)
		require.NotNil(t, scenes[0].Expansion.ConfirmedAt)
		assert.Equal(t, now, *scenes[0].Expansion.ConfirmedAt)
		// Copy-on-write: the loaded aggregate is untouched until persisted
		assert.False(t, adventure.Scenes[0].Expansion.Confirmed)
	})

	t.Run("Confirming an unexpanded scene fails", func(t *testing.T) {
		adventure := &model.Adventure{Scenes: model.SceneList{{ID: sceneID}}}

		_, err := Confirm(adventure, sceneID, now)
		assert.True(t, apperror.IsKind(err, apperror.KindNotExpanded))
	})

	t.Run("Confirming an unknown scene fails", func(t *testing.T) {
		adventure := &model.Adventure{Scenes: model.SceneList{expandedScene(sceneID, 0)}}

		_, err := Confirm(adventure, uuid.New(), now)
		assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	})

	t.Run("Confirming twice keeps the original timestamp", func(t *testing.T) {
		adventure := &model.Adventure{Scenes: model.SceneList{expandedScene(sceneID, 0)}}

		scenes, err := Confirm(adventure, sceneID, now)
		require.NoError(t, err)
		adventure.Scenes = scenes

		later := now.Add(time.Hour)
		scenes, err = Confirm(adventure, sceneID, later)
		require.NoError(t, err)
		assert.Equal(t, now, *scenes[0].Expansion.ConfirmedAt)
	})
}

func TestUnconfirm(t *testing.T) {
	sceneID := uuid.New()

	t.Run("Unconfirming returns to the expanded state", func(t *testing.T) {
		scene := expandedScene(sceneID, 0)
		confirmedAt := time.Now()
		scene.Expansion.Confirmed = true
		scene.Expansion.ConfirmedAt = &confirmedAt
		adventure := &model.Adventure{Scenes: model.SceneList{scene}}

		scenes, err := Unconfirm(adventure, sceneID)
		require.NoError(t, err)
		assert.False(t, scenes[0].Expansion.Confirmed)
		assert.Nil(t, scenes[0].Expansion.ConfirmedAt)
		// Expansion content survives the transition
		assert.Equal(t, []string{"a", "b", "c"}, scenes[0].Expansion.Descriptions)
	})

	t.Run("Unconfirming an expanded scene is a no-op", func(t *testing.T) {
		adventure := &model.Adventure{Scenes: model.SceneList{expandedScene(sceneID, 0)}}

		scenes, err := Unconfirm(adventure, sceneID)
		require.NoError(t, err)
		assert.False(t, scenes[0].Expansion.Confirmed)
	})

	t.Run("Unconfirming an unexpanded scene fails", func(t *testing.T) {
		adventure := &model.Adventure{Scenes: model.SceneList{{ID: sceneID}}}

		_, err := Unconfirm(adventure, sceneID)
		assert.True(t, apperror.IsKind(err, apperror.KindNotExpanded))
	})
}

func TestEdit(t *testing.T) {
	sceneID := uuid.New()

	t.Run("Editing replaces the expansion without confirming", func(t *testing.T) {
		adventure := &model.Adventure{Scenes: model.SceneList{expandedScene(sceneID, 0)}}

		edited := &model.SceneExpansion{
			Descriptions: []string{"rewritten"},
			Confirmed:    true, // must be ignored
		}
		scenes, err := Edit(adventure, sceneID, edited)
		require.NoError(t, err)
		assert.Equal(t, []string{"rewritten"}, scenes[0].Expansion.Descriptions)
		assert.False(t, scenes[0].Expansion.Confirmed, "manual edits must never auto-confirm")
		assert.Nil(t, scenes[0].Expansion.ConfirmedAt)
	})

	t.Run("Editing a confirmed scene fails", func(t *testing.T) {
		scene := expandedScene(sceneID, 0)
		scene.Expansion.Confirmed = true
		adventure := &model.Adventure{Scenes: model.SceneList{scene}}

		_, err := Edit(adventure, sceneID, &model.SceneExpansion{Descriptions: []string{"x"}})
		assert.True(t, apperror.IsKind(err, apperror.KindConflict))
	})

	t.Run("Editing away every description fails", func(t *testing.T) {
		adventure := &model.Adventure{Scenes: model.SceneList{expandedScene(sceneID, 0)}}

		_, err := Edit(adventure, sceneID, &model.SceneExpansion{})
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})
}

func TestSetSceneLocked(t *testing.T) {
	sceneID := uuid.New()
	adventure := &model.Adventure{Scenes: model.SceneList{expandedScene(sceneID, 0)}}

	scenes, err := SetSceneLocked(adventure, sceneID, true)
	require.NoError(t, err)
	assert.True(t, scenes[0].Locked)

	_, err = SetSceneLocked(adventure, uuid.New(), true)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestCanExport(t *testing.T) {
	confirmed := func(id uuid.UUID, orderIndex int) model.Scene {
		scene := expandedScene(id, orderIndex)
		confirmedAt := time.Now()
		scene.Expansion.Confirmed = true
		scene.Expansion.ConfirmedAt = &confirmedAt
		return scene
	}

	t.Run("All scenes confirmed allows export", func(t *testing.T) {
		adventure := &model.Adventure{Scenes: model.SceneList{
			confirmed(uuid.New(), 0),
			confirmed(uuid.New(), 1),
			confirmed(uuid.New(), 2),
		}}

		check := CanExport(adventure)
		assert.True(t, check.Allowed)
		assert.Empty(t, check.BlockingScenes)
	})

	t.Run("Unconfirmed scenes block export and are listed", func(t *testing.T) {
		expandedID := uuid.New()
		notExpandedID := uuid.New()
		adventure := &model.Adventure{Scenes: model.SceneList{
			confirmed(uuid.New(), 0),
			expandedScene(expandedID, 1),
			{ID: notExpandedID, OrderIndex: 2},
		}}

		check := CanExport(adventure)
		assert.False(t, check.Allowed)
		assert.Equal(t, []uuid.UUID{expandedID, notExpandedID}, check.BlockingScenes)
	})

	t.Run("Empty scaffold is not exportable", func(t *testing.T) {
		check := CanExport(&model.Adventure{})
		assert.False(t, check.Allowed)
		assert.Empty(t, check.BlockingScenes)
	})
}
