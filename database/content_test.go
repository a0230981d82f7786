package database

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daggergm/daggergm/helper"
	"github.com/daggergm/daggergm/model"
)

func tierOf(t int) *int { return &t }

// The container database is shared across tests; names are unique per
// (category, name) so each test starts from an empty table.
func truncateContent(t *testing.T, db *helper.Database) {
	t.Helper()
	_, err := db.Instance.Exec(`TRUNCATE content_entities`)
	require.NoError(t, err)
}

// Tiny deterministic embeddings; the handler is created with dimension 4.
func unitVector(index int) []float32 {
	v := make([]float32, 4)
	v[index] = 1
	return v
}

func seedEntity(t *testing.T, h *ContentDBHandler, category model.Category, name string, tier *int, embedding []float32) *model.ContentEntity {
	t.Helper()
	entity := &model.ContentEntity{
		Category:       category,
		Name:           name,
		Tier:           tier,
		Attributes:     model.Attributes{"source": "test"},
		SearchableText: string(category) + ": " + name,
		Embedding:      embedding,
	}
	require.NoError(t, h.InsertEntity(entity))
	return entity
}

func TestContentNewContentDBHandler(t *testing.T) {
	db := initDB(t)

	t.Run("Valid call NewContentDBHandler", func(t *testing.T) {
		contentDbHandler, err := NewContentDBHandler(db, 4, true)
		assert.NoError(t, err, "Expected NewContentDBHandler to not return an error")
		require.NotNil(t, contentDbHandler, "Expected NewContentDBHandler to return a non-nil instance")
		require.NotNil(t, contentDbHandler.db, "Expected NewContentDBHandler to have a non-nil database instance")
	})

	t.Run("Invalid call NewContentDBHandler with nil database", func(t *testing.T) {
		_, err := NewContentDBHandler(nil, 4, false)
		assert.Error(t, err, "Expected error when creating ContentDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestContentInsert(t *testing.T) {
	db := initDB(t)
	contentDbHandler, err := NewContentDBHandler(db, 4, true)
	require.NoError(t, err)
	truncateContent(t, db)

	t.Run("Insert entity", func(t *testing.T) {
		entity := seedEntity(t, contentDbHandler, model.CategoryAdversary, "Dire Wolf", tierOf(1), unitVector(0))
		assert.NotEqual(t, uuid.Nil, entity.ID, "Expected inserted entity to have an ID")
		assert.WithinDuration(t, entity.CreatedAt, time.Now(), 2*time.Second, "Expected CreatedAt to be set")
		assert.Equal(t, []float32{1, 0, 0, 0}, entity.Embedding)
	})

	t.Run("Insert duplicate name in same category fails", func(t *testing.T) {
		duplicate := &model.ContentEntity{
			Category:  model.CategoryAdversary,
			Name:      "Dire Wolf",
			Tier:      tierOf(2),
			Embedding: unitVector(1),
		}
		err := contentDbHandler.InsertEntity(duplicate)
		assert.Error(t, err, "Expected unique (category, name) violation")
	})

	t.Run("Same name in another category is allowed", func(t *testing.T) {
		entity := seedEntity(t, contentDbHandler, model.CategoryEnvironment, "Dire Wolf", tierOf(1), unitVector(1))
		assert.NotEqual(t, uuid.Nil, entity.ID)
	})

	t.Run("Untiered entity stores a NULL tier", func(t *testing.T) {
		entity := seedEntity(t, contentDbHandler, model.CategoryClass, "Guardian", nil, unitVector(2))

		selected, err := contentDbHandler.SelectEntity(entity.ID)
		require.NoError(t, err)
		assert.Nil(t, selected.Tier)
	})
}

func TestContentSelect(t *testing.T) {
	db := initDB(t)
	contentDbHandler, err := NewContentDBHandler(db, 4, true)
	require.NoError(t, err)
	truncateContent(t, db)

	entity := seedEntity(t, contentDbHandler, model.CategoryAncestry, "Dwarf", nil, unitVector(0))

	t.Run("Select by id", func(t *testing.T) {
		selected, err := contentDbHandler.SelectEntity(entity.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dwarf", selected.Name)
		assert.Equal(t, model.CategoryAncestry, selected.Category)
		assert.Equal(t, model.Attributes{"source": "test"}, selected.Attributes)
	})

	t.Run("Select by category and name", func(t *testing.T) {
		selected, err := contentDbHandler.SelectEntityByName(model.CategoryAncestry, "Dwarf")
		require.NoError(t, err)
		assert.Equal(t, entity.ID, selected.ID)
	})

	t.Run("Select unknown id fails", func(t *testing.T) {
		_, err := contentDbHandler.SelectEntity(uuid.New())
		assert.Error(t, err)
	})
}

func TestContentSelectBySimilarity(t *testing.T) {
	db := initDB(t)
	contentDbHandler, err := NewContentDBHandler(db, 4, true)
	require.NoError(t, err)
	truncateContent(t, db)

	// Orthogonal to the query axis except for the wolf, which matches it.
	seedEntity(t, contentDbHandler, model.CategoryAdversary, "Dire Wolf", tierOf(1), []float32{1, 0, 0, 0})
	seedEntity(t, contentDbHandler, model.CategoryAdversary, "Cave Ogre", tierOf(2), []float32{0.5, 0.5, 0, 0})
	seedEntity(t, contentDbHandler, model.CategoryAdversary, "Shadow Lich", tierOf(3), []float32{0.9, 0.1, 0, 0})
	seedEntity(t, contentDbHandler, model.CategoryEnvironment, "Abandoned Grove", tierOf(1), []float32{1, 0, 0, 0})

	query := []float32{1, 0, 0, 0}

	t.Run("Results are ranked by similarity descending", func(t *testing.T) {
		results, err := contentDbHandler.SelectEntitiesBySimilarity(model.CategoryAdversary, query, nil, 10)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "Dire Wolf", results[0].Name)
		assert.Equal(t, "Shadow Lich", results[1].Name)
		assert.Equal(t, "Cave Ogre", results[2].Name)
		assert.InDelta(t, 1.0, results[0].Similarity, 0.001)
		assert.GreaterOrEqual(t, results[1].Similarity, results[2].Similarity)
	})

	t.Run("Tier ceiling filters out stronger content", func(t *testing.T) {
		ceiling := 2
		results, err := contentDbHandler.SelectEntitiesBySimilarity(model.CategoryAdversary, query, &ceiling, 10)
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, result := range results {
			assert.LessOrEqual(t, *result.Tier, 2)
		}
	})

	t.Run("Category is isolated", func(t *testing.T) {
		results, err := contentDbHandler.SelectEntitiesBySimilarity(model.CategoryEnvironment, query, nil, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Abandoned Grove", results[0].Name)
	})

	t.Run("Limit bounds the result set", func(t *testing.T) {
		results, err := contentDbHandler.SelectEntitiesBySimilarity(model.CategoryAdversary, query, nil, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Dire Wolf", results[0].Name)
	})

	t.Run("Equal similarity breaks ties by name ascending", func(t *testing.T) {
		// Three entities sharing one embedding are indistinguishable by
		// distance, so the order must come from the name tie-break alone.
		seedEntity(t, contentDbHandler, model.CategoryItem, "Torch", tierOf(1), []float32{0, 1, 0, 0})
		seedEntity(t, contentDbHandler, model.CategoryItem, "Grappling Hook", tierOf(1), []float32{0, 1, 0, 0})
		seedEntity(t, contentDbHandler, model.CategoryItem, "Lantern", tierOf(1), []float32{0, 1, 0, 0})

		results, err := contentDbHandler.SelectEntitiesBySimilarity(model.CategoryItem, []float32{0, 1, 0, 0}, nil, 10)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "Grappling Hook", results[0].Name)
		assert.Equal(t, "Lantern", results[1].Name)
		assert.Equal(t, "Torch", results[2].Name)
		assert.InDelta(t, results[0].Similarity, results[2].Similarity, 0.0001)
	})
}

func TestContentSearchByText(t *testing.T) {
	db := initDB(t)
	contentDbHandler, err := NewContentDBHandler(db, 4, true)
	require.NoError(t, err)
	truncateContent(t, db)

	seedEntity(t, contentDbHandler, model.CategoryWeapon, "Battleaxe", tierOf(1), unitVector(0))
	seedEntity(t, contentDbHandler, model.CategoryWeapon, "Longbow", tierOf(1), unitVector(1))

	t.Run("Trigram search finds close matches", func(t *testing.T) {
		results, err := contentDbHandler.SearchEntitiesByText(model.CategoryWeapon, "weapon: Battleaxe", 10)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "Battleaxe", results[0].Name)
		assert.Greater(t, results[0].Similarity, 0.0)
	})

	t.Run("Unrelated query finds nothing", func(t *testing.T) {
		results, err := contentDbHandler.SearchEntitiesByText(model.CategoryWeapon, "zzzzqqqq", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestContentCountByCategory(t *testing.T) {
	db := initDB(t)
	contentDbHandler, err := NewContentDBHandler(db, 4, true)
	require.NoError(t, err)
	truncateContent(t, db)

	seedEntity(t, contentDbHandler, model.CategoryCommunity, "Ridgeborne", nil, unitVector(0))
	seedEntity(t, contentDbHandler, model.CategoryCommunity, "Loreborne", nil, unitVector(1))

	count, err := contentDbHandler.CountByCategory(model.CategoryCommunity)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = contentDbHandler.CountByCategory(model.CategoryFrame)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
