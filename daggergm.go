package daggergm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daggergm/daggergm/apperror"
	"github.com/daggergm/daggergm/core/budget"
	"github.com/daggergm/daggergm/core/generate"
	"github.com/daggergm/daggergm/core/lifecycle"
	"github.com/daggergm/daggergm/core/pipeline"
	"github.com/daggergm/daggergm/core/retrieval"
	"github.com/daggergm/daggergm/database"
	"github.com/daggergm/daggergm/helper"
	"github.com/daggergm/daggergm/model"
	loadSql "github.com/daggergm/daggergm/sql"
)

// Party level bounds accepted for an adventure.
const (
	minPartyLevel = 1
	maxPartyLevel = 10
)

// DaggerGM provides a unified interface to the adventure generation engine
type DaggerGM struct {
	DB         *helper.Database
	Content    *database.ContentDBHandler
	Adventures *database.AdventuresDBHandler
	Engine     *retrieval.Engine // Retrieval engine for candidate search
	Seeder     *pipeline.Seeder  // Content seeding pipeline
	// Generation
	embedder  pipeline.EmbedFunc
	generator generate.Generator
	config    model.RetrievalConfig
	// Logging
	log *slog.Logger
}

// NewDaggerGM creates a new DaggerGM instance with all handlers initialized
func NewDaggerGM(config *helper.DatabaseConfiguration, embeddingDim int) (*DaggerGM, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("daggergm", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	content, err := database.NewContentDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create content handler", err)
	}

	adventures, err := database.NewAdventuresDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create adventures handler", err)
	}

	return &DaggerGM{
		DB:         db,
		Content:    content,
		Adventures: adventures,
		config:     model.DefaultRetrievalConfig(),
		log:        logger,
	}, nil
}

// Close closes the database connection
func (d *DaggerGM) Close() error {
	if d.DB != nil && d.DB.Instance != nil {
		return d.DB.Instance.Close()
	}
	return nil
}

// SetEmbedder sets the embedding function used for seeding and retrieval
func (d *DaggerGM) SetEmbedder(embedder pipeline.EmbedFunc) {
	d.embedder = embedder
	d.Seeder = pipeline.NewSeeder(embedder)
	d.Engine = retrieval.NewEngine(d.Content, embedder)
}

// UseDefaultEmbedder sets up the local all-MiniLM-L6-v2 embedder (384
// dimensions). The content table's vector dimension must match.
func (d *DaggerGM) UseDefaultEmbedder() error {
	embedder, err := pipeline.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}
	d.SetEmbedder(embedder)
	return nil
}

// UseOpenAIEmbedder sets up the hosted embedder (1536 dimensions),
// configured from the environment.
func (d *DaggerGM) UseOpenAIEmbedder() error {
	embedder, err := pipeline.OpenAIEmbedder()
	if err != nil {
		return helper.NewError("create openai embedder", err)
	}
	d.SetEmbedder(embedder)
	return nil
}

// SetGenerator sets the completion provider used for scaffold and expansion
// generation
func (d *DaggerGM) SetGenerator(generator generate.Generator) {
	d.generator = generator
}

// UseOpenAIGenerator sets up the default completion provider, configured
// from the environment.
func (d *DaggerGM) UseOpenAIGenerator() error {
	generator, err := generate.NewOpenAIGenerator()
	if err != nil {
		return helper.NewError("create openai generator", err)
	}
	d.generator = generator
	return nil
}

// SetRetrievalConfig overrides the candidate limits used by scene expansion
func (d *DaggerGM) SetRetrievalConfig(config model.RetrievalConfig) {
	d.config = config
}

// generateEngine assembles the generation engine from the configured
// embedder and generator.
func (d *DaggerGM) generateEngine() (*generate.Engine, error) {
	if d.embedder == nil || d.Engine == nil {
		return nil, helper.NewError("generation", fmt.Errorf("embedder not set, use SetEmbedder() first"))
	}
	if d.generator == nil {
		return nil, helper.NewError("generation", fmt.Errorf("generator not set, use SetGenerator() first"))
	}
	return generate.NewEngine(d.Adventures, d.Engine, d.embedder, d.generator, d.config, d.log), nil
}

// CreateAdventure persists an empty adventure with zeroed regeneration
// counters for the given owner.
func (d *DaggerGM) CreateAdventure(ctx context.Context, ownerID string, params model.AdventureParams) (*model.Adventure, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperror.NewValidation("owner id is empty", nil)
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, apperror.NewValidation("adventure title is empty", nil)
	}
	if params.PartySize < 1 {
		return nil, apperror.NewValidation(fmt.Sprintf("party size %d must be at least 1", params.PartySize), nil)
	}
	if params.PartyLevel < minPartyLevel || params.PartyLevel > maxPartyLevel {
		return nil, apperror.NewValidation(
			fmt.Sprintf("party level %d must be between %d and %d", params.PartyLevel, minPartyLevel, maxPartyLevel), nil)
	}

	adventure := &model.Adventure{
		OwnerID:    ownerID,
		Title:      params.Title,
		Frame:      params.Frame,
		Focus:      params.Focus,
		Difficulty: params.Difficulty,
		Stakes:     params.Stakes,
		PartySize:  params.PartySize,
		PartyLevel: params.PartyLevel,
	}
	err := d.Adventures.InsertAdventure(adventure)
	if err != nil {
		return nil, helper.NewError("insert adventure", err)
	}

	d.log.Info("Created adventure", slog.String("adventure_id", adventure.ID.String()), slog.String("title", adventure.Title))

	return adventure, nil
}

// GetAdventure retrieves an adventure owned by the given user
func (d *DaggerGM) GetAdventure(ctx context.Context, userID string, adventureID uuid.UUID) (*model.Adventure, error) {
	return d.loadOwned(userID, adventureID)
}

// DeleteAdventure deletes an adventure owned by the given user
func (d *DaggerGM) DeleteAdventure(ctx context.Context, userID string, adventureID uuid.UUID) error {
	_, err := d.loadOwned(userID, adventureID)
	if err != nil {
		return err
	}
	return d.Adventures.DeleteAdventure(adventureID)
}

// GenerateScaffold generates the adventure's 3-5 scene outline. The first
// scaffold is free; replacing an existing one draws on the scaffold budget.
func (d *DaggerGM) GenerateScaffold(ctx context.Context, userID string, adventureID uuid.UUID) (*model.Adventure, error) {
	adventure, err := d.loadOwned(userID, adventureID)
	if err != nil {
		return nil, err
	}
	engine, err := d.generateEngine()
	if err != nil {
		return nil, err
	}
	err = engine.GenerateScaffold(ctx, adventure)
	if err != nil {
		return nil, err
	}
	return adventure, nil
}

// RegenerateScaffold regenerates every unlocked scene of the scaffold
func (d *DaggerGM) RegenerateScaffold(ctx context.Context, userID string, adventureID uuid.UUID) (*model.Adventure, error) {
	adventure, err := d.loadOwned(userID, adventureID)
	if err != nil {
		return nil, err
	}
	engine, err := d.generateEngine()
	if err != nil {
		return nil, err
	}
	err = engine.RegenerateScaffold(ctx, adventure)
	if err != nil {
		return nil, err
	}
	return adventure, nil
}

// RegenerateScaffoldScene regenerates the outline of one scene, keeping its
// id and position
func (d *DaggerGM) RegenerateScaffoldScene(ctx context.Context, userID string, adventureID uuid.UUID, sceneID uuid.UUID) (*model.Adventure, error) {
	adventure, err := d.loadOwned(userID, adventureID)
	if err != nil {
		return nil, err
	}
	engine, err := d.generateEngine()
	if err != nil {
		return nil, err
	}
	err = engine.RegenerateScaffoldScene(ctx, adventure, sceneID)
	if err != nil {
		return nil, err
	}
	return adventure, nil
}

// ExpandScene expands an outlined scene into playable detail and returns the
// updated scene
func (d *DaggerGM) ExpandScene(ctx context.Context, userID string, adventureID uuid.UUID, sceneID uuid.UUID) (*model.Scene, error) {
	adventure, err := d.loadOwned(userID, adventureID)
	if err != nil {
		return nil, err
	}
	engine, err := d.generateEngine()
	if err != nil {
		return nil, err
	}
	err = engine.ExpandScene(ctx, adventure, sceneID)
	if err != nil {
		return nil, err
	}
	return adventure.SceneByID(sceneID), nil
}

// RefineScene rewrites an existing expansion according to an instruction and
// returns the updated scene
func (d *DaggerGM) RefineScene(ctx context.Context, userID string, adventureID uuid.UUID, sceneID uuid.UUID, instruction string) (*model.Scene, error) {
	adventure, err := d.loadOwned(userID, adventureID)
	if err != nil {
		return nil, err
	}
	engine, err := d.generateEngine()
	if err != nil {
		return nil, err
	}
	err = engine.RefineScene(ctx, adventure, sceneID, instruction)
	if err != nil {
		return nil, err
	}
	return adventure.SceneByID(sceneID), nil
}

// ConfirmExpansion marks a scene's expansion as confirmed
func (d *DaggerGM) ConfirmExpansion(ctx context.Context, userID string, adventureID uuid.UUID, sceneID uuid.UUID) (*model.Adventure, error) {
	adventure, err := d.loadOwned(userID, adventureID)
	if err != nil {
		return nil, err
	}
	scenes, err := lifecycle.Confirm(adventure, sceneID, time.Now())
	if err != nil {
		return nil, err
	}
	err = d.Adventures.UpdateScenes(adventure, scenes)
	if err != nil {
		return nil, err
	}
	return adventure, nil
}

// UnconfirmExpansion returns a confirmed scene to the expanded state
func (d *DaggerGM) UnconfirmExpansion(ctx context.Context, userID string, adventureID uuid.UUID, sceneID uuid.UUID) (*model.Adventure, error) {
	adventure, err := d.loadOwned(userID, adventureID)
	if err != nil {
		return nil, err
	}
	scenes, err := lifecycle.Unconfirm(adventure, sceneID)
	if err != nil {
		return nil, err
	}
	err = d.Adventures.UpdateScenes(adventure, scenes)
	if err != nil {
		return nil, err
	}
	return adventure, nil
}

// EditExpansion replaces a scene's expansion with a manually edited version.
// Editing never confirms.
func (d *DaggerGM) EditExpansion(ctx context.Context, userID string, adventureID uuid.UUID, sceneID uuid.UUID, expansion *model.SceneExpansion) (*model.Adventure, error) {
	adventure, err := d.loadOwned(userID, adventureID)
	if err != nil {
		return nil, err
	}
	scenes, err := lifecycle.Edit(adventure, sceneID, expansion)
	if err != nil {
		return nil, err
	}
	err = d.Adventures.UpdateScenes(adventure, scenes)
	if err != nil {
		return nil, err
	}
	return adventure, nil
}

// SetSceneLocked toggles a scene's lock flag. Locked scenes survive bulk
// scaffold regeneration.
func (d *DaggerGM) SetSceneLocked(ctx context.Context, userID string, adventureID uuid.UUID, sceneID uuid.UUID, locked bool) (*model.Adventure, error) {
	adventure, err := d.loadOwned(userID, adventureID)
	if err != nil {
		return nil, err
	}
	scenes, err := lifecycle.SetSceneLocked(adventure, sceneID, locked)
	if err != nil {
		return nil, err
	}
	err = d.Adventures.UpdateScenes(adventure, scenes)
	if err != nil {
		return nil, err
	}
	return adventure, nil
}

// CanExport reports whether every scene of the adventure is confirmed,
// listing the blocking scenes otherwise
func (d *DaggerGM) CanExport(ctx context.Context, userID string, adventureID uuid.UUID) (*model.ExportCheck, error) {
	adventure, err := d.loadOwned(userID, adventureID)
	if err != nil {
		return nil, err
	}
	return lifecycle.CanExport(adventure), nil
}

// BudgetRemaining returns the remaining scaffold and expansion regenerations
func (d *DaggerGM) BudgetRemaining(ctx context.Context, userID string, adventureID uuid.UUID) (scaffold int, expansion int, err error) {
	adventure, err := d.loadOwned(userID, adventureID)
	if err != nil {
		return 0, 0, err
	}
	return budget.ScaffoldRemaining(adventure), budget.ExpansionRemaining(adventure), nil
}

// SeedContent embeds and inserts canonical content entities. This is a
// one-time load; a duplicate (category, name) pair fails the insert.
// Returns the number of entities inserted and any error encountered.
func (d *DaggerGM) SeedContent(ctx context.Context, seeds []pipeline.SeedEntity) (int, error) {
	if d.Seeder == nil {
		return 0, helper.NewError("seed content", fmt.Errorf("embedder not set, use SetEmbedder() first"))
	}

	entities, err := d.Seeder.Process(seeds)
	if err != nil {
		return 0, err
	}

	for i, entity := range entities {
		if err := d.Content.InsertEntity(entity); err != nil {
			return i, helper.NewError(fmt.Sprintf("insert entity %d (%s %q)", i, entity.Category, entity.Name), err)
		}
	}

	d.log.Info("Seeded content", slog.Int("num_entities", len(entities)))

	return len(entities), nil
}

// Search performs vector similarity search over one content category,
// bounded by the party's tier ceiling for tiered categories
func (d *DaggerGM) Search(ctx context.Context, category model.Category, query string, partyLevel int, limit int) ([]*model.RetrievalResult, error) {
	if d.Engine == nil {
		return nil, helper.NewError("vector search", fmt.Errorf("embedder not set, use SetEmbedder() first"))
	}
	return d.Engine.Retrieve(ctx, category, query, partyLevel, limit)
}

// SearchText performs trigram text search over one content category
func (d *DaggerGM) SearchText(ctx context.Context, category model.Category, query string, limit int) ([]*model.RetrievalResult, error) {
	if d.Engine == nil {
		return nil, helper.NewError("text search", fmt.Errorf("embedder not set, use SetEmbedder() first"))
	}
	return d.Engine.SearchText(ctx, category, query, limit)
}

// loadOwned retrieves an adventure and verifies ownership before any work
// happens on it.
func (d *DaggerGM) loadOwned(userID string, adventureID uuid.UUID) (*model.Adventure, error) {
	adventure, err := d.Adventures.SelectAdventure(adventureID)
	if err != nil {
		return nil, err
	}
	if adventure.OwnerID != userID {
		return nil, apperror.NewAuthorization(fmt.Sprintf("adventure %s is not owned by the caller", adventureID))
	}
	return adventure, nil
}
