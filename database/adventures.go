package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/daggergm/daggergm/apperror"
	"github.com/daggergm/daggergm/helper"
	"github.com/daggergm/daggergm/model"
	loadSql "github.com/daggergm/daggergm/sql"
)

// SQLSTATEs raised by the adventure SQL functions.
const (
	sqlstateLimitExceeded   = "54000" // program_limit_exceeded
	sqlstateVersionConflict = "40001" // serialization_failure
	sqlstateNotFound        = "P0002" // no_data_found
)

// AdventuresDBHandlerFunctions defines the interface for adventure database operations.
// All scene mutations replace the whole scene list under a version guard; the
// commit variants additionally charge a regeneration budget atomically.
type AdventuresDBHandlerFunctions interface {
	InsertAdventure(adventure *model.Adventure) error
	SelectAdventure(id uuid.UUID) (*model.Adventure, error)
	UpdateScenes(adventure *model.Adventure, scenes model.SceneList) error
	CommitScaffold(adventure *model.Adventure, scenes model.SceneList, charge bool) error
	CommitSceneExpansion(adventure *model.Adventure, scenes model.SceneList) error
	DeleteAdventure(id uuid.UUID) error
}

// AdventuresDBHandler handles adventure-related database operations
type AdventuresDBHandler struct {
	db *helper.Database
}

// NewAdventuresDBHandler creates a new adventures database handler.
// It initializes the database connection and loads adventure-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewAdventuresDBHandler(db *helper.Database, force bool) (*AdventuresDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	adventuresDbHandler := &AdventuresDBHandler{
		db: db,
	}

	err := loadSql.LoadAdventuresSql(adventuresDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load adventures sql", err)
	}

	err = adventuresDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized AdventuresDBHandler")

	return adventuresDbHandler, nil
}

// CreateTable creates the 'adventures' table in the database.
// If the table already exists, it does not create it again.
func (h *AdventuresDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_adventures();`)
	if err != nil {
		log.Panicf("error initializing adventures table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table adventures")

	return nil
}

// InsertAdventure inserts a new adventure with no scenes and zeroed counters
func (h *AdventuresDBHandler) InsertAdventure(adventure *model.Adventure) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_adventure($1, $2, $3, $4, $5, $6, $7, $8)`,
		adventure.OwnerID,
		adventure.Title,
		adventure.Frame,
		adventure.Focus,
		adventure.Difficulty,
		adventure.Stakes,
		adventure.PartySize,
		adventure.PartyLevel,
	)

	err := scanAdventure(row, adventure)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectAdventure retrieves an adventure by ID
func (h *AdventuresDBHandler) SelectAdventure(id uuid.UUID) (*model.Adventure, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_adventure($1)`,
		id,
	)

	adventure := &model.Adventure{}
	err := scanAdventure(row, adventure)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound(fmt.Sprintf("adventure %s not found", id), err)
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return adventure, nil
}

// UpdateScenes replaces the whole scene list without charging any budget.
// The adventure's Version is the expected version; on success the adventure
// is updated in place with the new row (including the bumped version).
func (h *AdventuresDBHandler) UpdateScenes(adventure *model.Adventure, scenes model.SceneList) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_adventure_scenes($1, $2, $3)`,
		adventure.ID,
		adventure.Version,
		scenes,
	)

	err := scanAdventure(row, adventure)
	if err != nil {
		return h.mapWriteError(adventure, err)
	}

	return nil
}

// CommitScaffold replaces the scene list and, when charge is true, draws one
// use from the scaffold budget. The limit is enforced inside the SQL
// function so a concurrent racer fails here instead of losing an increment.
func (h *AdventuresDBHandler) CommitScaffold(adventure *model.Adventure, scenes model.SceneList, charge bool) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM commit_scaffold($1, $2, $3, $4)`,
		adventure.ID,
		adventure.Version,
		scenes,
		charge,
	)

	err := scanAdventure(row, adventure)
	if err != nil {
		return h.mapWriteError(adventure, err)
	}

	return nil
}

// CommitSceneExpansion replaces the scene list and draws one use from the
// expansion budget, atomically with the write.
func (h *AdventuresDBHandler) CommitSceneExpansion(adventure *model.Adventure, scenes model.SceneList) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM commit_scene_expansion($1, $2, $3)`,
		adventure.ID,
		adventure.Version,
		scenes,
	)

	err := scanAdventure(row, adventure)
	if err != nil {
		return h.mapWriteError(adventure, err)
	}

	return nil
}

// DeleteAdventure deletes an adventure by ID
func (h *AdventuresDBHandler) DeleteAdventure(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_adventure($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// mapWriteError translates SQLSTATEs raised by the adventure write functions
// into the application error taxonomy.
func (h *AdventuresDBHandler) mapWriteError(adventure *model.Adventure, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case sqlstateLimitExceeded:
			if pqErr.Message == "expansion regeneration limit reached" {
				return apperror.NewLimitExceeded("expansion", adventure.ExpansionRegensUsed, model.MaxExpansionRegens)
			}
			return apperror.NewLimitExceeded("scaffold", adventure.ScaffoldRegensUsed, model.MaxScaffoldRegens)
		case sqlstateVersionConflict:
			return apperror.NewConflict("adventure was modified concurrently", err)
		case sqlstateNotFound:
			return apperror.NewNotFound(fmt.Sprintf("adventure %s not found", adventure.ID), err)
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NewNotFound(fmt.Sprintf("adventure %s not found", adventure.ID), err)
	}
	return helper.NewError("scan", err)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAdventure(row rowScanner, adventure *model.Adventure) error {
	return row.Scan(
		&adventure.ID,
		&adventure.OwnerID,
		&adventure.Title,
		&adventure.Frame,
		&adventure.Focus,
		&adventure.Difficulty,
		&adventure.Stakes,
		&adventure.PartySize,
		&adventure.PartyLevel,
		&adventure.Scenes,
		&adventure.ScaffoldRegensUsed,
		&adventure.ExpansionRegensUsed,
		&adventure.Version,
		&adventure.CreatedAt,
		&adventure.UpdatedAt,
	)
}
