// Package budget holds the read-side regeneration budget checks. The
// authoritative guard lives in the database commit functions; these checks
// run before any generation work so an exhausted budget fails fast instead
// of after a provider round trip.
package budget

import (
	"github.com/daggergm/daggergm/apperror"
	"github.com/daggergm/daggergm/model"
)

// CheckScaffold returns a limit error when the scaffold budget is exhausted.
func CheckScaffold(adventure *model.Adventure) error {
	if adventure.ScaffoldRegensUsed >= model.MaxScaffoldRegens {
		return apperror.NewLimitExceeded("scaffold", adventure.ScaffoldRegensUsed, model.MaxScaffoldRegens)
	}
	return nil
}

// CheckExpansion returns a limit error when the expansion budget is
// exhausted. Refinement draws from the same budget.
func CheckExpansion(adventure *model.Adventure) error {
	if adventure.ExpansionRegensUsed >= model.MaxExpansionRegens {
		return apperror.NewLimitExceeded("expansion", adventure.ExpansionRegensUsed, model.MaxExpansionRegens)
	}
	return nil
}

// ScaffoldRemaining returns the number of scaffold regenerations left.
func ScaffoldRemaining(adventure *model.Adventure) int {
	remaining := model.MaxScaffoldRegens - adventure.ScaffoldRegensUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ExpansionRemaining returns the number of expansion regenerations left.
func ExpansionRemaining(adventure *model.Adventure) int {
	remaining := model.MaxExpansionRegens - adventure.ExpansionRegensUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
