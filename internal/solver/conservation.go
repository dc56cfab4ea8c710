package solver

import (
	"errors"
	"fmt"

	"rummikub/internal/domain"
)

var ErrIllegalTable = errors.New("illegal table")

// CheckConservation verifies that hand holds every tile in used, counting
// duplicates. The error names the first tile, in used order, that the hand
// runs out of.
func CheckConservation(hand, used []domain.Tile) error {
	have := domain.NewCounts(hand)
	for _, t := range used {
		if have[t] == 0 {
			return &domain.InsufficientTilesError{Tile: t}
		}
		have[t]--
	}
	return nil
}

// VerifyMove checks that every meld of move.Table is valid and that the new
// table holds exactly the old table's tiles plus move.Used.
func VerifyMove(table domain.Table, move domain.Move, rules domain.Rules) error {
	for _, m := range move.Table {
		if !rules.IsMeld(m) {
			return fmt.Errorf("%w: %s is not a meld", ErrIllegalTable, m)
		}
	}
	if !move.Table.Counts().Equal(domain.NewCounts(table.Tiles(), move.Used)) {
		return fmt.Errorf("%w: tiles not conserved", ErrIllegalTable)
	}
	return nil
}
