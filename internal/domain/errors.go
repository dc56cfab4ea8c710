package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTile       = errors.New("invalid tile")
	ErrInsufficientTiles = errors.New("insufficient tiles in hand")
)

// InsufficientTilesError names the first tile a hand could not supply.
type InsufficientTilesError struct {
	Tile Tile
}

func (e *InsufficientTilesError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInsufficientTiles, e.Tile)
}

func (e *InsufficientTilesError) Unwrap() error {
	return ErrInsufficientTiles
}
