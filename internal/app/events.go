package app

import "rummikub/internal/domain"

// EventKind identifies emitted domain events for dispatch.
type EventKind string

const (
	EventGameStarted EventKind = "game_started"
	EventHandDealt   EventKind = "hand_dealt"
	EventMovePlayed  EventKind = "move_played"
	EventTileDrawn   EventKind = "tile_drawn"
	EventTurnPassed  EventKind = "turn_passed"
	EventGameEnded   EventKind = "game_ended"
)

// Event is a domain/app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

type GameStartedPayload struct {
	GameID        string
	Players       []string
	FirstTurnSeat int
	StockLeft     int
}

type HandDealtPayload struct {
	Seat int
	Hand []domain.Tile
}

type MovePlayedPayload struct {
	Seat         int
	Used         []domain.Tile
	Table        domain.Table
	NextTurnSeat int
}

// TileDrawnPayload goes to the drawing player only. Tile is nil when the
// stock was already empty.
type TileDrawnPayload struct {
	Seat int
	Tile *domain.Tile
}

type TurnPassedPayload struct {
	Seat         int
	NextTurnSeat int
	StockLeft    int
}

type GameEndedPayload struct {
	WinnerSeat int
}
