package domain

import "slices"

// Phase represents the lifecycle stage of a Rummikub game.
type Phase string

const (
	// PhasePlaying is the active game state where tiles are placed or drawn.
	PhasePlaying Phase = "playing"
	// PhaseEnded is the state after a player empties their hand.
	PhaseEnded Phase = "ended"
)

// Outcome is the result of a game: NoWinner or Winner.
type Outcome interface {
	isOutcome()
}

// NoWinner is the outcome while the game is running.
type NoWinner struct{}

// Winner records the seat that emptied its hand.
type Winner struct {
	Seat int
}

func (NoWinner) isOutcome() {}
func (Winner) isOutcome()   {}

// Move replaces the whole table and names the hand tiles committed to it.
// A move with no used tiles is a draw.
type Move struct {
	Table Table
	Used  []Tile
}

// IsDraw reports whether m takes a tile from the stock instead of placing.
func (m Move) IsDraw() bool {
	return len(m.Used) == 0
}

// Game holds the authoritative state of one Rummikub game.
type Game struct {
	ID          string
	Phase       Phase
	PlayerIDs   []string // seat -> user id
	Stock       []Tile
	Hands       [][]Tile // seat -> hand
	Table       Table
	CurrentSeat int
	Outcome     Outcome
}

// Players is the number of seats dealt in.
func (g *Game) Players() int {
	return len(g.Hands)
}

// SeatOf returns the seat of userID, or -1.
func (g *Game) SeatOf(userID string) int {
	return slices.Index(g.PlayerIDs, userID)
}

// Done reports whether a winner has been decided.
func (g *Game) Done() bool {
	_, won := g.Outcome.(Winner)
	return won
}

// Advance passes the turn to the next seat.
func (g *Game) Advance() {
	if len(g.Hands) == 0 {
		return
	}
	g.CurrentSeat = (g.CurrentSeat + 1) % len(g.Hands)
}

// Clone returns a deep copy that shares nothing with g.
func (g *Game) Clone() *Game {
	hands := make([][]Tile, len(g.Hands))
	for i, h := range g.Hands {
		hands[i] = slices.Clone(h)
	}
	return &Game{
		ID:          g.ID,
		Phase:       g.Phase,
		PlayerIDs:   slices.Clone(g.PlayerIDs),
		Stock:       slices.Clone(g.Stock),
		Hands:       hands,
		Table:       g.Table.Clone(),
		CurrentSeat: g.CurrentSeat,
		Outcome:     g.Outcome,
	}
}

// RemoveTiles removes one occurrence of each used tile from hand, keeping
// the order of what remains. Tiles missing from hand are ignored.
func RemoveTiles(hand, used []Tile) []Tile {
	out := slices.Clone(hand)
	for _, u := range used {
		if i := slices.Index(out, u); i >= 0 {
			out = slices.Delete(out, i, i+1)
		}
	}
	return out
}
