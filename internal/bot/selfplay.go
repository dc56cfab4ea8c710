package bot

import (
	"errors"
	"fmt"

	"rummikub/internal/app"
	"rummikub/internal/domain"
)

var ErrTurnLimit = errors.New("turn limit reached")

// Turn records one applied move.
type Turn struct {
	Seat int
	Move domain.Move
}

// SelfPlay lets agents play game until someone wins, the table stalls with
// an empty stock, or maxTurns is reached. agents are indexed by seat.
func SelfPlay(svc *app.Service, game *domain.Game, agents []*Agent, maxTurns int) ([]Turn, error) {
	if len(agents) != game.Players() {
		return nil, fmt.Errorf("%w: %d agents for %d seats", app.ErrInvalidPlayer, len(agents), game.Players())
	}

	var turns []Turn
	passes := 0
	for len(turns) < maxTurns {
		if game.Done() {
			return turns, nil
		}
		seat := game.CurrentSeat
		move, err := agents[seat].Play(svc, game)
		if err != nil {
			return turns, err
		}
		if _, err := svc.ApplyMove(game, seat, move); err != nil {
			return turns, fmt.Errorf("seat %d: %w", seat, err)
		}
		turns = append(turns, Turn{Seat: seat, Move: move})

		// Once the stock is gone a full round of passes can never change anything.
		if move.IsDraw() && len(game.Stock) == 0 {
			passes++
			if passes >= game.Players() {
				return turns, nil
			}
		} else {
			passes = 0
		}
	}
	if game.Done() {
		return turns, nil
	}
	return turns, ErrTurnLimit
}
