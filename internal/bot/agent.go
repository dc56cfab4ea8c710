package bot

import (
	"errors"
	"fmt"
	"strings"

	"rummikub/internal/app"
	"rummikub/internal/domain"
)

// UserIDPrefix marks seats occupied by bots.
const UserIDPrefix = "bot-"

var ErrNotSeated = errors.New("agent is not seated in this game")

// Brain chooses one of the legal moves offered for a turn.
type Brain interface {
	Choose(game *domain.Game, seat int, moves []domain.Move) domain.Move
}

// RandomBrain picks uniformly among the legal moves, draw included.
type RandomBrain struct {
	src domain.Source
}

// NewRandomBrain returns a RandomBrain drawing from src, or from system
// entropy when src is nil.
func NewRandomBrain(src domain.Source) *RandomBrain {
	if src == nil {
		src = domain.NewSource(0)
	}
	return &RandomBrain{src: src}
}

func (b *RandomBrain) Choose(_ *domain.Game, _ int, moves []domain.Move) domain.Move {
	return moves[b.src.Intn(len(moves))]
}

// Agent represents an autonomous bot player.
type Agent struct {
	ID    string
	Name  string
	Brain Brain
}

// NewAgent creates a random-play agent for the bot in seat.
func NewAgent(seat int, src domain.Source) *Agent {
	return &Agent{
		ID:    UserIDFor(seat),
		Name:  fmt.Sprintf("AI Player %d", seat+1),
		Brain: NewRandomBrain(src),
	}
}

// UserIDFor is the user id given to the bot filling seat.
func UserIDFor(seat int) string {
	return fmt.Sprintf("%s%d", UserIDPrefix, seat)
}

// IsBot reports whether userID belongs to a bot.
func IsBot(userID string) bool {
	return strings.HasPrefix(userID, UserIDPrefix)
}

// Play asks the agent for its move on the current game state.
func (a *Agent) Play(svc *app.Service, game *domain.Game) (domain.Move, error) {
	seat := game.SeatOf(a.ID)
	if seat < 0 {
		return domain.Move{}, ErrNotSeated
	}
	moves, err := svc.EnumerateMoves(game, seat)
	if err != nil {
		return domain.Move{}, err
	}
	return a.Brain.Choose(game, seat, moves), nil
}
