package app

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"rummikub/internal/domain"
	"rummikub/internal/solver"
)

// Settings are the per-game rules a Service applies.
type Settings struct {
	BlocksStart   int // tiles dealt to each player
	BlocksRange   int // highest rank in the pool
	Copies        int // copies of every ordinary tile
	Jokers        int
	Rules         domain.Rules
	MaxSubsetSize int // 0 means unlimited
}

// DefaultSettings is the standard 106-tile game with 14-tile hands.
func DefaultSettings() Settings {
	return Settings{
		BlocksStart: 14,
		BlocksRange: 13,
		Copies:      2,
		Jokers:      2,
	}
}

// Service contains Rummikub use-cases operating on domain state.
type Service struct {
	src      domain.Source
	settings Settings
}

// NewService constructs a Service with the provided randomness source or an
// entropy-seeded default.
func NewService(src domain.Source, settings Settings) *Service {
	if src == nil {
		src = domain.NewSource(0)
	}
	return &Service{src: src, settings: settings}
}

// Settings returns the rules this service was built with.
func (s *Service) Settings() Settings {
	return s.settings
}

var (
	ErrTooFewPlayers  = errors.New("not enough players to start")
	ErrTooManyPlayers = errors.New("too many players")
	ErrInvalidPlayer  = errors.New("invalid player index")
	ErrNotYourTurn    = errors.New("not this player's turn")
	ErrGameOver       = errors.New("game already over")
)

// StartGame shuffles a fresh pool and deals a hand to every player.
// playerIDs lists the seats in order; empty strings are skipped.
func (s *Service) StartGame(playerIDs []string) (*domain.Game, []Event, error) {
	var players []string
	for _, id := range playerIDs {
		if id != "" {
			players = append(players, id)
		}
	}
	if len(players) < MinPlayersToStartGame {
		return nil, nil, ErrTooFewPlayers
	}
	if len(players) > MaxPlayers {
		return nil, nil, ErrTooManyPlayers
	}

	stock := domain.NewTilePool(s.settings.BlocksRange, s.settings.Copies, s.settings.Jokers)
	domain.ShuffleTiles(s.src, stock)

	game := &domain.Game{
		ID:        uuid.NewString(),
		Phase:     domain.PhasePlaying,
		PlayerIDs: players,
		Hands:     make([][]domain.Tile, len(players)),
		Outcome:   domain.NoWinner{},
	}

	// Deal from the end of the stock, one hand at a time.
	for seat := range players {
		for j := 0; j < s.settings.BlocksStart && len(stock) > 0; j++ {
			game.Hands[seat] = append(game.Hands[seat], stock[len(stock)-1])
			stock = stock[:len(stock)-1]
		}
	}
	game.Stock = stock

	events := make([]Event, 0, len(players)+1)
	events = append(events, Event{
		Kind: EventGameStarted,
		Payload: GameStartedPayload{
			GameID:        game.ID,
			Players:       players,
			FirstTurnSeat: game.CurrentSeat,
			StockLeft:     len(game.Stock),
		},
	})
	for seat, id := range players {
		events = append(events, Event{
			Kind:       EventHandDealt,
			Payload:    HandDealtPayload{Seat: seat, Hand: game.Hands[seat]},
			Recipients: []string{id},
		})
	}
	return game, events, nil
}

// EnumerateMoves lists the moves available to seat. The draw move, which
// keeps the table and uses no tiles, is appended when nothing can be
// placed or the stock still holds tiles.
func (s *Service) EnumerateMoves(game *domain.Game, seat int) ([]domain.Move, error) {
	if seat < 0 || seat >= game.Players() {
		return nil, ErrInvalidPlayer
	}
	moves := solver.EnumerateMoves(game.Table, game.Hands[seat], solver.EnumerateOptions{
		Rules:         s.settings.Rules,
		MaxSubsetSize: s.settings.MaxSubsetSize,
	})
	if len(moves) == 0 || len(game.Stock) > 0 {
		moves = append(moves, domain.Move{Table: game.Table.Clone()})
	}
	return moves, nil
}

// ApplyMove commits move for seat. A rejected move leaves game untouched.
func (s *Service) ApplyMove(game *domain.Game, seat int, move domain.Move) ([]Event, error) {
	if seat < 0 || seat >= game.Players() {
		return nil, ErrInvalidPlayer
	}
	if game.Phase != domain.PhasePlaying {
		return nil, ErrGameOver
	}
	if seat != game.CurrentSeat {
		return nil, ErrNotYourTurn
	}

	if move.IsDraw() {
		return s.draw(game, seat), nil
	}

	if err := solver.CheckConservation(game.Hands[seat], move.Used); err != nil {
		return nil, err
	}
	if err := solver.VerifyMove(game.Table, move, s.settings.Rules); err != nil {
		return nil, fmt.Errorf("seat %d: %w", seat, err)
	}

	game.Hands[seat] = domain.RemoveTiles(game.Hands[seat], move.Used)
	game.Table = move.Table.Clone()

	var ended []Event
	if len(game.Hands[seat]) == 0 {
		game.Outcome = domain.Winner{Seat: seat}
		game.Phase = domain.PhaseEnded
		ended = append(ended, Event{
			Kind:    EventGameEnded,
			Payload: GameEndedPayload{WinnerSeat: seat},
		})
	} else {
		game.Advance()
	}

	events := []Event{{
		Kind: EventMovePlayed,
		Payload: MovePlayedPayload{
			Seat:         seat,
			Used:         move.Used,
			Table:        game.Table,
			NextTurnSeat: game.CurrentSeat,
		},
	}}
	return append(events, ended...), nil
}

func (s *Service) draw(game *domain.Game, seat int) []Event {
	drawn := TileDrawnPayload{Seat: seat}
	if n := len(game.Stock); n > 0 {
		t := game.Stock[n-1]
		game.Stock = game.Stock[:n-1]
		game.Hands[seat] = append(game.Hands[seat], t)
		drawn.Tile = &t
	}
	game.Advance()

	return []Event{
		{
			Kind:       EventTileDrawn,
			Payload:    drawn,
			Recipients: recipient(game, seat),
		},
		{
			Kind: EventTurnPassed,
			Payload: TurnPassedPayload{
				Seat:         seat,
				NextTurnSeat: game.CurrentSeat,
				StockLeft:    len(game.Stock),
			},
		},
	}
}

func recipient(game *domain.Game, seat int) []string {
	if seat < len(game.PlayerIDs) {
		return []string{game.PlayerIDs[seat]}
	}
	return nil
}
