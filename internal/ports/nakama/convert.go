package nakama

import (
	"fmt"

	"rummikub/internal/app"
	"rummikub/internal/domain"
)

// moveMsg is the wire form of a move: the full table after the move and
// the hand tiles it used, in tile notation.
type moveMsg struct {
	Table [][]string `json:"table"`
	Used  []string   `json:"used"`
}

type enumerateRequest struct {
	Hand          []string   `json:"hand"`
	Table         [][]string `json:"table"`
	MaxSubsetSize int        `json:"max_subset_size"`
	StrictRuns    *bool      `json:"strict_runs,omitempty"`
}

type enumerateResponse struct {
	Moves         []moveMsg `json:"moves"`
	MaxSubsetSize int       `json:"max_subset_size"`
}

type gameStartedMsg struct {
	GameID        string   `json:"game_id"`
	Players       []string `json:"players"`
	FirstTurnSeat int      `json:"first_turn_seat"`
	StockLeft     int      `json:"stock_left"`
}

type handDealtMsg struct {
	Seat int      `json:"seat"`
	Hand []string `json:"hand"`
}

type movePlayedMsg struct {
	Seat         int        `json:"seat"`
	Used         []string   `json:"used"`
	Table        [][]string `json:"table"`
	NextTurnSeat int        `json:"next_turn_seat"`
}

type tileDrawnMsg struct {
	Seat int    `json:"seat"`
	Tile string `json:"tile,omitempty"`
}

type turnPassedMsg struct {
	Seat         int `json:"seat"`
	NextTurnSeat int `json:"next_turn_seat"`
	StockLeft    int `json:"stock_left"`
}

type gameEndedMsg struct {
	WinnerSeat int `json:"winner_seat"`
}

type gameErrorMsg struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type playerState struct {
	UserID         string `json:"user_id"`
	Seat           int    `json:"seat"`
	IsOwner        bool   `json:"is_owner"`
	TilesRemaining int    `json:"tiles_remaining"`
	DisplayName    string `json:"display_name"`
}

type matchSnapshot struct {
	Seats     []string      `json:"seats"`
	OwnerSeat int           `json:"owner_seat"`
	Tick      int64         `json:"tick"`
	Players   []playerState `json:"players"`
	Table     [][]string    `json:"table,omitempty"`
	StockLeft int           `json:"stock_left"`
}

func moveToMsg(m domain.Move) moveMsg {
	return moveMsg{
		Table: domain.FormatTable(m.Table),
		Used:  domain.FormatTiles(m.Used),
	}
}

func moveFromMsg(msg moveMsg) (domain.Move, error) {
	table, err := domain.ParseTable(msg.Table)
	if err != nil {
		return domain.Move{}, fmt.Errorf("table: %w", err)
	}
	used, err := domain.ParseTiles(msg.Used)
	if err != nil {
		return domain.Move{}, fmt.Errorf("used: %w", err)
	}
	return domain.Move{Table: table, Used: used}, nil
}

// eventMessage maps an app event to its op code and JSON body.
func eventMessage(ev app.Event) (int64, any, bool) {
	switch p := ev.Payload.(type) {
	case app.GameStartedPayload:
		return OpGameStarted, gameStartedMsg{
			GameID:        p.GameID,
			Players:       p.Players,
			FirstTurnSeat: p.FirstTurnSeat,
			StockLeft:     p.StockLeft,
		}, true
	case app.HandDealtPayload:
		return OpHandDealt, handDealtMsg{Seat: p.Seat, Hand: domain.FormatTiles(p.Hand)}, true
	case app.MovePlayedPayload:
		return OpMovePlayed, movePlayedMsg{
			Seat:         p.Seat,
			Used:         domain.FormatTiles(p.Used),
			Table:        domain.FormatTable(p.Table),
			NextTurnSeat: p.NextTurnSeat,
		}, true
	case app.TileDrawnPayload:
		msg := tileDrawnMsg{Seat: p.Seat}
		if p.Tile != nil {
			msg.Tile = p.Tile.String()
		}
		return OpTileDrawn, msg, true
	case app.TurnPassedPayload:
		return OpTurnPassed, turnPassedMsg{
			Seat:         p.Seat,
			NextTurnSeat: p.NextTurnSeat,
			StockLeft:    p.StockLeft,
		}, true
	case app.GameEndedPayload:
		return OpGameEnded, gameEndedMsg{WinnerSeat: p.WinnerSeat}, true
	}
	return 0, nil, false
}
