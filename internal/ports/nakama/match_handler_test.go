package nakama

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/heroiclabs/nakama-common/runtime"

	"rummikub/internal/bot"
	"rummikub/internal/config"
	"rummikub/internal/domain"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

// mockPresence answers only the presence calls the handler makes.
type mockPresence struct {
	runtime.Presence
	userID string
}

func (p mockPresence) GetUserId() string   { return p.userID }
func (p mockPresence) GetUsername() string { return "name-" + p.userID }

type sentMessage struct {
	opCode    int64
	data      []byte
	recipient int // number of targeted presences, 0 for broadcast
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	messages     []sentMessage
	labelUpdates int
	lastLabel    string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.messages = append(md.messages, sentMessage{
		opCode:    opCode,
		data:      append([]byte(nil), data...),
		recipient: len(presences),
	})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	md.lastLabel = label
	return nil
}

func (md *mockDispatcher) count(opCode int64) int {
	n := 0
	for _, m := range md.messages {
		if m.opCode == opCode {
			n++
		}
	}
	return n
}

func (md *mockDispatcher) last(opCode int64) []byte {
	for i := len(md.messages) - 1; i >= 0; i-- {
		if md.messages[i].opCode == opCode {
			return md.messages[i].data
		}
	}
	return nil
}

func testState(t *testing.T, seed uint64) *MatchState {
	t.Helper()
	cfg := config.Default()
	cfg.Seed = seed
	cfg.MaxSubsetSize = 3
	return newMatchState(cfg)
}

func TestFindFirstHumanSeat(t *testing.T) {
	bot1 := bot.UserIDFor(0)
	bot2 := bot.UserIDFor(1)

	tests := []struct {
		name  string
		seats []string
		want  int
	}{
		{
			name:  "FirstHumanAfterBot",
			seats: []string{bot1, "user-1", "", ""},
			want:  1,
		},
		{
			name:  "AllBots",
			seats: []string{bot1, bot2, "", ""},
			want:  -1,
		},
		{
			name:  "AllEmpty",
			seats: []string{"", "", "", ""},
			want:  -1,
		},
		{
			name:  "FirstHumanIsSeatZero",
			seats: []string{"user-1", bot1, "user-2", ""},
			want:  0,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := findFirstHumanSeat(test.seats); got != test.want {
				t.Fatalf("findFirstHumanSeat() = %d, want %d", got, test.want)
			}
		})
	}
}

func TestShouldTerminateNoHumans(t *testing.T) {
	tests := []struct {
		name  string
		seats []string
		want  bool
	}{
		{
			name:  "BotsOnly",
			seats: []string{bot.UserIDFor(0), bot.UserIDFor(1), bot.UserIDFor(2), bot.UserIDFor(3)},
			want:  true,
		},
		{
			name:  "BotsAndEmpty",
			seats: []string{bot.UserIDFor(0), "", bot.UserIDFor(2), ""},
			want:  true,
		},
		{
			name:  "HumansPresent",
			seats: []string{bot.UserIDFor(0), "user-1", "", ""},
			want:  false,
		},
		{
			name:  "AllEmpty",
			seats: []string{"", "", "", ""},
			want:  true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := shouldTerminateNoHumans(test.seats); got != test.want {
				t.Fatalf("shouldTerminateNoHumans() = %t, want %t", got, test.want)
			}
		})
	}
}

func TestMatchLabel(t *testing.T) {
	tests := []struct {
		name  string
		open  int
		phase string
	}{
		{name: "LobbyState", open: 3, phase: stateLobby},
		{name: "PlayingState", open: 0, phase: statePlaying},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			label, err := matchLabel(test.open, test.phase)
			if err != nil {
				t.Fatalf("matchLabel: %v", err)
			}
			var got struct {
				Game  string `json:"game"`
				Open  int    `json:"open"`
				State string `json:"state"`
			}
			if err := json.Unmarshal([]byte(label), &got); err != nil {
				t.Fatalf("label %q is not JSON: %v", label, err)
			}
			if got.Game != labelGame || got.Open != test.open || got.State != test.phase {
				t.Fatalf("label = %+v, want game=%s open=%d state=%s", got, labelGame, test.open, test.phase)
			}
		})
	}
}

func TestProcessBots_FillsToTargetForSoloHuman(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := testState(t, 1)
	state.Seats = [4]string{"user-1", "", "", ""}
	state.TargetPlayers = 3
	state.BotAutoFillDelay = 2
	state.LastSinglePlayerTick = 8
	state.Tick = 10

	handler.processBots(state, dispatcher, noopLogger{})

	botCount := 0
	for _, seat := range state.Seats {
		if bot.IsBot(seat) {
			botCount++
		}
	}
	if botCount != 2 {
		t.Fatalf("Expected 2 bots, got %d", botCount)
	}
	if state.GetOpenSeatsCount() != 1 {
		t.Fatalf("Expected 1 open seat after auto-fill, got %d", state.GetOpenSeatsCount())
	}
	if state.LastSinglePlayerTick != 0 {
		t.Fatalf("Expected auto-fill timer reset, got %d", state.LastSinglePlayerTick)
	}
	if dispatcher.count(OpPlayerJoined) == 0 || dispatcher.labelUpdates == 0 {
		t.Fatalf("Expected match state broadcast and label update after auto-fill")
	}
}

func TestProcessBots_WaitsForAutoFillDelay(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := testState(t, 1)
	state.Seats = [4]string{"user-1", "", "", ""}
	state.BotAutoFillDelay = 5
	state.Tick = 10

	handler.processBots(state, dispatcher, noopLogger{})

	if state.GetOccupiedSeatCount() != 1 {
		t.Fatalf("bots added before the delay elapsed: %v", state.Seats)
	}
	if state.LastSinglePlayerTick != 10 {
		t.Fatalf("LastSinglePlayerTick = %d, want 10", state.LastSinglePlayerTick)
	}
}

func TestSeatPlayerReplacesBotInLobby(t *testing.T) {
	handler := &matchHandler{}
	state := testState(t, 1)
	for i := range state.Seats {
		agent := bot.NewAgent(i, nil)
		state.Seats[i] = agent.ID
		state.Bots[agent.ID] = agent
	}

	seat, ok := handler.seatPlayer(state, "user-1")
	if !ok || seat != 0 {
		t.Fatalf("seatPlayer = %d, %t; want seat 0", seat, ok)
	}
	if _, still := state.Bots[bot.UserIDFor(0)]; still {
		t.Fatalf("replaced bot still registered")
	}
	if again, _ := handler.seatPlayer(state, "user-1"); again != seat {
		t.Fatalf("rejoining moved the player from %d to %d", seat, again)
	}
}

func TestBroadcastMatchState(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := testState(t, 1)
	agent := bot.NewAgent(1, nil)
	state.Seats = [4]string{"user-1", agent.ID, "", ""}
	state.Bots[agent.ID] = agent
	state.OwnerSeat = 0
	state.Tick = 42

	handler.broadcastMatchState(state, dispatcher, noopLogger{}, OpPlayerJoined)

	var snapshot matchSnapshot
	if err := json.Unmarshal(dispatcher.last(OpPlayerJoined), &snapshot); err != nil {
		t.Fatalf("Failed to unmarshal snapshot: %v", err)
	}
	if snapshot.Tick != 42 || snapshot.OwnerSeat != 0 || len(snapshot.Players) != 2 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if got := snapshot.Players[1].DisplayName; got != agent.Name {
		t.Fatalf("bot display name = %q, want %q", got, agent.Name)
	}
	if !snapshot.Players[0].IsOwner || snapshot.Players[1].IsOwner {
		t.Fatalf("owner flags wrong: %+v", snapshot.Players)
	}
}

func TestMatchLeave(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := testState(t, 1)
	state.Seats = [4]string{"user-1", "user-2", "", ""}
	state.OwnerSeat = 0
	for _, id := range []string{"user-1", "user-2"} {
		state.Presences[id] = mockPresence{userID: id}
	}

	got := handler.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.Presence{mockPresence{userID: "user-1"}})
	if got == nil {
		t.Fatalf("match ended while a human is still seated")
	}
	if state.Seats[0] != "" || state.OwnerSeat != 1 {
		t.Fatalf("seat not freed or owner not moved: seats=%v owner=%d", state.Seats, state.OwnerSeat)
	}
	if dispatcher.count(OpPlayerLeft) != 1 || dispatcher.count(OpPlayerJoined) != 0 {
		t.Fatalf("leave broadcast under the wrong op code: %+v", dispatcher.messages)
	}
	var snapshot matchSnapshot
	if err := json.Unmarshal(dispatcher.last(OpPlayerLeft), &snapshot); err != nil {
		t.Fatalf("Failed to unmarshal snapshot: %v", err)
	}
	if len(snapshot.Players) != 1 || snapshot.Players[0].DisplayName != "name-user-2" || !snapshot.Players[0].IsOwner {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	if got := handler.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state, []runtime.Presence{mockPresence{userID: "user-2"}}); got != nil {
		t.Fatalf("empty match kept running")
	}
}

func TestMatchLeaveKeepsSeatMidGame(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := testState(t, 3)
	state.Seats = [4]string{"user-1", "user-2", "", ""}
	state.OwnerSeat = 0
	for _, id := range []string{"user-1", "user-2"} {
		state.Presences[id] = mockPresence{userID: id}
	}
	handler.handleStartGame(state, dispatcher, noopLogger{}, "user-1")
	if state.Game == nil {
		t.Fatalf("game did not start")
	}

	handler.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.Presence{mockPresence{userID: "user-2"}})
	if state.Seats[1] != "user-2" {
		t.Fatalf("seat released mid-game: %v", state.Seats)
	}
	if dispatcher.count(OpPlayerLeft) != 1 {
		t.Fatalf("expected one player_left broadcast, got %d", dispatcher.count(OpPlayerLeft))
	}
}

func TestMarshalMessage(t *testing.T) {
	b, err := marshalMessage(matchSnapshot{
		Seats:     []string{"user-1", ""},
		OwnerSeat: 0,
		Tick:      1700000000,
		Players:   []playerState{{UserID: "user-1", IsOwner: true, TilesRemaining: 14}},
		StockLeft: 78,
	})
	if err != nil {
		t.Fatalf("marshalMessage: %v", err)
	}
	var snapshot matchSnapshot
	if err := json.Unmarshal(b, &snapshot); err != nil {
		t.Fatalf("body is not JSON: %v: %s", err, b)
	}
	if snapshot.Tick != 1700000000 || snapshot.StockLeft != 78 || len(snapshot.Seats) != 2 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if p := snapshot.Players; len(p) != 1 || !p[0].IsOwner || p[0].TilesRemaining != 14 {
		t.Fatalf("unexpected players %+v", p)
	}

	if _, err := marshalMessage([]int{1, 2}); err == nil {
		t.Fatalf("expected an error for a non-object body")
	}
}

func TestStartGameOwnerOnly(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := testState(t, 3)
	state.Seats = [4]string{"user-1", "user-2", "", ""}
	state.OwnerSeat = 0

	handler.handleStartGame(state, dispatcher, noopLogger{}, "user-2")
	if state.Game != nil {
		t.Fatalf("non-owner started the game")
	}

	handler.handleStartGame(state, dispatcher, noopLogger{}, "user-1")
	if state.Game == nil {
		t.Fatalf("owner could not start the game")
	}
	if dispatcher.count(OpGameStarted) != 1 {
		t.Fatalf("expected one game_started broadcast, got %d", dispatcher.count(OpGameStarted))
	}
	// Hands go privately to connected players only; none are connected here.
	if dispatcher.count(OpHandDealt) != 0 {
		t.Fatalf("hands leaked to a broadcast")
	}
	if dispatcher.lastLabel == "" {
		t.Fatalf("label not updated on start")
	}
}

func TestDrawAndPlayMove(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := testState(t, 9)
	state.Seats = [4]string{"user-1", "user-2", "", ""}
	state.OwnerSeat = 0
	handler.handleStartGame(state, dispatcher, noopLogger{}, "user-1")
	game := state.Game

	// Out of turn.
	handler.handleDrawTile(state, dispatcher, noopLogger{}, "user-2")
	if game.CurrentSeat != 0 {
		t.Fatalf("out-of-turn draw advanced the game")
	}

	stock := len(game.Stock)
	handler.handleDrawTile(state, dispatcher, noopLogger{}, "user-1")
	if len(game.Stock) != stock-1 || len(game.Hands[0]) != 15 || game.CurrentSeat != 1 {
		t.Fatalf("draw not applied: stock %d hand %d seat %d", len(game.Stock), len(game.Hands[0]), game.CurrentSeat)
	}
	if dispatcher.count(OpTurnPassed) != 1 {
		t.Fatalf("expected a turn_passed broadcast")
	}

	// Give seat 1 a known opening and play it.
	game.Hands[1] = append(game.Hands[1], domain.Tile{Rank: 7, Color: domain.Red}, domain.Tile{Rank: 7, Color: domain.Blue}, domain.Tile{Rank: 7, Color: domain.Black})
	payload, _ := json.Marshal(moveMsg{
		Table: [][]string{{"R7", "B7", "K7"}},
		Used:  []string{"R7", "B7", "K7"},
	})
	handler.handlePlayMove(state, dispatcher, noopLogger{}, "user-2", payload)
	if len(game.Table) != 1 || game.CurrentSeat != 0 {
		t.Fatalf("move not applied: table %s seat %d", game.Table, game.CurrentSeat)
	}

	var played movePlayedMsg
	if err := json.Unmarshal(dispatcher.last(OpMovePlayed), &played); err != nil {
		t.Fatalf("bad move_played payload: %v", err)
	}
	if played.Seat != 1 || played.NextTurnSeat != 0 || len(played.Used) != 3 {
		t.Fatalf("unexpected move_played %+v", played)
	}
}

func TestPlayMoveRejectsIllegalTable(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := testState(t, 9)
	state.Seats = [4]string{"user-1", "user-2", "", ""}
	state.OwnerSeat = 0
	handler.handleStartGame(state, dispatcher, noopLogger{}, "user-1")
	game := state.Game

	game.Hands[0] = append(game.Hands[0], domain.Tile{Rank: 1, Color: domain.Red}, domain.Tile{Rank: 9, Color: domain.Blue})
	payload, _ := json.Marshal(moveMsg{
		Table: [][]string{{"R1", "B9"}},
		Used:  []string{"R1", "B9"},
	})
	before := len(game.Hands[0])
	handler.handlePlayMove(state, dispatcher, noopLogger{}, "user-1", payload)
	if len(game.Table) != 0 || len(game.Hands[0]) != before || game.CurrentSeat != 0 {
		t.Fatalf("illegal move changed the game")
	}

	handler.handlePlayMove(state, dispatcher, noopLogger{}, "user-1", []byte("not json"))
	if game.CurrentSeat != 0 {
		t.Fatalf("garbage payload changed the game")
	}
}

func TestBotTakesTurn(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := testState(t, 4)
	agent := bot.NewAgent(0, nil)
	state.Seats = [4]string{agent.ID, "user-1", "", ""}
	state.Bots[agent.ID] = agent
	state.OwnerSeat = 1
	state.BotsEnabled = true
	state.BotMinDelay, state.BotMaxDelay = 1, 1
	handler.handleStartGame(state, dispatcher, noopLogger{}, "user-1")
	if state.Game == nil {
		t.Fatalf("game did not start")
	}

	state.Tick = 100
	handler.processBots(state, dispatcher, noopLogger{})
	if state.BotWaitUntil != 101 || state.Game.CurrentSeat != 0 {
		t.Fatalf("bot should wait one tick: wait=%d seat=%d", state.BotWaitUntil, state.Game.CurrentSeat)
	}

	state.Tick = 101
	handler.processBots(state, dispatcher, noopLogger{})
	if state.Game.CurrentSeat != 1 {
		t.Fatalf("bot did not act, seat %d", state.Game.CurrentSeat)
	}
	if !state.Game.Table.Valid(domain.DefaultRules) {
		t.Fatalf("bot left an invalid table %s", state.Game.Table)
	}
}

func TestRpcEnumerateMoves(t *testing.T) {
	bigHand := `{"hand":[` + strings.TrimSuffix(strings.Repeat(`"R1",`, 31), ",") + `],"table":[]}`
	bigTable := `{"hand":["R1"],"table":[` + strings.TrimSuffix(strings.Repeat(`["B1","B2","B3"],`, 36), ",") + `]}`

	tests := []struct {
		name    string
		payload string
		want    int
		wantCap int
		wantErr bool
	}{
		{
			name:    "InvalidTable",
			payload: `{"hand":["R1","R2"],"table":[["J","R3"]]}`,
			wantErr: true,
		},
		{
			name:    "JokerLetsBothTilesIn",
			payload: `{"hand":["R1","R2"],"table":[["J","R3","R4"]]}`,
			want:    3,
		},
		{
			name:    "ExtendRun",
			payload: `{"hand":["B1"],"table":[["B2","B3","B4"]]}`,
			want:    1,
		},
		{
			name:    "NothingFits",
			payload: `{"hand":["R1","R2"],"table":[["B2","B3","B4"]]}`,
			want:    0,
		},
		{
			name:    "BadTile",
			payload: `{"hand":["Q1"],"table":[]}`,
			wantErr: true,
		},
		{
			name:    "NotJSON",
			payload: `hand`,
			wantErr: true,
		},
		{
			name:    "ConfigCapIsACeiling",
			payload: `{"hand":["R1","R2","R3","R4"],"table":[],"max_subset_size":10}`,
			want:    2,
			wantCap: 3,
		},
		{
			name:    "RequestLowersCap",
			payload: `{"hand":["R1","R2","R3","R4"],"table":[],"max_subset_size":2}`,
			want:    0,
			wantCap: 2,
		},
		{
			name:    "DefaultCap",
			payload: `{"hand":["R1","R2","R3","R4"],"table":[]}`,
			want:    2,
			wantCap: 3,
		},
		{
			name:    "HandTooLarge",
			payload: bigHand,
			wantErr: true,
		},
		{
			name:    "TableLargerThanSet",
			payload: bigTable,
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out, err := rpcEnumerateMoves(context.Background(), noopLogger{}, nil, nil, test.payload)
			if test.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", out)
				}
				return
			}
			if err != nil {
				t.Fatalf("rpcEnumerateMoves: %v", err)
			}
			var resp enumerateResponse
			if err := json.Unmarshal([]byte(out), &resp); err != nil {
				t.Fatalf("bad response %q: %v", out, err)
			}
			if len(resp.Moves) != test.want {
				t.Fatalf("got %d moves, want %d: %s", len(resp.Moves), test.want, out)
			}
			if test.wantCap != 0 && resp.MaxSubsetSize != test.wantCap {
				t.Fatalf("ran with cap %d, want %d", resp.MaxSubsetSize, test.wantCap)
			}
			for _, m := range resp.Moves {
				if test.wantCap != 0 && len(m.Used) > test.wantCap {
					t.Fatalf("move uses %d tiles, cap is %d: %v", len(m.Used), test.wantCap, m.Used)
				}
			}
		})
	}
}

func TestSubsetCap(t *testing.T) {
	tests := []struct {
		ceiling, requested, want int
	}{
		{ceiling: 3, requested: 0, want: 3},
		{ceiling: 3, requested: 2, want: 2},
		{ceiling: 3, requested: 9, want: 3},
		{ceiling: 0, requested: 9, want: 9},
		{ceiling: 0, requested: 0, want: 0},
	}
	for _, test := range tests {
		if got := subsetCap(test.ceiling, test.requested); got != test.want {
			t.Fatalf("subsetCap(%d, %d) = %d, want %d", test.ceiling, test.requested, got, test.want)
		}
	}
}
