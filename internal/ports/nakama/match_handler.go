package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"rummikub/internal/app"
	"rummikub/internal/bot"
	"rummikub/internal/config"
	"rummikub/internal/domain"
)

const (
	stateLobby   = "lobby"
	statePlaying = "playing"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Seats                [app.MaxPlayers]string      `json:"seats"`      // user IDs, empty string means seat is empty
	OwnerSeat            int                         `json:"owner_seat"` // seat index of the match owner
	Tick                 int64                       `json:"tick"`
	Presences            map[string]runtime.Presence `json:"-"` // user ID -> presence for targeted messaging
	App                  *app.Service                `json:"-"`
	Game                 *domain.Game                `json:"-"`              // nil while in the lobby
	TargetPlayers        int                         `json:"target_players"` // seats bots fill up to
	BotsEnabled          bool                        `json:"bots_enabled"`
	BotMinDelay          int                         `json:"bot_min_delay"` // seconds
	BotMaxDelay          int                         `json:"bot_max_delay"` // seconds
	BotAutoFillDelay     int                         `json:"bot_auto_fill_delay"`
	BotWaitUntil         int64                       `json:"bot_wait_until"` // tick when the bot should act
	LastSinglePlayerTick int64                       `json:"last_single_player_tick"`
	Bots                 map[string]*bot.Agent       `json:"-"`

	src domain.Source
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetOccupiedSeatCount() int {
	return len(ms.Seats) - ms.GetOpenSeatsCount()
}

func (ms *MatchState) GetHumanPlayerCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat != "" && !bot.IsBot(seat) {
			count++
		}
	}
	return count
}

func (ms *MatchState) seatOf(userID string) int {
	for i, seat := range ms.Seats {
		if seat == userID {
			return i
		}
	}
	return -1
}

// isHumanSeat reports whether the seat index belongs to a human player.
func isHumanSeat(seats []string, seatIndex int) bool {
	if seatIndex < 0 || seatIndex >= len(seats) {
		return false
	}
	userID := seats[seatIndex]
	return userID != "" && !bot.IsBot(userID)
}

// findFirstHumanSeat returns the first seat index with a human occupant or -1 if none exist.
func findFirstHumanSeat(seats []string) int {
	for i := range seats {
		if isHumanSeat(seats, i) {
			return i
		}
	}
	return -1
}

// shouldTerminateNoHumans returns true when there are no humans in the match.
func shouldTerminateNoHumans(seats []string) bool {
	return findFirstHumanSeat(seats) == -1
}

// matchLabel renders the searchable match label quick_match filters on.
func matchLabel(open int, phase string) (string, error) {
	label, err := structpb.NewStruct(map[string]any{
		"game":  labelGame,
		"open":  open,
		"state": phase,
	})
	if err != nil {
		return "", err
	}
	b, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// marshalMessage encodes a match message body as a protobuf Struct in JSON
// form, the same encoding the label uses.
func marshalMessage(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var body structpb.Struct
	if err := protojson.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return protojson.Marshal(&body)
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// newMatchState builds a lobby from the loaded game config.
func newMatchState(cfg *config.GameConfig) *MatchState {
	src := domain.NewSource(cfg.Seed)
	return &MatchState{
		Tick:             time.Now().Unix(),
		OwnerSeat:        -1,
		Presences:        make(map[string]runtime.Presence),
		App:              app.NewService(src, cfg.Settings()),
		TargetPlayers:    cfg.Players,
		BotMinDelay:      1,
		BotMaxDelay:      3,
		BotAutoFillDelay: 5,
		Bots:             make(map[string]*bot.Agent),
		src:              src,
	}
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	state := newMatchState(config.GetGameConfig())

	// Bot behaviour comes from the Nakama runtime environment.
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if val, ok := env["rummikub_bots_enabled"]; ok {
		state.BotsEnabled = val == "true"
	}
	for key, dst := range map[string]*int{
		"rummikub_bot_min_delay_sec":       &state.BotMinDelay,
		"rummikub_bot_max_delay_sec":       &state.BotMaxDelay,
		"rummikub_bot_auto_fill_delay_sec": &state.BotAutoFillDelay,
	} {
		if val, ok := env[key]; ok {
			if i, err := strconv.Atoi(val); err == nil && i > 0 {
				*dst = i
			}
		}
	}
	if state.BotMaxDelay < state.BotMinDelay {
		state.BotMaxDelay = state.BotMinDelay
	}

	label, err := matchLabel(state.GetOpenSeatsCount(), stateLobby)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Seated players may always reconnect.
	if matchState.seatOf(presence.GetUserId()) >= 0 {
		return state, true, ""
	}
	if matchState.Game != nil {
		return state, false, "Game in progress"
	}

	// Allow join if there is an empty seat or a bot to replace.
	if matchState.GetOpenSeatsCount() <= 0 && matchState.GetHumanPlayerCount() == len(matchState.Seats) {
		return state, false, "Match full"
	}

	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
		if seat, ok := mh.seatPlayer(matchState, p.GetUserId()); ok {
			logger.Debug("MatchJoin: User %s took seat %d.", p.GetUserId(), seat)
		} else {
			logger.Warn("MatchJoin: User %s joined but no seat (empty or bot) was available.", p.GetUserId())
		}
	}

	// Ensure owner seat is assigned to a human player only.
	if !isHumanSeat(matchState.Seats[:], matchState.OwnerSeat) {
		matchState.OwnerSeat = findFirstHumanSeat(matchState.Seats[:])
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastMatchState(matchState, dispatcher, logger, OpPlayerJoined)

	return matchState
}

// seatPlayer puts userID in the first empty seat, or replaces a bot while
// still in the lobby.
func (mh *matchHandler) seatPlayer(state *MatchState, userID string) (int, bool) {
	if seat := state.seatOf(userID); seat >= 0 {
		return seat, true
	}
	for i, seatUserID := range state.Seats {
		if seatUserID == "" {
			state.Seats[i] = userID
			return i, true
		}
	}
	if state.Game != nil {
		return -1, false
	}
	for i, seatUserID := range state.Seats {
		if bot.IsBot(seatUserID) {
			delete(state.Bots, seatUserID)
			state.Seats[i] = userID
			return i, true
		}
	}
	return -1, false
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
		// Mid-game the seat stays reserved so the game's seat order holds.
		if seat := matchState.seatOf(p.GetUserId()); seat >= 0 && matchState.Game == nil {
			matchState.Seats[seat] = ""
			logger.Debug("MatchLeave: User %s left, seat %d freed.", p.GetUserId(), seat)
		}
	}

	if !isHumanSeat(matchState.Seats[:], matchState.OwnerSeat) {
		matchState.OwnerSeat = findFirstHumanSeat(matchState.Seats[:])
	}

	if len(matchState.Presences) == 0 || shouldTerminateNoHumans(matchState.Seats[:]) {
		logger.Info("MatchLeave: Terminating match with no humans.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastMatchState(matchState, dispatcher, logger, OpPlayerLeft)

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(matchState, dispatcher, logger, msg.GetUserId())
		case OpPlayMove:
			mh.handlePlayMove(matchState, dispatcher, logger, msg.GetUserId(), msg.GetData())
		case OpDrawTile:
			mh.handleDrawTile(matchState, dispatcher, logger, msg.GetUserId())
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if matchState.BotsEnabled {
		mh.processBots(matchState, dispatcher, logger)
	}

	return matchState
}

func (mh *matchHandler) processBots(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	// Fill the lobby with bots once a lone human has waited long enough.
	if state.Game == nil {
		if state.GetHumanPlayerCount() != 1 {
			state.LastSinglePlayerTick = 0
			return
		}
		if state.LastSinglePlayerTick == 0 {
			state.LastSinglePlayerTick = state.Tick
		}
		if state.Tick-state.LastSinglePlayerTick < int64(state.BotAutoFillDelay) {
			return
		}

		added := false
		for i, seat := range state.Seats {
			if state.GetOccupiedSeatCount() >= state.TargetPlayers {
				break
			}
			if seat != "" {
				continue
			}
			agent := bot.NewAgent(i, state.src)
			state.Seats[i] = agent.ID
			state.Bots[agent.ID] = agent
			logger.Info("processBots: Added bot %s to seat %d", agent.ID, i)
			added = true
		}
		if added {
			mh.updateLabel(state, dispatcher, logger)
			mh.broadcastMatchState(state, dispatcher, logger, OpPlayerJoined)
		}
		state.LastSinglePlayerTick = 0
		return
	}

	if state.Game.Phase != domain.PhasePlaying {
		return
	}
	seat := state.Game.CurrentSeat
	userID := state.Game.PlayerIDs[seat]
	if !bot.IsBot(userID) {
		state.BotWaitUntil = 0
		return
	}

	if state.BotWaitUntil == 0 {
		delay := state.src.Intn(state.BotMaxDelay-state.BotMinDelay+1) + state.BotMinDelay
		state.BotWaitUntil = state.Tick + int64(delay)
		logger.Debug("processBots: Bot %s (seat %d) will act at tick %d", userID, seat, state.BotWaitUntil)
	}
	if state.Tick < state.BotWaitUntil {
		return
	}
	state.BotWaitUntil = 0

	agent, ok := state.Bots[userID]
	if !ok {
		agent = &bot.Agent{ID: userID, Name: userID, Brain: bot.NewRandomBrain(state.src)}
		state.Bots[userID] = agent
	}

	move, err := agent.Play(state.App, state.Game)
	if err != nil {
		logger.Error("processBots: Bot %s failed to choose a move: %v", userID, err)
		return
	}
	events, err := state.App.ApplyMove(state.Game, seat, move)
	if err != nil {
		logger.Error("processBots: Bot %s move rejected: %v", userID, err)
		return
	}
	mh.broadcastEvents(state, dispatcher, logger, events)
}

// broadcastMatchState sends the seat snapshot under opCode, OpPlayerJoined
// or OpPlayerLeft depending on what changed.
func (mh *matchHandler) broadcastMatchState(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, opCode int64) {
	snapshot := matchSnapshot{
		Seats:     state.Seats[:],
		OwnerSeat: state.OwnerSeat,
		Tick:      state.Tick,
	}
	if state.Game != nil {
		snapshot.Table = domain.FormatTable(state.Game.Table)
		snapshot.StockLeft = len(state.Game.Stock)
	}

	for i, userID := range state.Seats {
		if userID == "" {
			continue
		}

		displayName := userID
		if p, exists := state.Presences[userID]; exists {
			displayName = p.GetUsername()
		} else if agent, ok := state.Bots[userID]; ok {
			displayName = agent.Name
		}

		tiles := 0
		if state.Game != nil {
			if seat := state.Game.SeatOf(userID); seat >= 0 {
				tiles = len(state.Game.Hands[seat])
			}
		}

		snapshot.Players = append(snapshot.Players, playerState{
			UserID:         userID,
			Seat:           i,
			IsOwner:        i == state.OwnerSeat,
			TilesRemaining: tiles,
			DisplayName:    displayName,
		})
	}

	b, err := marshalMessage(snapshot)
	if err != nil {
		logger.Error("broadcastMatchState: Failed to marshal: %v", err)
		return
	}
	dispatcher.BroadcastMessage(opCode, b, nil, nil, true)
}

func (mh *matchHandler) handleStartGame(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, senderID string) {
	senderSeat := state.seatOf(senderID)
	logger.Info("StartGame: Request received from %s (seat=%d, owner_seat=%d, occupied=%d)", senderID, senderSeat, state.OwnerSeat, state.GetOccupiedSeatCount())

	if state.Game != nil {
		mh.sendError(state, dispatcher, logger, senderID, 409, "game already running")
		return
	}
	if senderSeat != state.OwnerSeat {
		logger.Warn("StartGame: User %s tried to start game but is not owner (owner_seat=%d)", senderID, state.OwnerSeat)
		mh.sendError(state, dispatcher, logger, senderID, 403, "only the match owner can start")
		return
	}

	game, events, err := state.App.StartGame(state.Seats[:])
	if err != nil {
		logger.Warn("StartGame: Failed to start game: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}
	state.Game = game

	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastEvents(state, dispatcher, logger, events)

	logger.Info("StartGame: Game %s started with %d players.", game.ID, game.Players())
}

func (mh *matchHandler) handlePlayMove(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, senderID string, data []byte) {
	if state.Game == nil {
		logger.Warn("handlePlayMove: Game not started.")
		return
	}

	var msg moveMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		mh.sendError(state, dispatcher, logger, senderID, 400, "move must be JSON with table and used")
		return
	}
	move, err := moveFromMsg(msg)
	if err != nil {
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}
	if move.IsDraw() {
		mh.sendError(state, dispatcher, logger, senderID, 400, "a move must use at least one tile")
		return
	}

	seat := state.Game.SeatOf(senderID)
	events, err := state.App.ApplyMove(state.Game, seat, move)
	if err != nil {
		logger.Warn("handlePlayMove: User %s (seat %d) failed to play %v: %v", senderID, seat, msg.Used, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}
	mh.broadcastEvents(state, dispatcher, logger, events)
}

func (mh *matchHandler) handleDrawTile(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, senderID string) {
	if state.Game == nil {
		logger.Warn("handleDrawTile: Game not started.")
		return
	}

	seat := state.Game.SeatOf(senderID)
	events, err := state.App.ApplyMove(state.Game, seat, domain.Move{Table: state.Game.Table.Clone()})
	if err != nil {
		logger.Warn("handleDrawTile: User %s (seat %d) failed to draw: %v", senderID, seat, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}
	mh.broadcastEvents(state, dispatcher, logger, events)
}

func (mh *matchHandler) broadcastEvents(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
}

// broadcastEvent handles the conversion and dispatching of app events to Nakama.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, payload, ok := eventMessage(ev)
	if !ok {
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	if ev.Kind == app.EventGameEnded {
		// Back to the lobby; the finished game is discarded.
		state.Game = nil
		state.BotWaitUntil = 0
		// Release seats held for players who left mid-game.
		for i, userID := range state.Seats {
			if _, connected := state.Presences[userID]; isHumanSeat(state.Seats[:], i) && !connected {
				state.Seats[i] = ""
			}
		}
		mh.updateLabel(state, dispatcher, logger)
	}

	b, err := marshalMessage(payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}

		// Private events for bots or disconnected players go nowhere.
		if len(recipients) == 0 {
			return
		}
	}

	dispatcher.BroadcastMessage(opCode, b, recipients, nil, true)
}

// sendError sends a game error to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	b, err := marshalMessage(gameErrorMsg{Code: code, Message: message})
	if err != nil {
		logger.Error("Failed to marshal game error: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpGameError, b, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	phase := stateLobby
	if state.Game != nil {
		phase = statePlaying
	}

	label, err := matchLabel(state.GetOpenSeatsCount(), phase)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with %d grace seconds", graceSeconds)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
