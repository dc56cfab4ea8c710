package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"rummikub/internal/app"
	"rummikub/internal/config"
	"rummikub/internal/domain"
	"rummikub/internal/solver"
)

// QuickMatchResponse is the payload returned to clients when requesting a lobby-capable match.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcEnumerateMoves, rpcEnumerateMoves)
}

func rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	// Find any match that is open and is our game.
	query := fmt.Sprintf("+label.open:>=1 +label.game:%s +label.state:%s", labelGame, stateLobby)

	limit := 10
	authoritative := true

	minSize := 1
	maxSize := app.MaxPlayers - 1 // ensure a seat is left

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return "", err
	}

	if len(matches) > 0 {
		resp := QuickMatchResponse{MatchID: matches[0].MatchId, IsNew: false}
		b, _ := json.Marshal(resp)
		return string(b), nil
	}

	// Create new match; seat/owner assignment happens in MatchJoin (server-authoritative).
	matchID, err := nk.MatchCreate(ctx, MatchNameRummikub, map[string]interface{}{})
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return "", err
	}

	resp := QuickMatchResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

// rpcEnumerateMoves answers a stateless move query. The run rule falls back
// to the loaded game config when the request leaves it out. The configured
// subset cap is a ceiling: a request may lower it but never raise it.
func rpcEnumerateMoves(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req enumerateRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("payload must be a JSON object with hand and table", codeInvalidArgument)
	}

	cfg := config.GetGameConfig()
	if len(req.Hand) > cfg.MaxHandTiles {
		return "", runtime.NewError(fmt.Sprintf("hand holds %d tiles, at most %d allowed", len(req.Hand), cfg.MaxHandTiles), codeInvalidArgument)
	}
	if n := tableSize(req.Table); n > cfg.PoolSize() {
		return "", runtime.NewError(fmt.Sprintf("table holds %d tiles, the set only has %d", n, cfg.PoolSize()), codeInvalidArgument)
	}

	hand, err := domain.ParseTiles(req.Hand)
	if err != nil {
		return "", runtime.NewError(fmt.Sprintf("hand: %v", err), codeInvalidArgument)
	}
	table, err := domain.ParseTable(req.Table)
	if err != nil {
		return "", runtime.NewError(fmt.Sprintf("table: %v", err), codeInvalidArgument)
	}
	if req.MaxSubsetSize < 0 {
		return "", runtime.NewError("max_subset_size must not be negative", codeInvalidArgument)
	}

	opts := solver.EnumerateOptions{
		Rules:         domain.Rules{ExactRunSpan: cfg.StrictRuns},
		MaxSubsetSize: subsetCap(cfg.MaxSubsetSize, req.MaxSubsetSize),
	}
	if req.StrictRuns != nil {
		opts.Rules.ExactRunSpan = *req.StrictRuns
	}
	if !table.Valid(opts.Rules) {
		return "", runtime.NewError(fmt.Sprintf("table holds an invalid meld: %s", table), codeInvalidArgument)
	}

	moves := solver.EnumerateMoves(table, hand, opts)
	resp := enumerateResponse{Moves: make([]moveMsg, len(moves)), MaxSubsetSize: opts.MaxSubsetSize}
	for i, m := range moves {
		resp.Moves[i] = moveToMsg(m)
	}
	b, err := json.Marshal(resp)
	if err != nil {
		logger.Error("enumerate_moves: failed to marshal %d moves: %v", len(moves), err)
		return "", runtime.NewError("failed to encode moves", codeInternal)
	}
	logger.Debug("enumerate_moves: hand=%d table=%d moves=%d", len(hand), len(table), len(moves))
	return string(b), nil
}

// subsetCap returns the cap a query runs with. A ceiling of 0 is unlimited.
func subsetCap(ceiling, requested int) int {
	if requested <= 0 || (ceiling > 0 && requested > ceiling) {
		return ceiling
	}
	return requested
}

func tableSize(melds [][]string) int {
	n := 0
	for _, m := range melds {
		n += len(m)
	}
	return n
}
