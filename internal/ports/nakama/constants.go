package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby-capable match.
	RpcQuickMatch = "quick_match"

	// RpcEnumerateMoves lists the legal moves for a hand against a table.
	RpcEnumerateMoves = "enumerate_moves"

	// MatchNameRummikub is the authoritative match handler name registered with Nakama.
	MatchNameRummikub = "rummikub_match"

	// labelGame tags our matches so quick_match ignores anything else on the server.
	labelGame = "rummikub"
)

// Op codes for client messages and server events. Payloads are JSON.
const (
	// Client -> Server
	OpStartGame int64 = 1
	OpPlayMove  int64 = 2
	OpDrawTile  int64 = 3

	// Server -> Client events
	OpPlayerJoined int64 = 101
	OpPlayerLeft   int64 = 102
	OpGameStarted  int64 = 103
	OpHandDealt    int64 = 104 // send privately
	OpMovePlayed   int64 = 105
	OpTurnPassed   int64 = 106
	OpGameEnded    int64 = 107
	OpTileDrawn    int64 = 108 // send privately
	OpGameError    int64 = 109
)

// Nakama runtime error codes (gRPC status values).
const (
	codeInvalidArgument = 3
	codeInternal        = 13
)
