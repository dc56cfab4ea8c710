package nakama

import (
	"context"
	"database/sql"

	"github.com/heroiclabs/nakama-common/runtime"

	"rummikub/internal/config"
)

// ConfigPath is where the module looks for its game settings, relative to
// the Nakama working directory.
const ConfigPath = "data/game_config.yaml"

// InitModule wires RPCs and match handlers for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := config.LoadGameConfig(ConfigPath); err != nil {
		logger.Warn("InitModule: using default game config: %v", err)
	}

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameRummikub, NewMatch); err != nil {
		return err
	}

	logger.Info("Rummikub Go module loaded.")
	return nil
}
