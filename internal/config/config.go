package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"rummikub/internal/app"
	"rummikub/internal/domain"
)

// EnvPrefix namespaces environment overrides, e.g. RUMMIKUB_PLAYERS.
const EnvPrefix = "RUMMIKUB"

type LogConf struct {
	Level string `mapstructure:"level"`
}

type GameConfig struct {
	Players       int  `mapstructure:"players"`
	BlocksStart   int  `mapstructure:"blocks_start"`
	BlocksRange   int  `mapstructure:"blocks_range"`
	Copies        int  `mapstructure:"copies"`
	Jokers        int  `mapstructure:"jokers"`
	StrictRuns    bool `mapstructure:"strict_runs"`
	MaxSubsetSize int  `mapstructure:"max_subset_size"` // 0 means unlimited
	MaxHandTiles  int  `mapstructure:"max_hand_tiles"`  // largest hand enumerate_moves accepts
	ParallelCover bool `mapstructure:"parallel_cover"`
	// Seed makes deals reproducible; 0 draws from system entropy.
	Seed    uint64  `mapstructure:"seed"`
	LogConf LogConf `mapstructure:"log"`
}

var ErrInvalidConfig = errors.New("invalid game config")

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the global game configuration from the given path.
// Only the first call reads the file.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		c, err := Load(path)
		if err != nil {
			loadErr = err
			return
		}
		cfg = c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration, or the defaults
// when nothing has been loaded.
func GetGameConfig() *GameConfig {
	if cfg == nil {
		return Default()
	}
	return cfg
}

// Default returns the standard two-player configuration. Enumeration cost
// grows exponentially with the subset cap, so the default keeps one.
func Default() *GameConfig {
	return &GameConfig{
		Players:       2,
		BlocksStart:   14,
		BlocksRange:   13,
		Copies:        2,
		Jokers:        2,
		MaxSubsetSize: 3,
		MaxHandTiles:  30,
		LogConf:       LogConf{Level: "info"},
	}
}

// Load reads path (YAML, JSON or TOML by extension) over the defaults and
// applies RUMMIKUB_* environment overrides. An empty path skips the file.
func Load(path string) (*GameConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read game config: %w", err)
		}
	}

	var c GameConfig
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("players", d.Players)
	v.SetDefault("blocks_start", d.BlocksStart)
	v.SetDefault("blocks_range", d.BlocksRange)
	v.SetDefault("copies", d.Copies)
	v.SetDefault("jokers", d.Jokers)
	v.SetDefault("strict_runs", d.StrictRuns)
	v.SetDefault("max_subset_size", d.MaxSubsetSize)
	v.SetDefault("max_hand_tiles", d.MaxHandTiles)
	v.SetDefault("parallel_cover", d.ParallelCover)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("log.level", d.LogConf.Level)
}

// Validate rejects settings no game can be dealt with.
func (c *GameConfig) Validate() error {
	switch {
	case c.Players < app.MinPlayersToStartGame || c.Players > app.MaxPlayers:
		return fmt.Errorf("%w: players must be %d-%d, got %d", ErrInvalidConfig, app.MinPlayersToStartGame, app.MaxPlayers, c.Players)
	case c.BlocksRange < domain.MinMeldSize:
		return fmt.Errorf("%w: blocks_range must be at least %d", ErrInvalidConfig, domain.MinMeldSize)
	case c.BlocksStart < 1:
		return fmt.Errorf("%w: blocks_start must be positive", ErrInvalidConfig)
	case c.Copies < 1 || c.Jokers < 0 || c.MaxSubsetSize < 0:
		return fmt.Errorf("%w: copies, jokers and max_subset_size out of range", ErrInvalidConfig)
	case c.MaxHandTiles < 1:
		return fmt.Errorf("%w: max_hand_tiles must be positive", ErrInvalidConfig)
	}
	pool := c.PoolSize()
	if c.Players*c.BlocksStart > pool {
		return fmt.Errorf("%w: %d hands of %d need more than %d tiles", ErrInvalidConfig, c.Players, c.BlocksStart, pool)
	}
	return nil
}

// PoolSize is the number of tiles in a full set.
func (c *GameConfig) PoolSize() int {
	return len(domain.Colors)*c.BlocksRange*c.Copies + c.Jokers
}

// Settings converts the file layout into app service settings.
func (c *GameConfig) Settings() app.Settings {
	return app.Settings{
		BlocksStart:   c.BlocksStart,
		BlocksRange:   c.BlocksRange,
		Copies:        c.Copies,
		Jokers:        c.Jokers,
		Rules:         domain.Rules{ExactRunSpan: c.StrictRuns},
		MaxSubsetSize: c.MaxSubsetSize,
	}
}
