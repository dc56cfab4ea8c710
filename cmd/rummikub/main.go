package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"rummikub/internal/config"
	"rummikub/internal/domain"
	"rummikub/internal/logging"
)

var (
	configFile string
	logLevel   string
	output     string

	cfg    *config.GameConfig
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:           "rummikub",
	Short:         "Rummikub move generator",
	Long:          `Lists legal Rummikub moves for a hand against a table and plays random self-play games.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = c
		level := cfg.LogConf.Level
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		logger = logging.New(os.Stderr, "rummikub", level)
		logger.Debug("config loaded", "file", configFile, "players", cfg.Players, "strict_runs", cfg.StrictRuns, "max_subset_size", cfg.MaxSubsetSize)

		switch output {
		case "json", "yaml":
			return nil
		default:
			return fmt.Errorf("unknown output format %q, want json or yaml", output)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "game config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "json", "json or yaml")

	rootCmd.AddCommand(newMovesCmd(), newFilterCmd(), newLayoutsCmd(), newSimulateCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger == nil {
			logger = logging.New(os.Stderr, "rummikub", "error")
		}
		logger.Error("command failed", "err", err)
		os.Exit(1)
	}
}

// render writes v to w in the selected output format.
func render(w io.Writer, v any) error {
	if output == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseHand reads comma separated tiles, e.g. "R1,R2,J".
func parseHand(s string) ([]domain.Tile, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return domain.ParseTiles(strings.Split(s, ","))
}

// parseTable reads melds separated by "|", e.g. "R1,R2,R3|B5,Y5,K5".
func parseTable(s string) (domain.Table, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var melds [][]string
	for _, m := range strings.Split(s, "|") {
		melds = append(melds, strings.Split(m, ","))
	}
	return domain.ParseTable(melds)
}

// rules applies the --strict override on top of the config.
func rules(cmd *cobra.Command, strict bool) domain.Rules {
	r := domain.Rules{ExactRunSpan: cfg.StrictRuns}
	if cmd.Flags().Changed("strict") {
		r.ExactRunSpan = strict
	}
	return r
}
