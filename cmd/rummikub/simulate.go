package main

import (
	"errors"

	"github.com/spf13/cobra"

	"rummikub/internal/app"
	"rummikub/internal/bot"
	"rummikub/internal/domain"
)

type turnOut struct {
	Seat  int      `json:"seat" yaml:"seat"`
	Draw  bool     `json:"draw,omitempty" yaml:"draw,omitempty"`
	Used  []string `json:"used,omitempty" yaml:"used,omitempty,flow"`
	Melds int      `json:"melds" yaml:"melds"`
}

type simulationOut struct {
	GameID    string     `json:"game_id" yaml:"game_id"`
	Seed      uint64     `json:"seed" yaml:"seed"`
	Winner    *int       `json:"winner" yaml:"winner"`
	StockLeft int        `json:"stock_left" yaml:"stock_left"`
	Turns     []turnOut  `json:"turns" yaml:"turns"`
	Table     [][]string `json:"table" yaml:"table"`
	Hands     [][]string `json:"hands" yaml:"hands"`
}

func newSimulateCmd() *cobra.Command {
	var (
		seed     uint64
		players  int
		maxTurns int
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a game between random bots",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("seed") {
				seed = cfg.Seed
			}
			if !cmd.Flags().Changed("players") {
				players = cfg.Players
			}

			svc := app.NewService(domain.NewSource(seed), cfg.Settings())
			agents := make([]*bot.Agent, players)
			ids := make([]string, players)
			for i := range agents {
				var src domain.Source
				if seed != 0 {
					src = domain.NewSource(seed + uint64(i) + 1)
				}
				agents[i] = bot.NewAgent(i, src)
				ids[i] = agents[i].ID
			}

			game, _, err := svc.StartGame(ids)
			if err != nil {
				return err
			}
			logger.Info("game started", "id", game.ID, "players", players, "seed", seed)

			turns, err := bot.SelfPlay(svc, game, agents, maxTurns)
			if err != nil && !errors.Is(err, bot.ErrTurnLimit) {
				return err
			}
			if errors.Is(err, bot.ErrTurnLimit) {
				logger.Warn("turn limit reached", "turns", len(turns))
			}

			out := simulationOut{
				GameID:    game.ID,
				Seed:      seed,
				StockLeft: len(game.Stock),
				Table:     domain.FormatTable(game.Table),
			}
			melds := 0
			for _, t := range turns {
				if !t.Move.IsDraw() {
					melds = len(t.Move.Table)
				}
				out.Turns = append(out.Turns, turnOut{
					Seat:  t.Seat,
					Draw:  t.Move.IsDraw(),
					Used:  domain.FormatTiles(t.Move.Used),
					Melds: melds,
				})
			}
			for _, h := range game.Hands {
				out.Hands = append(out.Hands, domain.FormatTiles(domain.SortedTiles(h)))
			}
			if w, ok := game.Outcome.(domain.Winner); ok {
				out.Winner = &w.Seat
				logger.Info("game won", "seat", w.Seat, "turns", len(turns))
			}
			return render(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "deal seed, 0 for system entropy")
	cmd.Flags().IntVar(&players, "players", 2, "number of bots")
	cmd.Flags().IntVar(&maxTurns, "turns", 200, "stop after this many turns")
	return cmd
}
