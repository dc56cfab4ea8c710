package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rummikub/internal/domain"
	"rummikub/internal/solver"
)

type moveOut struct {
	Table [][]string `json:"table" yaml:"table"`
	Used  []string   `json:"used" yaml:"used,flow"`
}

type filterOut struct {
	Playable   []string `json:"playable" yaml:"playable,flow"`
	Unplayable []string `json:"unplayable" yaml:"unplayable,flow"`
}

type positionFlags struct {
	hand   string
	table  string
	strict bool
}

func (p *positionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.hand, "hand", "", `hand tiles, e.g. "R1,R2,J"`)
	cmd.Flags().StringVar(&p.table, "table", "", `table melds, e.g. "R3,R4,R5|B7,Y7,K7"`)
	cmd.Flags().BoolVar(&p.strict, "strict", false, "runs must span exactly their length")
	_ = cmd.MarkFlagRequired("hand")
}

func (p *positionFlags) parse(cmd *cobra.Command) ([]domain.Tile, domain.Table, domain.Rules, error) {
	hand, err := parseHand(p.hand)
	if err != nil {
		return nil, nil, domain.Rules{}, fmt.Errorf("hand: %w", err)
	}
	table, err := parseTable(p.table)
	if err != nil {
		return nil, nil, domain.Rules{}, fmt.Errorf("table: %w", err)
	}
	r := rules(cmd, p.strict)
	if !table.Valid(r) {
		return nil, nil, domain.Rules{}, fmt.Errorf("table holds an invalid meld: %s", table)
	}
	return hand, table, r, nil
}

func newMovesCmd() *cobra.Command {
	var (
		pos       positionFlags
		maxSubset int
	)
	cmd := &cobra.Command{
		Use:   "moves",
		Short: "List every legal move for a hand",
		RunE: func(cmd *cobra.Command, args []string) error {
			hand, table, r, err := pos.parse(cmd)
			if err != nil {
				return err
			}
			opts := solver.EnumerateOptions{Rules: r, MaxSubsetSize: cfg.MaxSubsetSize}
			if cmd.Flags().Changed("max-subset") {
				opts.MaxSubsetSize = maxSubset
			}

			start := time.Now()
			moves := solver.EnumerateMoves(table, hand, opts)
			logger.Info("moves enumerated", "hand", len(hand), "melds", len(table), "moves", len(moves), "took", time.Since(start))

			out := make([]moveOut, len(moves))
			for i, m := range moves {
				out[i] = moveOut{Table: domain.FormatTable(m.Table), Used: domain.FormatTiles(m.Used)}
			}
			return render(cmd.OutOrStdout(), out)
		},
	}
	pos.register(cmd)
	cmd.Flags().IntVar(&maxSubset, "max-subset", 0, "largest hand subset to try, 0 for no limit")
	return cmd
}

func newFilterCmd() *cobra.Command {
	var pos positionFlags
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Split a hand into tiles that could join the table and tiles that cannot",
		RunE: func(cmd *cobra.Command, args []string) error {
			hand, table, _, err := pos.parse(cmd)
			if err != nil {
				return err
			}
			playable, unplayable := solver.FilterPlayable(hand, table)
			return render(cmd.OutOrStdout(), filterOut{
				Playable:   domain.FormatTiles(playable),
				Unplayable: domain.FormatTiles(unplayable),
			})
		},
	}
	pos.register(cmd)
	return cmd
}

func newLayoutsCmd() *cobra.Command {
	var pos positionFlags
	cmd := &cobra.Command{
		Use:   "layouts",
		Short: "List every table rearrangement that absorbs the given tiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			hand, table, r, err := pos.parse(cmd)
			if err != nil {
				return err
			}

			start := time.Now()
			layouts := solver.FindLayouts(hand, table, solver.Options{Rules: r, Parallel: cfg.ParallelCover})
			logger.Info("layouts found", "tiles", len(hand), "layouts", len(layouts), "parallel", cfg.ParallelCover, "took", time.Since(start))

			out := make([][][]string, len(layouts))
			for i, l := range layouts {
				out[i] = domain.FormatTable(l)
			}
			return render(cmd.OutOrStdout(), out)
		},
	}
	pos.register(cmd)
	return cmd
}
