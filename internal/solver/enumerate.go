package solver

import (
	"gonum.org/v1/gonum/stat/combin"

	"rummikub/internal/domain"
)

// EnumerateOptions tunes EnumerateMoves.
type EnumerateOptions struct {
	Rules domain.Rules
	// MaxSubsetSize caps how many hand tiles a single move may commit.
	// Zero means no cap.
	MaxSubsetSize int
}

// EnumerateMoves lists every distinct table reachable by placing a subset
// of hand onto table. Subsets are tried smallest first; a layout reached by
// several subsets is reported once, with the first subset that reached it.
// The draw move is not included.
func EnumerateMoves(table domain.Table, hand []domain.Tile, opts EnumerateOptions) []domain.Move {
	playable, _ := FilterPlayable(hand, table)
	if len(playable) == 0 {
		return nil
	}

	limit := len(playable)
	if opts.MaxSubsetSize > 0 && opts.MaxSubsetSize < limit {
		limit = opts.MaxSubsetSize
	}

	onTable := table.Tiles()
	full := GenerateMelds(domain.NewCounts(playable, onTable), opts.Rules)
	solve := Options{Rules: opts.Rules, FirstOnly: true}

	seen := make(map[string]struct{})
	var moves []domain.Move
	for r := 1; r <= limit; r++ {
		eachSubset(len(playable), r, func(idx []int) {
			used := pick(playable, idx)
			target := domain.NewCounts(used, onTable)
			found := findLayouts(full.Restrict(target), target, table, solve)
			if len(found) == 0 {
				return
			}
			key := found[0].Key()
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
			moves = append(moves, domain.Move{Table: found[0], Used: used})
		})
	}
	return moves
}

// eachSubset calls fn with every k-subset of {0..n-1} in reverse
// lexicographic order, so subsets built from later positions come first.
// That order is the lexicographic order of the complements, which the
// gonum generator yields directly.
func eachSubset(n, k int, fn func(idx []int)) {
	if k <= 0 || k > n {
		return
	}
	if k == n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		fn(all)
		return
	}

	gen := combin.NewCombinationGenerator(n, n-k)
	comp := make([]int, n-k)
	idx := make([]int, 0, k)
	for gen.Next() {
		gen.Combination(comp)
		idx = idx[:0]
		j := 0
		for i := 0; i < n; i++ {
			if j < len(comp) && comp[j] == i {
				j++
				continue
			}
			idx = append(idx, i)
		}
		fn(idx)
	}
}
