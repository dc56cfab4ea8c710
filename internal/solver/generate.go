package solver

import (
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat/combin"

	"rummikub/internal/domain"
)

// Catalog is every valid meld buildable from a pool, sorted in meld
// order, with an index from each tile to the melds that contain it.
type Catalog struct {
	Melds []domain.Meld

	counts []domain.Counts
	byTile map[domain.Tile][]int
}

// GenerateMelds enumerates every distinct valid meld that is a
// submultiset of pool, joker substitutions included.
func GenerateMelds(pool domain.Counts, rules domain.Rules) *Catalog {
	jokerSets := jokerSubsets(pool)

	byRank := make(map[int][]domain.Tile)
	byColor := make(map[domain.Color][]domain.Tile)
	for _, t := range pool.Keys() {
		if t.IsJoker() {
			continue
		}
		byRank[t.Rank] = append(byRank[t.Rank], t)
		byColor[t.Color] = append(byColor[t.Color], t)
	}

	seen := make(map[string]struct{})
	var melds []domain.Meld
	add := func(base []domain.Tile, jokers []domain.Tile) {
		m := make(domain.Meld, 0, len(base)+len(jokers))
		m = append(m, base...)
		m = append(m, jokers...)
		m = m.Sorted()
		key := meldKey(m)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		melds = append(melds, m)
	}

	// Groups: one tile per colour of a rank, topped up with jokers.
	for _, tiles := range byRank {
		for k := 1; k <= len(tiles); k++ {
			for _, idx := range combin.Combinations(len(tiles), k) {
				base := pick(tiles, idx)
				for _, js := range jokerSets {
					size := k + len(js)
					if size < domain.MinMeldSize || size > domain.MaxGroupSize {
						continue
					}
					if domain.IsGroup(append(slices.Clone(base), js...)) {
						add(base, js)
					}
				}
			}
		}
	}

	// Runs: any set of distinct ranks of one colour plus any jokers.
	maxJokers := len(jokerSets[len(jokerSets)-1])
	for _, tiles := range byColor {
		for k := 1; k <= len(tiles); k++ {
			for _, idx := range combin.Combinations(len(tiles), k) {
				// tiles are in rank order, so the span is last minus first
				if tiles[idx[k-1]].Rank-tiles[idx[0]].Rank+1 > k+maxJokers {
					continue
				}
				base := pick(tiles, idx)
				for _, js := range jokerSets {
					if k+len(js) < domain.MinMeldSize {
						continue
					}
					if rules.IsRun(append(slices.Clone(base), js...)) {
						add(base, js)
					}
				}
			}
		}
	}

	slices.SortFunc(melds, domain.CompareMelds)
	return newCatalog(melds)
}

func newCatalog(melds []domain.Meld) *Catalog {
	c := &Catalog{
		Melds:  melds,
		counts: make([]domain.Counts, len(melds)),
		byTile: make(map[domain.Tile][]int),
	}
	for i, m := range melds {
		c.counts[i] = domain.NewCounts(m)
		for _, t := range c.counts[i].Keys() {
			c.byTile[t] = append(c.byTile[t], i)
		}
	}
	return c
}

// Restrict keeps the melds that fit inside pool. The result equals
// GenerateMelds(pool) whenever pool is a submultiset of the catalog's pool.
func (c *Catalog) Restrict(pool domain.Counts) *Catalog {
	var melds []domain.Meld
	for i, m := range c.Melds {
		if pool.Contains(c.counts[i]) {
			melds = append(melds, m)
		}
	}
	return newCatalog(melds)
}

// Len is the number of melds.
func (c *Catalog) Len() int {
	return len(c.Melds)
}

// Containing returns the melds holding t, in meld order.
func (c *Catalog) Containing(t domain.Tile) []domain.Meld {
	idx := c.byTile[t]
	out := make([]domain.Meld, len(idx))
	for i, j := range idx {
		out[i] = c.Melds[j]
	}
	return out
}

// jokerSubsets lists every joker submultiset of pool, smallest first,
// starting with the empty set.
func jokerSubsets(pool domain.Counts) [][]domain.Tile {
	var kinds []domain.Tile
	for _, t := range pool.Keys() {
		if t.IsJoker() {
			kinds = append(kinds, t)
		}
	}
	out := [][]domain.Tile{nil}
	for _, j := range kinds {
		n := pool[j]
		grown := make([][]domain.Tile, 0, len(out)*(n+1))
		for _, prefix := range out {
			for k := 0; k <= n; k++ {
				s := slices.Clone(prefix)
				for i := 0; i < k; i++ {
					s = append(s, j)
				}
				grown = append(grown, s)
			}
		}
		out = grown
	}
	slices.SortStableFunc(out, func(a, b []domain.Tile) int { return len(a) - len(b) })
	return out
}

func pick(tiles []domain.Tile, idx []int) []domain.Tile {
	out := make([]domain.Tile, len(idx))
	for i, j := range idx {
		out[i] = tiles[j]
	}
	return out
}

func meldKey(m domain.Meld) string {
	return strings.Join(domain.FormatTiles(m), ",")
}
