package solver

import (
	"runtime"
	"slices"

	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"

	"rummikub/internal/domain"
)

// Options tunes FindLayouts.
type Options struct {
	Rules domain.Rules
	// FirstOnly stops the search at the first complete layout.
	FirstOnly bool
	// Parallel explores the top-level branches concurrently. It has no
	// effect together with FirstOnly.
	Parallel bool
}

// layouts maps a canonical table key to the canonical table.
type layouts map[string]domain.Table

// FindLayouts returns every distinct table that uses all of hand and table
// exactly, differs from table and commits at least one hand tile. Results
// are canonical and sorted. With FirstOnly at most one table is returned.
func FindLayouts(hand []domain.Tile, table domain.Table, opts Options) []domain.Table {
	target := domain.NewCounts(hand, table.Tiles())
	if len(target) == 0 {
		return nil
	}
	return findLayouts(GenerateMelds(target, opts.Rules), target, table, opts)
}

func findLayouts(cat *Catalog, target domain.Counts, table domain.Table, opts Options) []domain.Table {
	var found layouts
	if opts.Parallel && !opts.FirstOnly {
		found = coverParallel(cat, target)
	} else {
		found = cover(cat, target, nil, opts.FirstOnly)
	}
	return keepNonTrivial(found, table, opts.FirstOnly)
}

// cover partitions remaining into catalog melds. State is passed by value;
// every branch works on its own copies.
func cover(cat *Catalog, remaining domain.Counts, layout domain.Table, firstOnly bool) layouts {
	if len(remaining) == 0 {
		canon := layout.Canonical()
		return layouts{canon.Key(): canon}
	}
	tile, ok := cat.mostConstrained(remaining)
	if !ok {
		return nil
	}

	var out layouts
	for _, i := range cat.byTile[tile] {
		if !remaining.Contains(cat.counts[i]) {
			continue
		}
		found := cover(cat, remaining.Minus(cat.counts[i]), extend(layout, cat.Melds[i]), firstOnly)
		out = merge(out, found)
		if firstOnly && len(out) > 0 {
			return out
		}
	}
	return out
}

func coverParallel(cat *Catalog, target domain.Counts) layouts {
	tile, ok := cat.mostConstrained(target)
	if !ok {
		return nil
	}
	branches := cat.byTile[tile]
	results := make([]layouts, len(branches))

	g := errgroup.Group{}
	g.SetLimit(runtime.GOMAXPROCS(0))
	for b, i := range branches {
		if !target.Contains(cat.counts[i]) {
			continue
		}
		b, i := b, i
		g.Go(func() error {
			results[b] = cover(cat, target.Minus(cat.counts[i]), domain.Table{cat.Melds[i]}, false)
			return nil
		})
	}
	_ = g.Wait()

	var out layouts
	for _, r := range results {
		out = merge(out, r)
	}
	return out
}

// mostConstrained picks the remaining tile with the fewest catalog melds,
// earliest in tile order on ties. ok is false when that tile has none.
func (c *Catalog) mostConstrained(remaining domain.Counts) (domain.Tile, bool) {
	var best domain.Tile
	fewest := -1
	for _, t := range remaining.Keys() {
		if n := len(c.byTile[t]); fewest == -1 || n < fewest {
			best, fewest = t, n
		}
	}
	return best, fewest > 0
}

func keepNonTrivial(found layouts, table domain.Table, firstOnly bool) []domain.Table {
	keys := maps.Keys(found)
	slices.SortFunc(keys, func(a, b string) int {
		return domain.CompareTables(found[a], found[b])
	})

	before := table.Key()
	onTable := table.Counts()
	var out []domain.Table
	for _, k := range keys {
		if k == before || !addsTiles(found[k].Counts(), onTable) {
			continue
		}
		out = append(out, found[k])
		if firstOnly {
			break
		}
	}
	return out
}

func addsTiles(after, before domain.Counts) bool {
	for t, n := range after {
		if n > before[t] {
			return true
		}
	}
	return false
}

func extend(layout domain.Table, m domain.Meld) domain.Table {
	out := make(domain.Table, len(layout), len(layout)+1)
	copy(out, layout)
	return append(out, m)
}

func merge(dst, src layouts) layouts {
	if dst == nil {
		return src
	}
	maps.Copy(dst, src)
	return dst
}
