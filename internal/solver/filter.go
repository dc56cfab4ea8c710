package solver

import "rummikub/internal/domain"

// FilterPlayable splits hand into tiles that might take part in a meld
// over hand plus table, and tiles that provably cannot. Both slices list
// every copy, in tile order. Jokers are always playable.
//
// The test is count based: a tile stays playable when, with one copy of it
// set aside, the pool still holds two partners (jokers included) for a
// group of its rank or for one of the three run windows around it.
func FilterPlayable(hand []domain.Tile, table domain.Table) (playable, unplayable []domain.Tile) {
	if len(hand) == 0 {
		return nil, nil
	}

	pool := make(domain.Counts)
	jokers := 0
	for _, t := range append(table.Tiles(), hand...) {
		if t.IsJoker() {
			jokers++
			continue
		}
		pool[t]++
	}

	handCounts := domain.NewCounts(hand)
	for _, t := range handCounts.Keys() {
		n := handCounts[t]
		ok := t.IsJoker()
		if !ok {
			pool[t]--
			ok = fitsGroup(pool, jokers, t) || fitsRun(pool, jokers, t)
			pool[t]++
		}
		for i := 0; i < n; i++ {
			if ok {
				playable = append(playable, t)
			} else {
				unplayable = append(unplayable, t)
			}
		}
	}
	return playable, unplayable
}

func fitsGroup(pool domain.Counts, jokers int, t domain.Tile) bool {
	partners := 0
	for _, c := range domain.Colors {
		if c != t.Color {
			partners += pool[domain.Tile{Rank: t.Rank, Color: c}]
		}
	}
	return partners+jokers >= 2
}

func fitsRun(pool domain.Counts, jokers int, t domain.Tile) bool {
	at := func(offset int) int {
		return pool[domain.Tile{Rank: t.Rank + offset, Color: t.Color}]
	}
	windows := [3][2]int{{-2, -1}, {-1, 1}, {1, 2}}
	for _, w := range windows {
		if at(w[0])+at(w[1])+jokers >= 2 {
			return true
		}
	}
	return false
}
