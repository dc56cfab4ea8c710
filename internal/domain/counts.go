package domain

import "slices"

// Counts is a tile multiset.
type Counts map[Tile]int

// NewCounts builds a multiset from any number of tile slices.
func NewCounts(tiles ...[]Tile) Counts {
	c := make(Counts)
	for _, ts := range tiles {
		for _, t := range ts {
			c[t]++
		}
	}
	return c
}

// Clone returns an independent copy.
func (c Counts) Clone() Counts {
	out := make(Counts, len(c))
	for t, n := range c {
		out[t] = n
	}
	return out
}

// Size is the total number of tiles, duplicates included.
func (c Counts) Size() int {
	n := 0
	for _, k := range c {
		n += k
	}
	return n
}

// Keys returns the distinct tiles in tile order.
func (c Counts) Keys() []Tile {
	keys := make([]Tile, 0, len(c))
	for t, n := range c {
		if n > 0 {
			keys = append(keys, t)
		}
	}
	SortTiles(keys)
	return keys
}

// Tiles flattens the multiset in tile order.
func (c Counts) Tiles() []Tile {
	out := make([]Tile, 0, c.Size())
	for _, t := range c.Keys() {
		for i := 0; i < c[t]; i++ {
			out = append(out, t)
		}
	}
	return out
}

// Contains reports whether sub is a submultiset of c.
func (c Counts) Contains(sub Counts) bool {
	for t, n := range sub {
		if n > 0 && c[t] < n {
			return false
		}
	}
	return true
}

// Minus returns c with sub removed. Zero entries are dropped.
func (c Counts) Minus(sub Counts) Counts {
	out := c.Clone()
	for t, n := range sub {
		out[t] -= n
		if out[t] <= 0 {
			delete(out, t)
		}
	}
	return out
}

// Equal compares two multisets, ignoring zero entries.
func (c Counts) Equal(o Counts) bool {
	return slices.Equal(c.Tiles(), o.Tiles())
}

// Jokers counts the jokers in c regardless of their rank.
func (c Counts) Jokers() int {
	n := 0
	for t, k := range c {
		if t.IsJoker() {
			n += k
		}
	}
	return n
}
