package domain

import (
	"cmp"
	"slices"
	"strings"
)

// Meld is a group or run as laid on the table.
type Meld []Tile

// Sorted returns a copy of m in tile order.
func (m Meld) Sorted() Meld {
	return Meld(SortedTiles(m))
}

func (m Meld) String() string {
	return "[" + strings.Join(FormatTiles(m), " ") + "]"
}

// CompareMelds orders melds lexicographically by tile; a strict prefix
// comes first.
func CompareMelds(a, b Meld) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := CompareTiles(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

// Table is the shared layout. Meld order carries no meaning.
type Table []Meld

// Clone deep-copies the table.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	for i, m := range t {
		out[i] = slices.Clone(m)
	}
	return out
}

// Canonical sorts every meld and then the meld list. Identical melds are
// kept, so the tile multiset is preserved.
func (t Table) Canonical() Table {
	out := make(Table, len(t))
	for i, m := range t {
		out[i] = m.Sorted()
	}
	slices.SortFunc(out, CompareMelds)
	return out
}

// Key serialises the canonical form. Two tables are the same layout
// exactly when their keys are equal.
func (t Table) Key() string {
	var b strings.Builder
	for i, m := range t.Canonical() {
		if i > 0 {
			b.WriteByte('|')
		}
		for j, tile := range m {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(tile.String())
		}
	}
	return b.String()
}

// CompareTables orders canonical tables lexicographically by meld.
func CompareTables(a, b Table) int {
	return slices.CompareFunc(a, b, CompareMelds)
}

// Tiles flattens the table in meld order.
func (t Table) Tiles() []Tile {
	var out []Tile
	for _, m := range t {
		out = append(out, m...)
	}
	return out
}

// Counts returns the table's tile multiset.
func (t Table) Counts() Counts {
	c := make(Counts)
	for _, m := range t {
		for _, tile := range m {
			c[tile]++
		}
	}
	return c
}

func (t Table) String() string {
	parts := make([]string, len(t))
	for i, m := range t {
		parts[i] = m.String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// ParseTable parses a table given as one string slice per meld.
func ParseTable(melds [][]string) (Table, error) {
	out := make(Table, 0, len(melds))
	for _, m := range melds {
		tiles, err := ParseTiles(m)
		if err != nil {
			return nil, err
		}
		out = append(out, tiles)
	}
	return out, nil
}

// FormatTable is the inverse of ParseTable.
func FormatTable(t Table) [][]string {
	out := make([][]string, len(t))
	for i, m := range t {
		out[i] = FormatTiles(m)
	}
	return out
}

// Valid reports whether every meld satisfies r.
func (t Table) Valid(r Rules) bool {
	for _, m := range t {
		if !r.IsMeld(m) {
			return false
		}
	}
	return true
}
