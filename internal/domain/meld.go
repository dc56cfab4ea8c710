package domain

// MaxGroupSize is the number of ordinary colours.
const MaxGroupSize = len(Colors)

// MinMeldSize is the smallest legal group or run.
const MinMeldSize = 3

// Rules holds the meld-validity switches.
type Rules struct {
	// ExactRunSpan rejects runs carrying more jokers than there are gaps
	// between the lowest and highest ordinary tile. The default accepts
	// surplus jokers as long as max-min+1 <= len.
	ExactRunSpan bool
}

// DefaultRules is the lenient rule set.
var DefaultRules = Rules{}

// IsGroup reports whether tiles form a group: 3 or 4 tiles, one rank,
// distinct colours, jokers filling the rest.
func IsGroup(tiles []Tile) bool {
	if len(tiles) < MinMeldSize || len(tiles) > MaxGroupSize {
		return false
	}
	rank := -1
	var seen [Joker]bool
	for _, t := range tiles {
		if t.IsJoker() {
			continue
		}
		if t.Color < Red || t.Color >= Joker {
			return false
		}
		if rank == -1 {
			rank = t.Rank
		} else if t.Rank != rank {
			return false
		}
		if seen[t.Color] {
			return false
		}
		seen[t.Color] = true
	}
	// jokers alone carry no rank
	return rank != -1
}

// IsRun reports whether tiles form a run under the lenient rules.
func IsRun(tiles []Tile) bool {
	return DefaultRules.IsRun(tiles)
}

// IsMeld reports whether tiles form a group or a lenient run.
func IsMeld(tiles []Tile) bool {
	return DefaultRules.IsMeld(tiles)
}

// IsRun reports whether tiles form a run: at least 3 tiles, one colour,
// distinct ranks, and a rank span the jokers can cover.
func (r Rules) IsRun(tiles []Tile) bool {
	if len(tiles) < MinMeldSize {
		return false
	}
	color := Joker
	lo, hi := 0, 0
	ranks := make(map[int]struct{}, len(tiles))
	for _, t := range tiles {
		if t.IsJoker() {
			continue
		}
		if t.Color < Red || t.Color > Black {
			return false
		}
		if color == Joker {
			color = t.Color
			lo, hi = t.Rank, t.Rank
		} else if t.Color != color {
			return false
		}
		if _, dup := ranks[t.Rank]; dup {
			return false
		}
		ranks[t.Rank] = struct{}{}
		lo = min(lo, t.Rank)
		hi = max(hi, t.Rank)
	}
	if color == Joker {
		return false
	}
	span := hi - lo + 1
	if r.ExactRunSpan {
		return span == len(tiles)
	}
	return span <= len(tiles)
}

// IsMeld reports whether tiles form a group or a run under r.
func (r Rules) IsMeld(tiles []Tile) bool {
	return IsGroup(tiles) || r.IsRun(tiles)
}
