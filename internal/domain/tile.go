package domain

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Color is a tile colour. Joker is modelled as a fifth colour so that a tile
// stays a plain comparable value.
type Color int

const (
	Red Color = iota
	Blue
	Yellow
	Black
	Joker
)

// Colors lists the four ordinary colours in tile order.
var Colors = [...]Color{Red, Blue, Yellow, Black}

var colorCodes = [...]string{"R", "B", "Y", "K", "J"}

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Blue:
		return "blue"
	case Yellow:
		return "yellow"
	case Black:
		return "black"
	case Joker:
		return "joker"
	default:
		return "color(" + strconv.Itoa(int(c)) + ")"
	}
}

// Tile is a single Rummikub tile. Two tiles are the same tile when rank and
// colour match; duplicates are tracked by count, never by identity.
type Tile struct {
	Rank  int
	Color Color
}

// JokerTile returns a joker. The rank only distinguishes physical jokers
// in the pool and is ignored by meld rules.
func JokerTile(rank int) Tile {
	return Tile{Rank: rank, Color: Joker}
}

// IsJoker reports whether t substitutes for any tile.
func (t Tile) IsJoker() bool {
	return t.Color == Joker
}

// String renders the short notation used on the wire: R1, B13, Y5, K7, J, J2.
func (t Tile) String() string {
	if t.IsJoker() {
		if t.Rank == 0 {
			return "J"
		}
		return "J" + strconv.Itoa(t.Rank)
	}
	if t.Color < Red || t.Color > Joker {
		return fmt.Sprintf("?%d", t.Rank)
	}
	return colorCodes[t.Color] + strconv.Itoa(t.Rank)
}

// CompareTiles orders tiles by rank, then colour.
func CompareTiles(a, b Tile) int {
	if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
		return c
	}
	return cmp.Compare(a.Color, b.Color)
}

// SortTiles sorts tiles in place in tile order.
func SortTiles(tiles []Tile) {
	slices.SortFunc(tiles, CompareTiles)
}

// SortedTiles returns a sorted copy of tiles.
func SortedTiles(tiles []Tile) []Tile {
	out := slices.Clone(tiles)
	SortTiles(out)
	return out
}

// ParseTile reads the short notation produced by Tile.String.
func ParseTile(s string) (Tile, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Tile{}, fmt.Errorf("%w: empty", ErrInvalidTile)
	}
	if s[0] == 'J' {
		if len(s) == 1 {
			return JokerTile(0), nil
		}
		rank, err := strconv.Atoi(s[1:])
		if err != nil || rank < 0 {
			return Tile{}, fmt.Errorf("%w: %q", ErrInvalidTile, s)
		}
		return JokerTile(rank), nil
	}

	color := Color(-1)
	for i, code := range colorCodes[:Joker] {
		if s[:1] == code {
			color = Color(i)
			break
		}
	}
	if color < 0 {
		return Tile{}, fmt.Errorf("%w: unknown colour in %q", ErrInvalidTile, s)
	}
	rank, err := strconv.Atoi(s[1:])
	if err != nil || rank < 1 {
		return Tile{}, fmt.Errorf("%w: bad rank in %q", ErrInvalidTile, s)
	}
	return Tile{Rank: rank, Color: color}, nil
}

// ParseTiles parses every entry of ss, stopping at the first error.
func ParseTiles(ss []string) ([]Tile, error) {
	out := make([]Tile, 0, len(ss))
	for _, s := range ss {
		t, err := ParseTile(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// FormatTiles is the inverse of ParseTiles.
func FormatTiles(tiles []Tile) []string {
	out := make([]string, len(tiles))
	for i, t := range tiles {
		out[i] = t.String()
	}
	return out
}
