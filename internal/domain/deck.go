package domain

import (
	"encoding/binary"

	"lukechampine.com/frand"
)

// Source is the randomness injected into dealing and bot play.
// *frand.RNG satisfies it.
type Source interface {
	Shuffle(n int, swap func(i, j int))
	Intn(n int) int
}

// NewSource returns a ChaCha-backed RNG. A zero seed draws from system
// entropy; any other seed gives a reproducible stream.
func NewSource(seed uint64) Source {
	if seed == 0 {
		return frand.New()
	}
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	return frand.NewCustom(key[:], 1024, 12)
}

// NewTilePool returns an ordered pool: for each colour the ranks
// 1..rankRange, the whole run repeated copies times, then the jokers
// J1..Jn.
func NewTilePool(rankRange, copies, jokers int) []Tile {
	pool := make([]Tile, 0, len(Colors)*rankRange*copies+jokers)
	for c := 0; c < copies; c++ {
		for _, color := range Colors {
			for r := 1; r <= rankRange; r++ {
				pool = append(pool, Tile{Rank: r, Color: color})
			}
		}
	}
	for j := 1; j <= jokers; j++ {
		pool = append(pool, JokerTile(j))
	}
	return pool
}

// ShuffleTiles shuffles tiles in place with src.
func ShuffleTiles(src Source, tiles []Tile) {
	src.Shuffle(len(tiles), func(i, j int) { tiles[i], tiles[j] = tiles[j], tiles[i] })
}
