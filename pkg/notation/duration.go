package notation

import "math/big"

// MinDuration is the shortest duration a token can have, in beats
var MinDuration = big.NewRat(1, 64)

// Duration converts a run of rhythm modifiers into beats. Each '-' halves the
// duration, then dots compound the usual way: the first adds half, the second
// a quarter, and so on (1.5x, 1.75x, ...). Only the counts matter, not the order.
func Duration(mods string) *big.Rat {
	halvings, dots := 0, 0
	for _, c := range mods {
		switch c {
		case '-':
			halvings++
		case '.':
			dots++
		}
	}

	d := new(big.Rat).SetFrac(big.NewInt(1), new(big.Int).Lsh(big.NewInt(1), uint(halvings)))

	inc := new(big.Rat).Mul(d, big.NewRat(1, 2))
	for i := 0; i < dots; i++ {
		d.Add(d, inc)
		inc.Mul(inc, big.NewRat(1, 2))
	}

	if d.Cmp(MinDuration) < 0 {
		d.Set(MinDuration)
	}
	return d
}

// Ticks converts a duration in beats to ticks, rounding half away from zero
func Ticks(d *big.Rat, ticksPerBeat int) int64 {
	t := new(big.Rat).Mul(d, new(big.Rat).SetInt64(int64(ticksPerBeat)))
	num := new(big.Int).Set(t.Num())
	den := t.Denom()

	// floor((2*num + den) / (2*den)) for non-negative values
	num.Mul(num, big.NewInt(2))
	num.Add(num, den)
	q := new(big.Int).Quo(num, new(big.Int).Mul(den, big.NewInt(2)))
	return q.Int64()
}
