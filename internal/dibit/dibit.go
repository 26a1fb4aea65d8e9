// Package dibit defines the four-level C4FM symbol alphabet shared by the
// timing loop, sync correlators and NID decoder: dibits, their ideal
// phases, and the soft-symbol decision rule that turns a phase sample into
// one.
package dibit

import "math"

// Dibit is one of the four C4FM symbols transmitted per baud.
type Dibit int

const (
	Plus1 Dibit = iota
	Plus3
	Minus1
	Minus3
)

// bitPairs holds the (b1, b2) pair carried by each dibit, per the P25 C4FM
// symbol map: 00->+1, 01->+3, 10->-1, 11->-3.
var bitPairs = [4][2]byte{
	Plus1:  {0, 0},
	Plus3:  {0, 1},
	Minus1: {1, 0},
	Minus3: {1, 1},
}

var idealPhases = [4]float64{
	Plus1:  math.Pi / 4,
	Plus3:  3 * math.Pi / 4,
	Minus1: -math.Pi / 4,
	Minus3: -3 * math.Pi / 4,
}

// levels holds the signed 2-bit amplitude each dibit carries on the air:
// +1, +3, -1, -3. The sync correlator weights clamped phase samples by
// these, not by the ideal phases themselves.
var levels = [4]float64{
	Plus1:  1,
	Plus3:  3,
	Minus1: -1,
	Minus3: -3,
}

var names = [4]string{Plus1: "+1", Plus3: "+3", Minus1: "-1", Minus3: "-3"}

// Bits returns the (b1, b2) bit pair for the dibit.
func (d Dibit) Bits() (b1, b2 byte) {
	p := bitPairs[d]
	return p[0], p[1]
}

// IdealPhase returns the dibit's ideal constellation phase in radians.
func (d Dibit) IdealPhase() float64 {
	return idealPhases[d]
}

// Level returns the dibit's signed 2-bit amplitude: +1, +3, -1, or -3.
func (d Dibit) Level() float64 {
	return levels[d]
}

func (d Dibit) String() string {
	if d < Plus1 || d > Minus3 {
		return "?"
	}
	return names[d]
}
