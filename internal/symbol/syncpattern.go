package symbol

import "p25recv/internal/dibit"

// syncPatternDibits is the 24-symbol P25 sync pattern in transmit order.
// Under Dibit.Bits it carries the 48 bits (MSB first)
// 0101 0001 0101 0101 0010 0010 0011 0011 1111 1111 1001 0111.
var syncPatternDibits = [24]dibit.Dibit{
	dibit.Plus3, dibit.Plus3, dibit.Plus1, dibit.Plus3,
	dibit.Plus3, dibit.Plus3, dibit.Plus3, dibit.Plus3,
	dibit.Plus1, dibit.Minus1, dibit.Plus1, dibit.Minus1,
	dibit.Plus1, dibit.Minus3, dibit.Plus1, dibit.Minus3,
	dibit.Minus3, dibit.Minus3, dibit.Minus3, dibit.Minus3,
	dibit.Minus1, dibit.Plus3, dibit.Plus3, dibit.Minus3,
}

// syncPatternLevels is the sync pattern's symbol form: the 24 signed
// dibit levels (+1/+3/-1/-3) score() correlates clamped phase samples
// against.
var syncPatternLevels [24]float64

func init() {
	for i, d := range syncPatternDibits {
		syncPatternLevels[i] = d.Level()
	}
}
