// Package bch implements the BCH(63,16,23) systematic shortened binary
// cyclic decoder used to recover the P25 Network Identifier. It is a flat,
// table-driven decoder parameterized by the code's (n, k, t) and its
// generator polynomial, rather than a class hierarchy over a generic
// Reed-Solomon base.
package bch

const (
	// N is the codeword length in bits.
	N = 63
	// K is the number of systematic information bits.
	K = 16
	// ParityBits is N-K, the number of parity bits produced per codeword.
	ParityBits = N - K
	// T is the guaranteed number of correctable bit errors (minimum
	// distance 23 => floor((23-1)/2) = 11).
	T = 11

	fieldDegree = 6 // GF(2^6) = GF(64), since N = 2^6-1

	// primitivePoly is x^6+x+1, used to build the GF(64) log/exp tables.
	primitivePoly = 0o103
	// generatorPoly is the degree-47 generator g(x), bit i holding the
	// coefficient of x^i. Its roots include alpha^1..alpha^22 (the
	// consecutive run the BCH bound requires for minimum distance >= 23)
	// plus the extra roots needed to reach K=16 information bits exactly.
	generatorPoly uint64 = 0o6331141367235453
)

// syndromeColumns are the 16 parity columns of the reference encoder: the
// 47-bit parity block produced by encoding each information bit in
// isolation. XORing together the columns selected by the set bits of a
// 16-bit information word reproduces the same parity the generator
// polynomial division would produce; see Encode.
var syndromeColumns = [K]uint64{
	0o2331141367235453,
	0o2553243431646575,
	0o3017446304720721,
	0o0306055576474211,
	0o0614133375170422,
	0o1430266772361044,
	0o3060555764742110,
	0o0270272436531673,
	0o0560565075263566,
	0o1341352172547354,
	0o2702724365316730,
	0o3534711435400233,
	0o1140762314235035,
	0o2301744630472072,
	0o2532650706351537,
	0o3154460573516625,
}

var expTable [2*N + 1]uint64
var logTable [N + 1]int

func init() {
	reg := uint64(1)
	for i := 0; i < N; i++ {
		expTable[i] = reg
		logTable[reg] = i
		reg <<= 1
		if reg&(1<<fieldDegree) != 0 {
			reg ^= primitivePoly
		}
	}
	for i := N; i < len(expTable); i++ {
		expTable[i] = expTable[i-N]
	}
}

func gfMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	return expTable[(logTable[a]+logTable[b])%N]
}

func gfInv(a uint64) uint64 {
	return expTable[(N-logTable[a])%N]
}

// Encode produces the 63-bit systematic codeword for a 16-bit information
// word (NAC in the high 12 bits, DUID in the low 4, per the NID layout)
// by XORing the precomputed parity columns selected by the set
// information bits, then placing the information word in the high 16
// bits of the codeword.
func Encode(info uint16) uint64 {
	var parity uint64
	for i := 0; i < K; i++ {
		if info&(1<<uint(i)) != 0 {
			parity ^= syndromeColumns[i]
		}
	}
	return (uint64(info) << ParityBits) | parity
}

// Decode attempts to correct up to T bit errors in a received 63-bit
// codeword using Berlekamp-Massey to find the error-locator polynomial
// and a Chien search to locate the errors. irrecoverable is true when the
// error pattern exceeds the code's correction capability.
func Decode(received uint64) (corrected uint64, irrecoverable bool) {
	received &= (1 << N) - 1

	syn := syndromes(received, 2*T)
	allZero := true
	for _, s := range syn {
		if s != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return received, false
	}

	sigma, l := berlekampMassey(syn)
	if l > T {
		return received, true
	}

	roots := chienSearch(sigma, l)
	if len(roots) != l {
		return received, true
	}

	corrected = received
	for _, pos := range roots {
		corrected ^= 1 << uint(pos)
	}

	for _, s := range syndromes(corrected, 2*T) {
		if s != 0 {
			return received, true
		}
	}
	return corrected, false
}

// syndromes evaluates the received codeword at alpha^1..alpha^count using
// Horner's method in GF(64).
func syndromes(received uint64, count int) []uint64 {
	out := make([]uint64, count)
	for j := 1; j <= count; j++ {
		out[j-1] = evalAt(received, expTable[j])
	}
	return out
}

func evalAt(received uint64, alpha uint64) uint64 {
	var val uint64
	for i := N - 1; i >= 0; i-- {
		val = gfMul(val, alpha)
		if received&(1<<uint(i)) != 0 {
			val ^= 1
		}
	}
	return val
}

// berlekampMassey finds the minimal-degree error-locator polynomial sigma
// satisfying the syndrome recurrence, returning its coefficients
// (ascending degree, sigma[0]==1) and its degree L.
func berlekampMassey(syn []uint64) (sigma []uint64, l int) {
	n := len(syn)
	c := make([]uint64, n+1)
	b := make([]uint64, n+1)
	c[0], b[0] = 1, 1
	l = 0
	m := 1
	bCoef := uint64(1)

	for i := 0; i < n; i++ {
		delta := syn[i]
		for j := 1; j <= l; j++ {
			delta ^= gfMul(c[j], syn[i-j])
		}
		if delta == 0 {
			m++
			continue
		}
		t := make([]uint64, len(c))
		copy(t, c)
		coef := gfMul(delta, gfInv(bCoef))
		for j := 0; j < len(b); j++ {
			if j+m < len(c) {
				c[j+m] ^= gfMul(coef, b[j])
			}
		}
		if 2*l <= i {
			l = i + 1 - l
			copy(b, t)
			bCoef = delta
			m = 1
		} else {
			m++
		}
	}
	return c[:l+1], l
}

// chienSearch evaluates sigma at alpha^-i for every nonzero field element
// and returns the bit positions i where sigma has a root (an error there).
func chienSearch(sigma []uint64, l int) []int {
	if l == 0 {
		return nil
	}
	var roots []int
	for i := 0; i < N; i++ {
		x := expTable[(N-i)%N]
		var val uint64
		xp := uint64(1)
		for c := 0; c < len(sigma); c++ {
			if sigma[c] != 0 {
				val ^= gfMul(sigma[c], xp)
			}
			xp = gfMul(xp, x)
		}
		if val == 0 {
			roots = append(roots, i)
		}
	}
	return roots
}

// Information extracts the 16-bit systematic information word (bits
// 47..62) from a 63-bit codeword.
func Information(codeword uint64) uint16 {
	return uint16((codeword >> ParityBits) & ((1 << K) - 1))
}
