// Package nid extracts the Network Identifier from a decided-dibit window
// and resolves it to a NAC/DUID pair via the BCH(63,16,23) decoder.
package nid

import (
	"p25recv/internal/bch"
	"p25recv/internal/dibit"
	"p25recv/internal/duid"
)

// statusDibitIndex is the position, within the 33-dibit NID window that
// follows the 24-dibit sync pattern, of the interleaved status dibit: it
// falls after the 70th bit counted from the start of the sync pattern,
// i.e. 11 payload dibits (22 bits) into the window.
const statusDibitIndex = 11

// Result is the outcome of decoding one NID.
type Result struct {
	NAC         uint16
	DUID        duid.DUID
	Valid       bool
	RawCodeword uint64
}

// Extract pulls the 63-bit BCH codeword out of a full 57-dibit delay-line
// window (24 sync dibits + 33 NID-area dibits), dropping the interleaved
// status dibit. Accumulating bits MSB-first as they arrive already leaves
// the earliest-received bit in the codeword's highest bit position, so no
// further reordering is needed. ok is false if window isn't a full
// 57-dibit line.
func Extract(window []dibit.Dibit) (codeword uint64, ok bool) {
	if len(window) != dibit.DelayLineLength {
		return 0, false
	}

	nidArea := window[24:]
	var raw uint64
	for i, d := range nidArea {
		if i == statusDibitIndex {
			continue
		}
		b1, b2 := d.Bits()
		raw = (raw << 2) | uint64(b1)<<1 | uint64(b2)
	}

	// Accumulating MSB-first already leaves the earliest-received bit at
	// the top of raw's 64 bits; the 64th (last-received) bit is the extra
	// parity bit the BCH decoder doesn't operate on, so drop it here.
	return raw >> 1, true
}

// Decode extracts and BCH-decodes the NID from window, resolving it to a
// NAC/DUID pair. previousNAC is substituted when the NID is uncorrectable,
// per the contract that an invalid NID never invents a new NAC.
func Decode(window []dibit.Dibit, previousNAC uint16) Result {
	codeword, ok := Extract(window)
	if !ok {
		return Result{NAC: previousNAC, DUID: duid.Placeholder, Valid: false}
	}

	corrected, irrecoverable := bch.Decode(codeword)
	if irrecoverable {
		info := bch.Information(codeword)
		bestEffort, _ := duid.FromWire(uint8(info & 0xF))
		_ = bestEffort // best-effort guess is informational only; the framer forces PLACEHOLDER
		return Result{NAC: previousNAC, DUID: duid.Placeholder, Valid: false, RawCodeword: codeword}
	}

	info := bch.Information(corrected)
	nac := uint16(info >> 4)
	d, known := duid.FromWire(uint8(info & 0xF))
	if !known {
		d = duid.Unknown
	}
	return Result{NAC: nac, DUID: d, Valid: true, RawCodeword: corrected}
}
