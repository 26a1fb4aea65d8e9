package framer

import (
	"time"

	"github.com/sirupsen/logrus"

	"p25recv/internal/dibit"
	"p25recv/internal/duid"
	"p25recv/internal/ratelog"
)

// maxPayloadBits is the largest nominal payload among the primary DUIDs
// (LDU1/LDU2), used as the assembler's fixed backing capacity. Reassigning
// a DUID mid-assembly (force_completion, TSBK3 downgrade) only ever
// changes the logical length field, never reallocates.
const maxPayloadBits = 1568

// Assembler accumulates payload bits for one message between sync events,
// skipping the interleaved status dibit and tracking completion against
// its DUID's nominal payload length.
type Assembler struct {
	NAC      uint16
	DUID     duid.DUID
	ValidNID bool
	Created  time.Time

	bits     [(maxPayloadBits + 7) / 8]byte
	bitCount int // logical write pointer into bits, in bits

	bitsProcessedCount     int
	statusSymbolBitCounter int

	limiter *ratelog.Limiter
}

// NewAssembler creates an assembler for a just-detected sync event. The
// status-symbol counter starts at 42, accounting for the bits already
// elapsed (sync + NID + one status dibit) since the last status dibit was
// consumed.
func NewAssembler(nac uint16, d duid.DUID, validNID bool, created time.Time, limiter *ratelog.Limiter) *Assembler {
	return &Assembler{
		NAC:                    nac,
		DUID:                   d,
		ValidNID:               validNID,
		Created:                created,
		statusSymbolBitCounter: 42,
		limiter:                limiter,
	}
}

// Receive appends one payload dibit, skipping it instead if it lands on
// the interleaved status-symbol position.
func (a *Assembler) Receive(d dibit.Dibit) {
	a.bitsProcessedCount += 2
	a.statusSymbolBitCounter += 2

	if a.statusSymbolBitCounter == 70 {
		a.statusSymbolBitCounter = 0
		return
	}

	b1, b2 := d.Bits()
	a.appendBit(b1)
	a.appendBit(b2)
}

func (a *Assembler) appendBit(bit byte) {
	if a.bitCount >= maxPayloadBits {
		if a.limiter != nil {
			a.limiter.Warn("assembler_capacity_exceeded", logrus.Fields{"duid": a.DUID.String()})
		}
		return
	}
	byteIdx := a.bitCount / 8
	shift := uint(7 - a.bitCount%8)
	if bit != 0 {
		a.bits[byteIdx] |= 1 << shift
	}
	a.bitCount++
}

// IsComplete reports whether enough bits have been processed to satisfy
// the assembler's current DUID's nominal payload length.
func (a *Assembler) IsComplete() bool {
	return a.bitsProcessedCount >= a.DUID.PayloadBits()
}

// ForceCompletion reassigns the DUID from the accumulated bit-buffer
// pointer using the length ladder: used when the NID that started this
// assembly was uncorrectable, and also on an interrupted assembly (an
// early sync arrives before IsComplete), where the framer re-guesses
// regardless of whether the original NID was valid.
func (a *Assembler) ForceCompletion(previous duid.DUID) {
	a.DUID = duid.ForceCompletion(a.bitCount, previous)
}

// DowngradeTSBK3 resolves a generic TSBK3 placeholder down to the shorter
// TSBK variant actually observed, for use when the NID decoded cleanly
// (on natural completion, or when a still-widened TSBK3 is interrupted
// before reaching its own nominal length).
func (a *Assembler) DowngradeTSBK3() {
	a.DUID = duid.DowngradeTSBK3(a.bitCount)
}

// Payload snapshots the accumulated bits as a FramedPayload. bitCount is
// always the resolved DUID's nominal payload length, not the raw processed
// count: on an interrupt-resolved completion, bitsProcessedCount keeps
// running past the payload (skipped status dibits, the next frame's
// sync+NID) until the interrupting sync fires, so it's never the right
// value to report.
func (a *Assembler) Payload(timestamp time.Time) FramedPayload {
	byteLen := (a.bitCount + 7) / 8
	out := make([]byte, byteLen)
	copy(out, a.bits[:byteLen])

	return FramedPayload{
		NAC:      a.NAC,
		DUID:     a.DUID,
		ValidNID: a.ValidNID,
		Bits:     out,
		BitCount: a.DUID.PayloadBits(),
		Time:     timestamp,
	}
}
