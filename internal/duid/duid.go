// Package duid defines the P25 Data Unit ID type: the four-bit field
// decoded from the NID that selects a message's payload length and
// trailing-status-dibit behavior, plus the length-based reassignment
// ladder used when a NID can't be trusted.
package duid

// DUID identifies a P25 data unit type.
type DUID int

const (
	HDU DUID = iota
	TDU
	LDU1
	TSBK1
	LDU2
	PDU1
	TDULC
	TSBK2
	TSBK3
	Placeholder
	Unknown
)

// wireValue is the 4-bit DUID value carried in the NID, for the DUIDs
// that appear on the air (the derived/synthetic ones never do).
var wireValue = map[DUID]uint8{
	HDU:   0,
	TDU:   3,
	LDU1:  5,
	TSBK1: 7,
	LDU2:  10,
	PDU1:  12,
	TDULC: 15,
}

var fromWireValue = map[uint8]DUID{
	0:  HDU,
	3:  TDU,
	5:  LDU1,
	7:  TSBK1,
	10: LDU2,
	12: PDU1,
	15: TDULC,
}

// payloadBits is the nominal payload length in bits following the NID,
// for every DUID including the derived/synthetic ones.
var payloadBits = map[DUID]int{
	HDU:         678,
	TDU:         30,
	LDU1:        1568,
	TSBK1:       248,
	LDU2:        1568,
	PDU1:        1200,
	TDULC:       432,
	TSBK2:       464,
	TSBK3:       720,
	Placeholder: 1800,
	Unknown:     0,
}

// hasStatusDibit marks the primary, on-air DUIDs; all of them carry
// trailing status dibits interleaved into their payload.
var hasStatusDibit = map[DUID]bool{
	HDU: true, TDU: true, LDU1: true, TSBK1: true, LDU2: true, PDU1: true, TDULC: true,
}

var names = map[DUID]string{
	HDU: "HDU", TDU: "TDU", LDU1: "LDU1", TSBK1: "TSBK1", LDU2: "LDU2",
	PDU1: "PDU1", TDULC: "TDULC", TSBK2: "TSBK2", TSBK3: "TSBK3",
	Placeholder: "PLACEHOLDER", Unknown: "UNKNOWN",
}

// FromWire maps a 4-bit DUID field to its type. ok is false for values
// that don't name one of the seven primary, on-air DUIDs.
func FromWire(value uint8) (d DUID, ok bool) {
	d, ok = fromWireValue[value&0xF]
	return d, ok
}

// WireValue returns the 4-bit value this DUID is carried as on the air.
// It is only meaningful for the seven primary DUIDs.
func (d DUID) WireValue() (uint8, bool) {
	v, ok := wireValue[d]
	return v, ok
}

// PayloadBits returns the nominal payload length in bits following the NID.
func (d DUID) PayloadBits() int {
	return payloadBits[d]
}

// IsPrimary reports whether d is one of the seven DUIDs that actually
// appear in a NID, as opposed to a derived/synthetic placeholder.
func (d DUID) IsPrimary() bool {
	_, ok := wireValue[d]
	return ok
}

// HasStatusDibit reports whether messages of this type carry interleaved
// status dibits in their payload.
func (d DUID) HasStatusDibit() bool {
	return hasStatusDibit[d]
}

func (d DUID) String() string {
	if n, ok := names[d]; ok {
		return n
	}
	return "UNKNOWN"
}

// ForceCompletion reassigns a DUID from the number of payload bits
// accumulated so far, for use when the NID was invalid and the original
// guess must be corrected at the next sync event. previous is the DUID
// of the message that preceded this one, used to disambiguate the
// LDU1/LDU2 voice pair.
func ForceCompletion(bitsPointer int, previous DUID) DUID {
	switch {
	case bitsPointer <= 144:
		return TDU
	case bitsPointer <= 288:
		return TDU
	case bitsPointer == 360:
		return TSBK1
	case bitsPointer <= 434:
		return TDULC
	case bitsPointer == 576:
		return TSBK2
	case bitsPointer == 720:
		return TSBK3
	case bitsPointer <= 792:
		return HDU
	case bitsPointer <= 1728:
		if previous == LDU1 {
			return LDU2
		}
		return LDU1
	default:
		return TDU
	}
}

// DowngradeTSBK3 resolves the generic trunking placeholder (TSBK3, the
// longest TSBK variant) down to the shorter TSBK length actually observed
// once the assembler's bit pointer shows the message ended early. It is
// only applied when the NID decoded cleanly but started as TSBK1, which
// the framer optimistically widens to TSBK3 until the true length is known.
func DowngradeTSBK3(bitsPointer int) DUID {
	switch {
	case bitsPointer < TSBK1.PayloadBits():
		return TSBK1
	case bitsPointer < TSBK2.PayloadBits():
		return TSBK2
	default:
		return TSBK3
	}
}
