package framer

import (
	"time"

	"p25recv/internal/duid"
)

// FramedPayload is a complete message handed downstream: its type, the
// accumulated payload bits, and whether its NID was BCH-correctable.
type FramedPayload struct {
	NAC      uint16
	DUID     duid.DUID
	ValidNID bool
	Bits     []byte
	BitCount int
	Time     time.Time
}

// SyncLoss reports a one-second span with no sync lock.
type SyncLoss struct {
	Time     time.Time
	BitCount int
	Protocol string
}

// ProtocolAPCO25 is the Protocol value carried by every SyncLoss.
const ProtocolAPCO25 = "APCO25"
