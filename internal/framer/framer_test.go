package framer

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"p25recv/internal/dibit"
	"p25recv/internal/duid"
	"p25recv/internal/ratelog"
)

func newTestFramer(t *testing.T) (*Framer, *[]FramedPayload, *[]SyncLoss) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	limiter := ratelog.New(logger, 1000)

	var payloads []FramedPayload
	var losses []SyncLoss

	f := New(logger, limiter, func(p FramedPayload) {
		payloads = append(payloads, p)
	}, func(s SyncLoss) {
		losses = append(losses, s)
	})
	return f, &payloads, &losses
}

func feedDibits(f *Framer, n int, ts time.Time) {
	for i := 0; i < n; i++ {
		f.Receive(dibit.Plus1, ts)
	}
}

func TestCleanHDUCompletesAtPayloadLength(t *testing.T) {
	f, payloads, _ := newTestFramer(t)
	ts := time.Unix(0, 0)

	f.SyncDetected(0x123, duid.HDU, true, ts)
	feedDibits(f, duid.HDU.PayloadBits()/2, ts)

	if len(*payloads) != 1 {
		t.Fatalf("len(payloads) = %d, want 1", len(*payloads))
	}
	got := (*payloads)[0]
	if got.NAC != 0x123 || got.DUID != duid.HDU || !got.ValidNID {
		t.Fatalf("payload = %+v", got)
	}
	if got.BitCount != duid.HDU.PayloadBits() {
		t.Fatalf("BitCount = %d, want %d", got.BitCount, duid.HDU.PayloadBits())
	}
}

func TestLDU1ThenLDU2NoSyncLossBetween(t *testing.T) {
	f, payloads, losses := newTestFramer(t)
	ts := time.Unix(0, 0)

	f.SyncDetected(0x42, duid.LDU1, true, ts)
	feedDibits(f, duid.LDU1.PayloadBits()/2, ts)

	f.SyncDetected(0x42, duid.LDU2, true, ts)
	feedDibits(f, duid.LDU2.PayloadBits()/2, ts)

	if len(*payloads) != 2 {
		t.Fatalf("len(payloads) = %d, want 2", len(*payloads))
	}
	if (*payloads)[0].DUID != duid.LDU1 || (*payloads)[1].DUID != duid.LDU2 {
		t.Fatalf("DUIDs = %v, %v", (*payloads)[0].DUID, (*payloads)[1].DUID)
	}
	if len(*losses) != 0 {
		t.Fatalf("len(losses) = %d, want 0", len(*losses))
	}
}

func TestUncorrectableNIDForcesPlaceholderThenLengthResolution(t *testing.T) {
	f, payloads, _ := newTestFramer(t)
	ts := time.Unix(0, 0)

	// Establish previous=LDU1 so the force_completion ladder's 1728
	// bucket resolves to LDU2.
	f.SyncDetected(0x1, duid.LDU1, true, ts)
	feedDibits(f, duid.LDU1.PayloadBits()/2, ts)

	// Next sync is uncorrectable: the NID decoder reports a non-primary
	// DUID for it, which SyncDetected replaces with PLACEHOLDER.
	f.SyncDetected(0x1, duid.Unknown, false, ts)

	// Feed enough dibits to land bitCount in the (792, 1728] bucket, well
	// short of PLACEHOLDER's assumed 1800-bit length, so the next sync
	// event (not IsComplete) triggers force-completion.
	feedDibits(f, 500, ts)
	f.SyncDetected(0x1, duid.TDU, true, ts)

	if len(*payloads) != 2 {
		t.Fatalf("len(payloads) = %d, want 2", len(*payloads))
	}
	if (*payloads)[1].DUID != duid.LDU2 {
		t.Fatalf("forced DUID = %v, want LDU2", (*payloads)[1].DUID)
	}
	if (*payloads)[1].ValidNID {
		t.Fatal("forced payload should carry the invalid NID's ValidNID=false")
	}
}

// TestCleanDUIDInterruptedEarlyIsReguessedAgainstLadder exercises §4.5's
// unconditional interrupt rule for an assembler whose NID decoded cleanly:
// an early sync must still force it through the length ladder rather than
// delivering it as its original DUID with a truncated payload.
func TestCleanDUIDInterruptedEarlyIsReguessedAgainstLadder(t *testing.T) {
	f, payloads, _ := newTestFramer(t)
	ts := time.Unix(0, 0)

	f.SyncDetected(0x1, duid.TDU, true, ts)
	feedDibits(f, duid.TDU.PayloadBits()/2, ts)

	f.SyncDetected(0x1, duid.HDU, true, ts)
	feedDibits(f, 200, ts)
	f.SyncDetected(0x1, duid.TDU, true, ts)

	if len(*payloads) != 2 {
		t.Fatalf("len(payloads) = %d, want 2", len(*payloads))
	}
	interrupted := (*payloads)[1]
	if interrupted.DUID == duid.HDU {
		t.Fatal("interrupted HDU delivered as HDU, want it re-guessed via the length ladder")
	}
	if interrupted.BitCount != interrupted.DUID.PayloadBits() {
		t.Fatalf("BitCount = %d, want %d", interrupted.BitCount, interrupted.DUID.PayloadBits())
	}
}

func TestSyncLossEveryFourThousandEightHundredDibits(t *testing.T) {
	f, _, losses := newTestFramer(t)
	ts := time.Unix(0, 0)

	feedDibits(f, 10000, ts)

	if len(*losses) != 2 {
		t.Fatalf("len(losses) = %d, want 2", len(*losses))
	}
	for _, l := range *losses {
		if l.BitCount != 9600 {
			t.Fatalf("BitCount = %d, want 9600", l.BitCount)
		}
		if l.Protocol != ProtocolAPCO25 {
			t.Fatalf("Protocol = %q, want %q", l.Protocol, ProtocolAPCO25)
		}
	}
}

func TestSyncDetectedSubtractsOverheadFromIdleCounter(t *testing.T) {
	f, _, losses := newTestFramer(t)
	ts := time.Unix(0, 0)

	// Idle for fewer dibits than the 116-dibit sync overhead: no loss.
	feedDibits(f, 50, ts)
	f.SyncDetected(0x1, duid.HDU, true, ts)
	if len(*losses) != 0 {
		t.Fatalf("len(losses) = %d, want 0 for idle < overhead", len(*losses))
	}
}

func TestTSBK1WidensToTSBK3ThenDowngradesOnShortLength(t *testing.T) {
	f, payloads, _ := newTestFramer(t)
	ts := time.Unix(0, 0)

	f.SyncDetected(0x1, duid.TSBK1, true, ts)
	// Feed exactly TSBK1's payload worth of dibits; IsComplete won't fire
	// because the assembler's DUID is TSBK3 (length 720) until the next
	// sync forces a resolution.
	feedDibits(f, duid.TSBK1.PayloadBits()/2, ts)
	f.SyncDetected(0x1, duid.HDU, true, ts)

	if len(*payloads) != 1 {
		t.Fatalf("len(payloads) = %d, want 1", len(*payloads))
	}
	if (*payloads)[0].DUID != duid.TSBK1 {
		t.Fatalf("downgraded DUID = %v, want TSBK1", (*payloads)[0].DUID)
	}
}

func TestStopIsAdvisoryOnly(t *testing.T) {
	f, payloads, _ := newTestFramer(t)
	ts := time.Unix(0, 0)

	f.Stop()
	if f.Running() {
		t.Fatal("Running() = true after Stop()")
	}

	f.SyncDetected(0x1, duid.TDU, true, ts)
	feedDibits(f, duid.TDU.PayloadBits()/2, ts)
	if len(*payloads) != 1 {
		t.Fatalf("len(payloads) = %d, want 1 even after Stop()", len(*payloads))
	}
}
