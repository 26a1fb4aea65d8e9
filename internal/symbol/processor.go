// Package symbol implements the decision-feedback symbol-timing and
// sync-correlation loop: it turns a stream of soft (phase) samples into
// decided dibits, continuously refining sample timing against the P25
// sync pattern and triggering NID decode 33 dibits after each sync.
package symbol

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"p25recv/internal/dibit"
	"p25recv/internal/framer"
	"p25recv/internal/nid"
	"p25recv/internal/ratelog"
)

const (
	bufferProtectedRegion = 26 // dibits of history kept behind bufferPointer
	bufferWorkspace       = 25 // dibits of headroom appended before a shift

	nidDibitLength   = dibit.DelayLineLength // 57: sync (24) + NID area (33)
	nidTriggerSymbol = nidDibitLength - 24   // 33

	maxSymbolsForFineSync = 890
	syncThreshold         = 65.0

	minBaudMultiple = 2 // sample rate must exceed 2x the 4800 baud symbol rate
	symbolRate      = 4800.0
)

// Processor owns the soft-symbol buffer, delay line, and sync correlators
// for one P25 symbol stream. It is single-threaded and push-driven: all
// mutation happens inside Receive.
type Processor struct {
	logger  *logrus.Logger
	limiter *ratelog.Limiter

	nominalSamplesPerSymbol  float64
	observedSamplesPerSymbol float64
	workspaceSamples         int

	buf           []float64
	loadPointer   int
	bufferPointer int
	samplePoint   float64

	delayLine dibit.DelayLine
	recorder  *dibit.ByteAssembler

	syncLock                    bool
	symbolsSinceLastSync        int
	previousMessageSymbolLength int
	previousNAC                 uint16

	framer *framer.Framer

	// Stats, exported for the metrics collector.
	SyncAcquisitions   uint64
	ValidNIDCount      uint64
	InvalidNIDCount    uint64
	SyncLossTransition uint64
}

// ObservedSamplesPerSymbol returns the timing loop's currently tracked
// baud estimate, for the metrics collector's gauge.
func (p *Processor) ObservedSamplesPerSymbol() float64 {
	return p.observedSamplesPerSymbol
}

// NewProcessor builds a Processor for the given baseband sample rate.
// recorder receives the raw decided-dibit byte stream for optional
// external recording; a nil recorder disables that path.
func NewProcessor(sampleRate uint32, fr *framer.Framer, recorder *dibit.ByteAssembler, logger *logrus.Logger, limiter *ratelog.Limiter) (*Processor, error) {
	p := &Processor{
		logger:   logger,
		limiter:  limiter,
		recorder: recorder,
		framer:   fr,
	}
	if err := p.SetSampleRate(sampleRate); err != nil {
		return nil, err
	}
	return p, nil
}

// SetSampleRate validates and applies a new baseband sample rate,
// resetting all timing state: the soft-symbol buffer, delay line, and
// sync lock. sr must exceed twice the 4800-baud symbol rate.
func (p *Processor) SetSampleRate(sr uint32) error {
	if float64(sr) <= minBaudMultiple*symbolRate {
		return fmt.Errorf("invalid sample rate %d: must exceed %gx the symbol rate", sr, minBaudMultiple*symbolRate)
	}

	sps := float64(sr) / symbolRate
	bufLen := int(math.Ceil((bufferProtectedRegion + bufferWorkspace) * sps))
	workspaceSamples := int(math.Ceil(bufferWorkspace * sps))

	p.nominalSamplesPerSymbol = sps
	p.observedSamplesPerSymbol = sps
	p.workspaceSamples = workspaceSamples
	p.buf = make([]float64, bufLen)
	p.loadPointer = 0
	p.bufferPointer = 0
	p.samplePoint = 0
	p.delayLine = dibit.DelayLine{}
	p.syncLock = false
	p.symbolsSinceLastSync = 0
	p.previousMessageSymbolLength = 0

	return nil
}

// Receive appends a batch of phase samples (radians, arrival order) and
// emits zero or more decided dibits to the framer, synchronously.
// timestamp is the reference wall-clock time of the first sample in the
// batch and is attached to any messages the framer emits while processing
// it.
func (p *Processor) Receive(samples []float64, timestamp time.Time) {
	for _, s := range samples {
		if p.loadPointer >= len(p.buf) {
			p.shiftBuffer()
		}
		p.buf[p.loadPointer] = s
		p.loadPointer++

		for p.bufferPointer+1 < p.loadPointer && p.samplePoint < 1 {
			p.emitSymbol(timestamp)
			p.samplePoint += p.observedSamplesPerSymbol
			for p.samplePoint >= 1 {
				p.samplePoint -= 1
				p.bufferPointer++
			}
		}
	}
}

// shiftBuffer compacts the buffer, dropping the oldest workspaceSamples
// samples and sliding bufferPointer/loadPointer back to match, keeping
// the protected region of history behind bufferPointer intact.
func (p *Processor) shiftBuffer() {
	shiftAmount := p.workspaceSamples
	if shiftAmount > p.loadPointer {
		shiftAmount = p.loadPointer
	}
	copy(p.buf, p.buf[shiftAmount:p.loadPointer])
	p.loadPointer -= shiftAmount
	p.bufferPointer -= shiftAmount
	if p.bufferPointer < 0 {
		p.bufferPointer = 0
	}
}

// emitSymbol decides one dibit at the current (bufferPointer, samplePoint)
// position, feeds it downstream, updates the three sync correlators, and
// runs sync arbitration.
func (p *Processor) emitSymbol(timestamp time.Time) {
	phase := dibit.Interpolate(p.buf[p.bufferPointer], p.buf[p.bufferPointer+1], p.samplePoint)
	d := dibit.Decide(phase)

	p.framer.Receive(d, timestamp)

	if ejected, ok := p.delayLine.Push(d); ok && p.recorder != nil {
		if err := p.recorder.Push(ejected); err != nil && p.limiter != nil {
			p.limiter.Warn("raw_bitstream_write_failed", logrus.Fields{"error": err.Error()})
		}
	}

	p.symbolsSinceLastSync++
	if p.symbolsSinceLastSync > maxSymbolsForFineSync {
		p.syncLock = false
	}

	primaryOffset := float64(p.bufferPointer) + p.samplePoint - 23*p.observedSamplesPerSymbol
	lag1Offset := p.observedSamplesPerSymbol / 3
	lag2Offset := 2 * p.observedSamplesPerSymbol / 3

	primaryScore := p.scoreAt(primaryOffset)
	lag1Score := p.scoreAt(primaryOffset - lag1Offset)
	lag2Score := p.scoreAt(primaryOffset - lag2Offset)

	p.arbitrateSync(primaryScore, lag1Score, lag2Score, lag1Offset, lag2Offset)

	if p.symbolsSinceLastSync == nidTriggerSymbol {
		p.processNID(timestamp)
	}
}

// arbitrateSync applies the sync acceptance priority order: locked
// primary, then whichever lagging correlator is strongest relative to the
// others, falling back to an unlocked primary acceptance.
func (p *Processor) arbitrateSync(primaryScore, lag1Score, lag2Score, lag1Offset, lag2Offset float64) {
	var accepted bool

	switch {
	case p.syncLock && primaryScore > syncThreshold && p.optimize(0):
		accepted = true
	case lag1Score > primaryScore && primaryScore > lag2Score && lag1Score > syncThreshold &&
		p.symbolsSinceLastSync > 1 && p.optimize(-lag1Offset):
		accepted = true
	case lag2Score > primaryScore && lag2Score > syncThreshold &&
		p.symbolsSinceLastSync > 1 && p.optimize(-lag2Offset):
		accepted = true
	case primaryScore > syncThreshold && p.optimize(0):
		accepted = true
	}

	if accepted {
		p.SyncAcquisitions++
		p.previousMessageSymbolLength = p.symbolsSinceLastSync
		p.symbolsSinceLastSync = 0
	}
}

// processNID extracts and BCH-decodes the NID from the delay line once 33
// dibits have elapsed since the last sync acceptance, then hands the
// result to the framer.
func (p *Processor) processNID(timestamp time.Time) {
	if !p.delayLine.Full() {
		return
	}

	result := nid.Decode(p.delayLine.Window(), p.previousNAC)

	if result.Valid {
		p.syncLock = true
		p.previousNAC = result.NAC
		p.ValidNIDCount++
	} else {
		p.InvalidNIDCount++
	}

	p.framer.SyncDetected(result.NAC, result.DUID, result.Valid, timestamp)
}
