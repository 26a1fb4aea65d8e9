package symbol

import "math"

const (
	coarseStepDivisor = 10.0
	fineStepDivisor   = 40.0
	minStep           = 0.03
	acceptScore       = 95.0

	// drift-update window: adjustments are only folded into the tracked
	// baud rate once sync has had time to settle and before it's stale.
	driftWindowMin = 72
	driftWindowMax = 890

	driftFraction = 0.2
)

// optimize refines the sample offset for a provisional sync acceptance by
// golden-section-style ternary descent over the 24-symbol sync
// correlation, rejecting weak results. additionalOffset distinguishes the
// primary correlator (0) from the two lagging phases (-lag1Offset,
// -lag2Offset).
func (p *Processor) optimize(additionalOffset float64) bool {
	sps := p.observedSamplesPerSymbol
	initialOffset := float64(p.bufferPointer) + p.samplePoint + additionalOffset - 23*sps

	step := sps / coarseStepDivisor
	if p.syncLock {
		step = sps / fineStepDivisor
	}

	offset := initialOffset
	center := p.scoreAt(offset)

	for {
		left := p.scoreAt(offset - step)
		right := p.scoreAt(offset + step)

		switch {
		case left > center && left >= right:
			offset -= step
			center = left
		case right > center && right > left:
			offset += step
			center = right
		default:
			step /= 2
		}

		if step <= minStep || math.Abs(offset-initialOffset) > sps/2 {
			break
		}
	}

	if center < acceptScore {
		return false
	}

	adjustment := offset - initialOffset
	if p.syncLock {
		adjustment = clamp(adjustment, -0.5, 0.5)
	}

	p.applyAdjustment(adjustment)

	if p.syncLock && math.Abs(adjustment) < 0.5 &&
		p.symbolsSinceLastSync >= driftWindowMin && p.symbolsSinceLastSync <= driftWindowMax {
		p.observedSamplesPerSymbol += (adjustment / float64(p.symbolsSinceLastSync)) * driftFraction
	}

	return true
}

// applyAdjustment perturbs sample_point by adjustment, carrying any
// full-sample overflow into bufferPointer.
func (p *Processor) applyAdjustment(adjustment float64) {
	p.samplePoint += adjustment
	for p.samplePoint >= 1 {
		p.samplePoint -= 1
		p.bufferPointer++
	}
	for p.samplePoint < 0 {
		p.samplePoint += 1
		p.bufferPointer--
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
