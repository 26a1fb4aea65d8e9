package dibit

import "io"

// ByteAssembler packs a stream of dibits, two bits at a time MSB-first,
// into bytes and flushes them to a sink as they fill. It backs the
// optional raw bitstream recording path named in the external interface
// contract.
type ByteAssembler struct {
	sink    io.Writer
	current byte
	filled  int // bits currently held in current, 0..8 in steps of 2
}

// NewByteAssembler returns an assembler writing completed bytes to sink.
// A nil sink makes the assembler a no-op, which is the default when raw
// recording isn't requested.
func NewByteAssembler(sink io.Writer) *ByteAssembler {
	return &ByteAssembler{sink: sink}
}

// Push appends one dibit's bits to the in-progress byte, flushing to the
// sink whenever four dibits have accumulated.
func (a *ByteAssembler) Push(sym Dibit) error {
	if a.sink == nil {
		return nil
	}
	b1, b2 := sym.Bits()
	a.current = (a.current << 2) | (b1 << 1) | b2
	a.filled += 2
	if a.filled == 8 {
		_, err := a.sink.Write([]byte{a.current})
		a.current = 0
		a.filled = 0
		return err
	}
	return nil
}
