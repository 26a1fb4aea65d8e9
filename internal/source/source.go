// Package source defines the sample-source collaborator the application
// wiring feeds into the symbol processor, and a file-backed implementation
// of it. The upstream demodulator that turns RF into phase samples is out
// of scope (spec.md §1); FileSource exists so the rest of the pipeline has
// something concrete to read from in place of live hardware.
package source

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/sirupsen/logrus"
)

// chunkSamples is how many float32 phase samples FileSource reads and
// delivers per callback, mirroring the teacher's fixed-size async read
// chunking.
const chunkSamples = 4096

// SampleSource produces a stream of soft-symbol phase samples (radians).
// Configure must be called once before StartCapture. StartCapture blocks
// until ctx is canceled or the source is exhausted.
type SampleSource interface {
	Configure(sampleRate uint32) error
	StartCapture(ctx context.Context, dataChan chan<- []float64) error
	Close() error
}

// FileSource reads raw little-endian float32 phase samples from a file.
type FileSource struct {
	path       string
	logger     *logrus.Logger
	file       *os.File
	sampleRate uint32
	cancelFn   context.CancelFunc
}

// NewFileSource returns a FileSource reading from path. The file isn't
// opened until Configure.
func NewFileSource(path string, logger *logrus.Logger) *FileSource {
	return &FileSource{path: path, logger: logger}
}

// Configure opens the backing file and records the nominal sample rate,
// which the caller (application wiring) also uses to size the symbol
// processor's timing buffer.
func (f *FileSource) Configure(sampleRate uint32) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("failed to open sample file: %w", err)
	}
	f.file = file
	f.sampleRate = sampleRate
	return nil
}

// StartCapture reads chunkSamples-sized batches of phase samples and
// delivers them on dataChan until the file is exhausted or ctx is
// canceled. It never blocks indefinitely trying to send: a full channel
// means the downstream processor has fallen behind, and the batch is
// dropped rather than stalling the read loop.
func (f *FileSource) StartCapture(ctx context.Context, dataChan chan<- []float64) error {
	if f.file == nil {
		return errors.New("source not configured")
	}

	captureCtx, cancel := context.WithCancel(ctx)
	f.cancelFn = cancel

	errCh := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.logger.WithField("panic", r).Error("file source capture panic")
			}
		}()

		buf := make([]byte, chunkSamples*4)
		for {
			n, err := io.ReadFull(f.file, buf)
			if n > 0 {
				samples := decodeFloat32LE(buf[:n])
				select {
				case dataChan <- samples:
				case <-captureCtx.Done():
					errCh <- nil
					return
				default:
					f.logger.Debug("dropping sample batch, channel full")
				}
			}
			if err != nil {
				if err == io.EOF || err == io.ErrUnexpectedEOF {
					errCh <- nil
				} else {
					errCh <- fmt.Errorf("sample file read failed: %w", err)
				}
				return
			}
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-captureCtx.Done():
		return nil
	}
}

// Close releases the backing file and cancels any in-progress capture.
func (f *FileSource) Close() error {
	if f.cancelFn != nil {
		f.cancelFn()
	}
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}

// decodeFloat32LE interprets raw bytes as little-endian float32 phase
// samples, widened to float64 for the timing loop.
func decodeFloat32LE(b []byte) []float64 {
	n := len(b) / 4
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(b[i*4:])
		out[i] = float64(math.Float32frombits(bits))
	}
	return out
}
