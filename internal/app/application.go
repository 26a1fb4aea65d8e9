package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"p25recv/internal/dibit"
	"p25recv/internal/firdesign"
	"p25recv/internal/framer"
	"p25recv/internal/logging"
	"p25recv/internal/metrics"
	"p25recv/internal/ratelog"
	"p25recv/internal/source"
	"p25recv/internal/stream"
	"p25recv/internal/symbol"
)

// Application wires a sample source through the symbol-timing loop and
// message framer into the receiver's sinks: log files, an optional
// WebSocket fan-out, and optional Prometheus metrics.
type Application struct {
	config     Config
	logger     *logrus.Logger
	instanceID string
	verbose    bool

	source      source.SampleSource
	filter      *firdesign.Filter
	processor   *symbol.Processor
	framer      *framer.Framer
	logRotator  *logging.LogRotator
	rawBits     *bitstreamWriter
	recorder    *dibit.ByteAssembler
	hub         *stream.Hub
	metrics     *metrics.Collector
	limiter     *ratelog.Limiter
	metricsSrv  *http.Server
	streamSrv   *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewApplication creates a new application instance.
func NewApplication(config Config) *Application {
	ctx, cancel := context.WithCancel(context.Background())

	logger := logrus.New()
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Application{
		config:     config,
		logger:     logger,
		instanceID: uuid.NewString(),
		ctx:        ctx,
		cancel:     cancel,
		verbose:    config.Verbose,
	}
}

// Start starts the application and blocks until it receives a shutdown
// signal.
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":     Version,
		"build_time":  BuildTime,
		"git_commit":  GitCommit,
		"instance_id": app.instanceID,
	}).Info("Starting P25 Phase 1 symbol receiver")

	if err := app.initializeComponents(); err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.run(); err != nil {
		app.logger.WithError(err).Error("application error")
		return err
	}

	<-sigChan
	app.logger.Info("received shutdown signal")
	app.shutdown()

	return nil
}

// initializeComponents builds every collaborator named in SPEC_FULL.md's
// domain stack, wiring the framer's callbacks to the logging, metrics, and
// stream sinks.
func (app *Application) initializeComponents() error {
	var err error

	rateLogEvery := app.config.RateLogEvery
	if rateLogEvery == 0 {
		rateLogEvery = 1000
	}
	app.limiter = ratelog.New(app.logger, rateLogEvery)
	app.metrics = metrics.New()

	app.logRotator, err = logging.NewLogRotator(app.config.LogDir, app.config.LogRotateUTC, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize log rotator: %w", err)
	}
	app.rawBits = newBitstreamWriter(app.logRotator)
	app.recorder = dibit.NewByteAssembler(app.rawBits)

	if app.config.StreamAddr != "" {
		app.hub = stream.New(app.logger)
	}

	app.framer = framer.New(app.logger, app.limiter, app.onPayload, app.onSyncLoss)

	app.processor, err = symbol.NewProcessor(app.config.SampleRate, app.framer, app.recorder, app.logger, app.limiter)
	if err != nil {
		return fmt.Errorf("failed to initialize symbol processor: %w", err)
	}

	if app.config.EnableFilter {
		taps := firdesign.LowPassTaps(app.config.FIRTaps, app.config.FIRCutoffHz, float64(app.config.SampleRate))
		app.filter = firdesign.New(taps)
	}

	fileSource := source.NewFileSource(app.config.SourceFile, app.logger)
	if err := fileSource.Configure(app.config.SampleRate); err != nil {
		return fmt.Errorf("failed to configure sample source: %w", err)
	}
	app.source = fileSource

	return nil
}

// onPayload is the framer's FramedPayload callback: it updates metrics,
// fans the message out over the stream hub, and appends it to the
// per-day log file.
func (app *Application) onPayload(p framer.FramedPayload) {
	app.metrics.FramedPayloadsTotal.WithLabelValues(p.DUID.String()).Inc()
	if p.ValidNID {
		app.metrics.ValidNIDTotal.Inc()
	} else {
		app.metrics.InvalidNIDTotal.Inc()
	}

	if app.hub != nil {
		app.hub.BroadcastPayload(p)
	}

	if err := app.writeFramedPayload(p); err != nil {
		app.limiter.Warn("framed_payload_write_failed", logrus.Fields{"error": err.Error()})
	}

	app.logger.WithFields(logrus.Fields{
		"nac":       fmt.Sprintf("0x%03X", p.NAC),
		"duid":      p.DUID.String(),
		"valid_nid": p.ValidNID,
		"bit_count": p.BitCount,
	}).Debug("framed payload")
}

// onSyncLoss is the framer's SyncLoss callback: it updates metrics and
// fans the event out over the stream hub.
func (app *Application) onSyncLoss(s framer.SyncLoss) {
	app.metrics.SyncLossTotal.Inc()
	if app.hub != nil {
		app.hub.BroadcastSyncLoss(s)
	}
	app.logger.WithFields(logrus.Fields{
		"bit_count": s.BitCount,
		"protocol":  s.Protocol,
	}).Debug("sync loss")
}

// framedPayloadLine is the JSON shape appended to the per-day log file for
// each delivered message.
type framedPayloadLine struct {
	InstanceID string `json:"instance_id"`
	NAC        uint16 `json:"nac"`
	DUID       string `json:"duid"`
	ValidNID   bool   `json:"valid_nid"`
	Bits       []byte `json:"bits"`
	BitCount   int    `json:"bit_count"`
	Time       string `json:"time"`
}

func (app *Application) writeFramedPayload(p framer.FramedPayload) error {
	writer, err := app.logRotator.GetWriter()
	if err != nil {
		return fmt.Errorf("failed to get log writer: %w", err)
	}

	line := framedPayloadLine{
		InstanceID: app.instanceID,
		NAC:        p.NAC,
		DUID:       p.DUID.String(),
		ValidNID:   p.ValidNID,
		Bits:       p.Bits,
		BitCount:   p.BitCount,
		Time:       p.Time.UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("failed to marshal framed payload: %w", err)
	}
	if _, err := writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write framed payload: %w", err)
	}
	return nil
}

// run starts every background goroutine: log rotation, the optional
// metrics and stream HTTP servers, sample capture, and periodic stats
// reporting.
func (app *Application) run() error {
	app.logger.Info("starting sample capture and symbol decode")

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.logRotator.Start(app.ctx.Done())
	}()

	if app.config.MetricsAddr != "" {
		app.metricsSrv = &http.Server{Addr: app.config.MetricsAddr, Handler: app.metrics.Handler()}
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			app.logger.WithField("addr", app.config.MetricsAddr).Info("serving metrics")
			if err := app.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				app.logger.WithError(err).Error("metrics server failed")
			}
		}()
	}

	if app.hub != nil && app.config.StreamAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/", app.hub)
		app.streamSrv = &http.Server{Addr: app.config.StreamAddr, Handler: mux}
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			app.logger.WithField("addr", app.config.StreamAddr).Info("serving websocket stream")
			if err := app.streamSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				app.logger.WithError(err).Error("stream server failed")
			}
		}()
	}

	dataChan := make(chan []float64, 100)

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		if err := app.source.StartCapture(app.ctx, dataChan); err != nil {
			app.logger.WithError(err).Error("sample capture failed")
		}
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.processSamples(dataChan)
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.reportStatistics()
	}()

	app.logger.Info("all components started successfully")
	return nil
}

// processSamples filters (if configured) and feeds each arriving batch of
// phase samples to the symbol processor.
func (app *Application) processSamples(dataChan <-chan []float64) {
	for {
		select {
		case <-app.ctx.Done():
			app.logger.Info("sample processing stopped")
			return
		case batch := <-dataChan:
			if len(batch) == 0 {
				continue
			}
			filtered := app.filter.Apply(batch)
			app.processor.Receive(filtered, time.Now())
			app.metrics.ObservedSamplesPerSymbol.Set(app.processor.ObservedSamplesPerSymbol())
		}
	}
}

// reportStatistics periodically logs a summary of decode activity and
// pushes the processor's sync-acquisition count into the metrics
// collector, generalizing the teacher's periodic stats ticker into both a
// log line and a scrapeable counter. The valid/invalid NID counts are only
// logged here; the NID metrics are updated per payload in onPayload.
func (app *Application) reportStatistics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	var lastAcquisitions uint64

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			acquisitions := app.processor.SyncAcquisitions
			valid := app.processor.ValidNIDCount
			invalid := app.processor.InvalidNIDCount

			app.metrics.SyncAcquisitionsTotal.Add(float64(acquisitions - lastAcquisitions))
			lastAcquisitions = acquisitions

			app.logger.WithFields(logrus.Fields{
				"sync_acquisitions": acquisitions,
				"valid_nid":         valid,
				"invalid_nid":       invalid,
			}).Info("P25 receiver statistics")
		}
	}
}

// shutdown gracefully shuts down the application, closing HTTP servers and
// waiting (with a timeout) for every background goroutine to return.
func (app *Application) shutdown() {
	app.logger.Info("shutting down application")
	app.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if app.metricsSrv != nil {
		app.metricsSrv.Shutdown(shutdownCtx)
	}
	if app.streamSrv != nil {
		app.streamSrv.Shutdown(shutdownCtx)
	}

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		app.logger.Info("all goroutines finished")
	case <-time.After(5 * time.Second):
		app.logger.Warn("shutdown timeout, forcing exit")
	}

	if app.source != nil {
		app.source.Close()
	}
	if app.rawBits != nil {
		app.rawBits.Close()
	}
	if app.logRotator != nil {
		app.logRotator.Close()
	}

	app.logger.Info("shutdown completed")
}

// bitstreamWriter backs the optional raw decided-dibit recording path with
// a sibling ".p25bits" file next to the current day's log, reopening it
// whenever the log rotator rolls over to a new date. It mirrors
// logrotator.go's own per-day file naming rather than duplicating its
// rotation/compression machinery.
type bitstreamWriter struct {
	rotator *logging.LogRotator
	mu      sync.Mutex
	file    *os.File
	path    string
}

func newBitstreamWriter(rotator *logging.LogRotator) *bitstreamWriter {
	return &bitstreamWriter{rotator: rotator}
}

func (b *bitstreamWriter) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wantPath := strings.TrimSuffix(b.rotator.GetCurrentLogFile(), ".log") + ".p25bits"
	if wantPath != b.path {
		if b.file != nil {
			b.file.Close()
		}
		if err := os.MkdirAll(filepath.Dir(wantPath), 0755); err != nil {
			return 0, fmt.Errorf("failed to create bitstream log directory: %w", err)
		}
		f, err := os.OpenFile(wantPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return 0, fmt.Errorf("failed to open bitstream log %s: %w", wantPath, err)
		}
		b.file = f
		b.path = wantPath
	}

	return b.file.Write(p)
}

func (b *bitstreamWriter) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file != nil {
		return b.file.Close()
	}
	return nil
}
