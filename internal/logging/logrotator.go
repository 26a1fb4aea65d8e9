// Package logging provides date-rotated, gzip-compressed event log files
// for the receiver.
package logging

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
)

const filePrefix = "p25"

// LogRotator owns the current day's log file, rotating to a new one at date
// boundaries and gzip-compressing the previous day's file in the background.
type LogRotator struct {
	logDir      string
	useUTC      bool
	logger      *logrus.Logger
	mu          sync.Mutex
	currentFile *os.File
	currentDate string
	closed      bool
}

// NewLogRotator creates the log directory if needed and opens today's file.
func NewLogRotator(logDir string, useUTC bool, logger *logrus.Logger) (*LogRotator, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	r := &LogRotator{
		logDir: logDir,
		useUTC: useUTC,
		logger: logger,
	}

	if err := r.rotateLogFile(); err != nil {
		return nil, fmt.Errorf("failed to open initial log file: %w", err)
	}

	return r, nil
}

// Start runs the rotation check loop until stop is closed.
func (r *LogRotator) Start(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := r.rotateLogFile(); err != nil {
				r.logger.WithError(err).Error("log rotation failed")
			}
		}
	}
}

func (r *LogRotator) today() string {
	now := time.Now()
	if r.useUTC {
		now = now.UTC()
	}
	return now.Format("2006-01-02")
}

// rotateLogFile opens the file for the current date, closing and
// compressing the previous day's file if the date has changed.
func (r *LogRotator) rotateLogFile() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("log rotator is closed")
	}

	date := r.today()
	if date == r.currentDate && r.currentFile != nil {
		return nil
	}

	previousDate := r.currentDate
	if r.currentFile != nil {
		r.currentFile.Close()
	}

	path := filepath.Join(r.logDir, fmt.Sprintf("%s_%s.log", filePrefix, date))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	r.currentFile = f
	r.currentDate = date

	if previousDate != "" && previousDate != date {
		go r.compressLogFile(previousDate)
	}

	return nil
}

// GetWriter returns the writer for the current day's log file, rotating
// first if the date has rolled over.
func (r *LogRotator) GetWriter() (io.Writer, error) {
	if err := r.rotateLogFile(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.currentFile == nil {
		return nil, fmt.Errorf("log rotator is closed")
	}
	return r.currentFile, nil
}

// GetCurrentLogFile returns the path of the file currently being written.
func (r *LogRotator) GetCurrentLogFile() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return filepath.Join(r.logDir, fmt.Sprintf("%s_%s.log", filePrefix, r.currentDate))
}

// GetLogFiles lists every log file (rotated or current, compressed or not)
// under the log directory.
func (r *LogRotator) GetLogFiles() ([]string, error) {
	entries, err := os.ReadDir(r.logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read log directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, filePrefix+"_") {
			files = append(files, filepath.Join(r.logDir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

// CleanupOldLogs removes log files (compressed or not) older than maxDays.
func (r *LogRotator) CleanupOldLogs(maxDays int) error {
	if maxDays <= 0 {
		return fmt.Errorf("maxDays must be positive")
	}

	files, err := r.GetLogFiles()
	if err != nil {
		return err
	}

	cutoff := time.Now().AddDate(0, 0, -maxDays)
	current := r.GetCurrentLogFile()

	for _, path := range files {
		if path == current {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				r.logger.WithError(err).WithField("file", path).Warn("failed to remove old log file")
			}
		}
	}

	return nil
}

// compressLogFile gzip-compresses the rotated log file for date and removes
// the uncompressed original. It runs in its own goroutine after rotation.
func (r *LogRotator) compressLogFile(date string) {
	src := filepath.Join(r.logDir, fmt.Sprintf("%s_%s.log", filePrefix, date))
	dst := src + ".gz"

	in, err := os.Open(src)
	if err != nil {
		r.logger.WithError(err).WithField("file", src).Warn("failed to open log file for compression")
		return
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		r.logger.WithError(err).WithField("file", dst).Warn("failed to create compressed log file")
		return
	}
	defer out.Close()

	bw := bufio.NewWriter(out)
	gw := gzip.NewWriter(bw)

	if _, err := io.Copy(gw, in); err != nil {
		r.logger.WithError(err).Warn("failed to compress log file")
		gw.Close()
		return
	}
	if err := gw.Close(); err != nil {
		r.logger.WithError(err).Warn("failed to finalize compressed log file")
		return
	}
	if err := bw.Flush(); err != nil {
		r.logger.WithError(err).Warn("failed to flush compressed log file")
		return
	}

	in.Close()
	if err := os.Remove(src); err != nil {
		r.logger.WithError(err).WithField("file", src).Warn("failed to remove uncompressed log file")
	}
}

// Close flushes and closes the current log file.
func (r *LogRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.currentFile != nil {
		err := r.currentFile.Close()
		r.currentFile = nil
		return err
	}
	return nil
}
