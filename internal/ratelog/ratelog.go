// Package ratelog provides a rate-limited warning logger, generalizing the
// periodic "only log every Nth occurrence" idiom used for high-frequency
// events like assembler capacity violations and sink write failures.
package ratelog

import (
	"github.com/sirupsen/logrus"
)

// Limiter logs at most once every Every occurrences of a named event,
// tracking counts per key so independent events don't share a budget.
type Limiter struct {
	logger *logrus.Logger
	every  uint64
	counts map[string]uint64
}

// New returns a Limiter that logs the first occurrence of each key and
// every `every`th one after that.
func New(logger *logrus.Logger, every uint64) *Limiter {
	if every == 0 {
		every = 1
	}
	return &Limiter{
		logger: logger,
		every:  every,
		counts: make(map[string]uint64),
	}
}

// Warn logs fields at Warn level under key, suppressing all but every
// `every`th call for that key.
func (l *Limiter) Warn(key string, fields logrus.Fields) {
	l.counts[key]++
	if l.counts[key]%l.every != 1 && l.every != 1 {
		return
	}
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["occurrences"] = l.counts[key]
	l.logger.WithFields(fields).Warn(key)
}
